package site

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const rescanDelay = 200 * time.Millisecond

// Watcher держит актуальный манифест каталога ассетов
type Watcher struct {
	dir      string
	manifest atomic.Pointer[Manifest]
	scans    atomic.Uint64
	logger   *log.Logger
}

// NewWatcher сканирует каталог и возвращает наблюдатель с готовым манифестом
func NewWatcher(dir string, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	w := &Watcher{dir: dir, logger: logger}
	if err := w.rescan(); err != nil {
		return nil, err
	}
	return w, nil
}

// Manifest возвращает текущий манифест
func (w *Watcher) Manifest() *Manifest {
	return w.manifest.Load()
}

// Scans возвращает число выполненных сканирований
func (w *Watcher) Scans() uint64 {
	return w.scans.Load()
}

func (w *Watcher) rescan() error {
	m, err := ScanAssets(w.dir)
	if err != nil {
		return err
	}
	w.manifest.Store(m)
	w.scans.Add(1)
	return nil
}

// Run следит за каталогом и пересобирает манифест после изменений,
// пока не отменен ctx. События в пределах rescanDelay объединяются.
func (w *Watcher) Run(ctx context.Context) error {
	if !exists(w.dir) {
		w.logger.Printf("[Assets] Каталог %s не найден, наблюдение отключено", w.dir)
		<-ctx.Done()
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.dir); err != nil {
		return err
	}
	w.logger.Printf("[Assets] Наблюдение за %s", w.dir)

	timer := time.NewTimer(rescanDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				// Новый подкаталог демо тоже нужно наблюдать
				_ = w.addTree(fw, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0:
				continue
			}
			timer.Reset(rescanDelay)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("[Assets] Ошибка наблюдения: %v", err)

		case <-timer.C:
			if err := w.rescan(); err != nil {
				w.logger.Printf("[Assets] Ошибка сканирования: %v", err)
				continue
			}
			w.logger.Printf("[Assets] Манифест обновлен: %d демо с моделями", len(w.Manifest().Demos))
		}
	}
}

// addTree добавляет в наблюдение каталог и все его подкаталоги
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(p); err != nil {
				return fmt.Errorf("наблюдение за %s: %w", p, err)
			}
		}
		return nil
	})
}
