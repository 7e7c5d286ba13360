package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Форматы моделей, которые умеет загружать клиент
var modelExts = map[string]string{
	".glb":  "gltf",
	".gltf": "gltf",
	".dae":  "collada",
}

// Asset - файл модели в каталоге демо
type Asset struct {
	Path   string `json:"path"` // URL: /assets/<демо>/<файл>
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// Manifest - модели, найденные в каталоге ассетов, по демо
type Manifest struct {
	Demos map[string][]Asset `json:"demos"`
}

// ScanAssets обходит dir: каждый подкаталог верхнего уровня - ассеты одного
// демо. Отсутствующий каталог дает пустой манифест.
func ScanAssets(dir string) (*Manifest, error) {
	m := &Manifest{Demos: make(map[string][]Asset)}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		format, ok := modelExts[strings.ToLower(filepath.Ext(p))]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			// Файлы в корне не принадлежат ни одному демо
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		m.Demos[parts[0]] = append(m.Demos[parts[0]], Asset{
			Path:   path.Join("/assets", filepath.ToSlash(rel)),
			Format: format,
			Size:   info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("сканирование ассетов %s: %w", dir, err)
	}

	for _, assets := range m.Demos {
		sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	}
	return m, nil
}

// Has сообщает, есть ли в манифесте файл с данным URL
func (m *Manifest) Has(url string) bool {
	for _, assets := range m.Demos {
		for _, a := range assets {
			if a.Path == url {
				return true
			}
		}
	}
	return false
}

// Missing возвращает пути из required, которых нет в манифесте
func (m *Manifest) Missing(required []string) []string {
	var out []string
	for _, r := range required {
		if !m.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// exists сообщает, существует ли каталог
func exists(dir string) bool {
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}
