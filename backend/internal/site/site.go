package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	strip "github.com/grokify/html-strip-tags-go"

	"gallery3d/backend/internal/config"
	"gallery3d/backend/internal/demo"
)

//go:embed templates/*.html static/*
var content embed.FS

var pageTemplates = template.Must(template.ParseFS(content, "templates/*.html"))

// Options - настройки сайта. Пустые поля заполняются из config.GetSite().
type Options struct {
	AssetsDir string
	ThreeURL  string
	Logger    *log.Logger
}

// DemoPage - данные страницы одного демо
type DemoPage struct {
	Name        string
	Title       string
	Description template.HTML
	Summary     string // описание без разметки для <meta>
	ClearColor  string
	Assets      []string
	Missing     []string
}

// Site собирает статический сайт галереи: индекс, страницы демо,
// клиентский скрипт и манифест ассетов
type Site struct {
	registry *demo.Registry
	opts     Options
	watcher  *Watcher
	logger   *log.Logger
}

// New создает сайт и сканирует каталог ассетов
func New(registry *demo.Registry, opts Options) (*Site, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	// Пустые поля берутся из текущей конфигурации
	cfg := config.GetSite()
	if opts.ThreeURL == "" {
		opts.ThreeURL = cfg.ThreeURL
	}
	if opts.AssetsDir == "" {
		opts.AssetsDir = cfg.AssetsDir
	}

	w, err := NewWatcher(opts.AssetsDir, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Site{
		registry: registry,
		opts:     opts,
		watcher:  w,
		logger:   opts.Logger,
	}, nil
}

// Watcher возвращает наблюдатель каталога ассетов
func (s *Site) Watcher() *Watcher {
	return s.watcher
}

// RenderMarkdown переводит описание демо в HTML
func RenderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

// Summary превращает отрендеренное описание в одну строку текста
func Summary(desc template.HTML) string {
	return strings.Join(strings.Fields(strip.StripTags(string(desc))), " ")
}

// Pages возвращает описания всех страниц демо в порядке реестра
func (s *Site) Pages() []DemoPage {
	manifest := s.watcher.Manifest()

	var pages []DemoPage
	for _, name := range s.registry.Names() {
		d, err := s.registry.New(name, demo.DefaultOptions())
		if err != nil {
			continue
		}
		desc := RenderMarkdown(d.Description())
		pages = append(pages, DemoPage{
			Name:        name,
			Title:       d.Title(),
			Description: desc,
			Summary:     Summary(desc),
			ClearColor:  d.ClearColor(),
			Assets:      d.Assets(),
			Missing:     manifest.Missing(d.Assets()),
		})
	}
	return pages
}

func (s *Site) page(name string) (DemoPage, bool) {
	for _, p := range s.Pages() {
		if p.Name == name {
			return p, true
		}
	}
	return DemoPage{}, false
}

// RenderIndex рендерит индекс галереи
func (s *Site) RenderIndex(w io.Writer) error {
	return pageTemplates.ExecuteTemplate(w, "index.html", map[string]interface{}{
		"Demos": s.Pages(),
	})
}

// RenderDemo рендерит страницу демо
func (s *Site) RenderDemo(w io.Writer, name string) error {
	p, ok := s.page(name)
	if !ok {
		return fmt.Errorf("%w: %s", demo.ErrUnknownDemo, name)
	}
	return pageTemplates.ExecuteTemplate(w, "demo.html", map[string]interface{}{
		"Demo":     p,
		"ThreeURL": s.opts.ThreeURL,
		"AddonsURL": strings.TrimSuffix(s.opts.ThreeURL, "build/three.module.js") +
			"examples/jsm/",
	})
}

// ManifestJSON возвращает манифест ассетов
func (s *Site) ManifestJSON() ([]byte, error) {
	return json.MarshalIndent(s.watcher.Manifest(), "", "  ")
}

// Build записывает весь сайт в outDir: страницы, клиент, манифест и ассеты
func (s *Site) Build(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("создание %s: %w", outDir, err)
	}

	files := make(map[string][]byte)

	var buf bytes.Buffer
	if err := s.RenderIndex(&buf); err != nil {
		return fmt.Errorf("index.html: %w", err)
	}
	files["index.html"] = append([]byte(nil), buf.Bytes()...)

	for _, name := range s.registry.Names() {
		buf.Reset()
		if err := s.RenderDemo(&buf, name); err != nil {
			return fmt.Errorf("%s.html: %w", name, err)
		}
		files[name+".html"] = append([]byte(nil), buf.Bytes()...)
	}

	clientJS, err := fs.ReadFile(content, "static/client.js")
	if err != nil {
		return err
	}
	files["client.js"] = clientJS

	manifest, err := s.ManifestJSON()
	if err != nil {
		return err
	}
	files["manifest.json"] = manifest

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			return fmt.Errorf("запись %s: %w", name, err)
		}
	}

	if exists(s.opts.AssetsDir) {
		if err := copyTree(s.opts.AssetsDir, filepath.Join(outDir, "assets")); err != nil {
			return fmt.Errorf("копирование ассетов: %w", err)
		}
	}

	s.logger.Printf("[Site] Сайт собран в %s: %d страниц демо", outDir, len(s.registry.Names()))
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}

// Handler отдает сайт без сборки на диск
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(content, "static")
	mux.Handle("/client.js", http.FileServer(http.FS(static)))

	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		data, err := s.ManifestJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.opts.AssetsDir))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		var err error

		switch p := r.URL.Path; {
		case p == "/" || p == "/index.html":
			err = s.RenderIndex(&buf)
		case strings.HasSuffix(p, ".html"):
			err = s.RenderDemo(&buf, strings.TrimSuffix(strings.TrimPrefix(p, "/"), ".html"))
		default:
			http.NotFound(w, r)
			return
		}

		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, demo.ErrUnknownDemo) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	})

	return mux
}
