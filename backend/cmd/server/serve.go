package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gallery3d/backend/internal/adapter/in/grpcapi"
	"gallery3d/backend/internal/adapter/in/ws"
	"gallery3d/backend/internal/config"
	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/frameloop"
	"gallery3d/backend/internal/gallery"
	"gallery3d/backend/internal/site"
	"gallery3d/backend/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		httpAddr string
		grpcAddr string
		fps      int
		eager    bool
		noWatch  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP/WebSocket и gRPC сервер кадров",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("http") {
				cfg.Server.HTTPAddr = httpAddr
			}
			if flags.Changed("grpc") {
				cfg.Server.GRPCAddr = grpcAddr
			}
			if flags.Changed("fps") {
				cfg.Loop.FPS = fps
			}
			if flags.Changed("eager") {
				cfg.Loop.EagerStart = eager
			}
			if noWatch {
				cfg.Site.Watch = false
			}
			if err := applyConfig(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&httpAddr, "http", "", "адрес HTTP сервера")
	flags.StringVar(&grpcAddr, "grpc", "", "адрес gRPC сервера, пустой отключает gRPC")
	flags.IntVar(&fps, "fps", 0, "частота кадров симуляции")
	flags.BoolVar(&eager, "eager", false, "запустить все демо сразу")
	flags.BoolVar(&noWatch, "no-watch", false, "не следить за каталогом ассетов")
	return cmd
}

// serve поднимает все службы по текущей конфигурации (config.Get)
func serve(ctx context.Context) error {
	cfg := config.Get()
	logger := log.Default()

	tm := telemetry.Global
	tm.SetPrintInterval(cfg.Loop.TelemetryInterval())

	ticker := frameloop.NewTicker(cfg.Loop.FPS, logger)
	ticker.RegisterSystem(telemetry.NewSummarySystem(tm))

	registry := demo.DefaultRegistry()
	manager := gallery.NewManager(registry, ticker, gallery.Options{
		Demo:      cfg.Demos.Options(),
		Telemetry: tm,
		Logger:    logger,
	})
	if cfg.Loop.EagerStart {
		if err := manager.StartAll(); err != nil {
			return err
		}
	}

	gallerySite, err := site.New(registry, site.Options{Logger: logger})
	if err != nil {
		return err
	}

	wsAdapter := ws.NewWSAdapter(manager, ws.DefaultStreamSettings(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsAdapter.HandleWS)
	mux.HandleFunc("/api/stats", statsHandler(ticker, tm, wsAdapter))
	mux.Handle("/", gallerySite.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	var grpcServer *grpcapi.Server
	if cfg.Server.GRPCAddr != "" {
		grpcServer = grpcapi.NewServer(manager, logger)
	}

	// health переходит в SERVING только после запуска цикла кадров
	if err := startLoop(ctx, ticker, func() {
		if grpcServer != nil {
			grpcServer.MarkServing()
		}
	}); err != nil {
		return err
	}

	g.Go(func() error {
		<-ctx.Done()
		ticker.Stop()
		return nil
	})

	g.Go(func() error {
		logger.Printf("[HTTP] Сервер слушает %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		wsAdapter.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if grpcServer != nil {
		g.Go(func() error {
			logger.Printf("[GRPC] Сервер слушает %s", cfg.Server.GRPCAddr)
			return grpcServer.ListenAndServe(ctx, cfg.Server.GRPCAddr)
		})
	}

	if cfg.Site.Watch {
		g.Go(func() error {
			return gallerySite.Watcher().Run(ctx)
		})
	}

	err = g.Wait()
	tm.PrintSummary()
	logger.Printf("[Server] Остановлен")
	return err
}

// startLoop запускает цикл кадров и вызывает ready, когда он уже работает
func startLoop(ctx context.Context, ticker *frameloop.Ticker, ready func()) error {
	if err := ticker.Start(ctx); err != nil {
		return fmt.Errorf("запуск цикла кадров: %w", err)
	}
	if !ticker.IsRunning() {
		return errors.New("цикл кадров не запущен")
	}
	ready()
	return nil
}

// statsHandler отдает статистику цикла кадров и телеметрию
func statsHandler(ticker *frameloop.Ticker, tm *telemetry.Manager, wsAdapter *ws.WSAdapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		telemetryJSON, err := tm.GetTelemetryJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"loop":      ticker.Stats(),
			"clients":   wsAdapter.ClientCount(),
			"telemetry": json.RawMessage(telemetryJSON),
		})
	}
}
