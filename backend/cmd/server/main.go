// Команда gallery: сервер 3D-галереи, сборка статического сайта и список демо
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"gallery3d/backend/internal/config"
)

var configPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	root := &cobra.Command{
		Use:           "gallery",
		Short:         "Галерея 3D-демо: сервер кадров, сайт и клиенты",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к TOML конфигурации")

	root.AddCommand(newServeCmd(), newBuildCmd(), newListCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}

// loadConfig читает конфигурацию из --config или берет значения по умолчанию
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// applyConfig проверяет итоговую конфигурацию и делает ее текущей
func applyConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("неверная конфигурация: %w", err)
	}
	config.Set(cfg)
	return nil
}
