package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gallery3d/backend/internal/adapter/in/grpcapi"
	"gallery3d/backend/internal/config"
	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/gallery"
	"gallery3d/backend/internal/site"
)

func newBuildCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Собрать статический сайт галереи",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Site.OutDir = outDir
			}
			if err := applyConfig(cfg); err != nil {
				return err
			}

			s, err := site.New(demo.DefaultRegistry(), site.Options{})
			if err != nil {
				return err
			}
			return s.Build(config.GetSite().OutDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "каталог для собранного сайта")
	return cmd
}

func newListCmd() *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать доступные демо",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var infos []gallery.Info

			if remote != "" {
				client, err := grpcapi.NewClient(remote)
				if err != nil {
					return err
				}
				defer client.Close()

				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				if infos, err = client.List(ctx); err != nil {
					return fmt.Errorf("список демо с %s: %w", remote, err)
				}
			} else {
				registry := demo.DefaultRegistry()
				for _, name := range registry.Names() {
					d, err := registry.New(name, demo.DefaultOptions())
					if err != nil {
						return err
					}
					info, err := gallery.Preview(d)
					if err != nil {
						return err
					}
					infos = append(infos, info)
				}
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ИМЯ\tНАЗВАНИЕ\tКАМЕРЫ\tМОДЕЛИ")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", info.Name, info.Title, len(info.Cameras), len(info.Assets))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "адрес gRPC сервера, например localhost:50051")
	return cmd
}
