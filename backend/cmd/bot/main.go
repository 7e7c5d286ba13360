// Команда bot: нагрузочный клиент галереи. Открывает несколько WebSocket
// сессий к одному демо и шлет команды по выбранному паттерну.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		serverURL   string
		demoName    string
		pattern     string
		count       int
		duration    time.Duration
		commandRate time.Duration
	)

	cmd := &cobra.Command{
		Use:          "bot",
		Short:        "Нагрузочные клиенты для WebSocket сервера галереи",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			bots := make([]*Bot, count)
			g, ctx := errgroup.WithContext(ctx)
			for i := range bots {
				bots[i] = NewBot(fmt.Sprintf("bot%d", i+1), serverURL, demoName, pattern, duration, commandRate, nil)
				b := bots[i]
				g.Go(func() error { return b.Run(ctx) })
			}
			err := g.Wait()

			for _, b := range bots {
				b.PrintStats()
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serverURL, "url", "ws://localhost:8080/ws", "URL WebSocket сервера")
	flags.StringVar(&demoName, "demo", "sistemaSolar", "имя демо")
	flags.StringVar(&pattern, "pattern", PatternRandom, "паттерн команд (camera, trails, shovel, random, idle)")
	flags.IntVarP(&count, "count", "n", 1, "количество ботов")
	flags.DurationVar(&duration, "duration", 30*time.Second, "длительность работы")
	flags.DurationVar(&commandRate, "rate", 500*time.Millisecond, "период отправки команд")

	if err := cmd.Execute(); err != nil {
		log.Printf("[Bot] Ошибка: %v", err)
		os.Exit(1)
	}
}
