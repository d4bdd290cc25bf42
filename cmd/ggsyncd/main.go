// ggsyncd - SteelSeries Engine configuration sync daemon
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/ggsync/internal/config"
	"github.com/hazyhaar/ggsync/internal/console"
	"github.com/hazyhaar/ggsync/internal/logging"
	"github.com/hazyhaar/ggsync/internal/service"
)

const version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		interactive = flag.Bool("console", false, "Start the interactive operator console instead of the background daemon")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ggsyncd v%s - SteelSeries Engine configuration sync daemon

Usage: ggsyncd [options]

Options:
`, version)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  ggsyncd                     Start the background sync daemon
  ggsyncd --console           Start the interactive operator console
  ggsyncd --config ./cfg.json Use a specific config file

For more info: https://github.com/hazyhaar/ggsync
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("ggsyncd v%s\n", version)
		return
	}

	log := logging.NewDevelopment()
	if !*debug {
		log = logging.Or(nil)
	}
	defer log.Sync()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	store, err := config.NewStore(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	svc := service.New(store, log)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *interactive {
		runConsole(ctx, svc)
		return
	}

	runDaemon(ctx, svc)
}

func runDaemon(ctx context.Context, svc *service.Service) {
	go func() {
		for status := range svc.StatusEvents() {
			fmt.Println(status)
		}
	}()

	if err := svc.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runConsole(ctx context.Context, svc *service.Service) {
	go func() {
		if err := svc.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}()

	go func() {
		for status := range svc.StatusEvents() {
			fmt.Println(status)
		}
	}()

	os.MkdirAll(".ggsync", 0o755)
	c, err := console.New(svc, ".ggsync/history")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := c.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
