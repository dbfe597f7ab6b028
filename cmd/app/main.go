package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MykolaKantsir/web/internal/client"
	"github.com/MykolaKantsir/web/internal/config"
	"github.com/MykolaKantsir/web/internal/console"
	"github.com/MykolaKantsir/web/pkg/logger"
)

func main() {
	displayW := flag.Float64("display-width", 0, "width the drawing is shown at, 0 for native")
	displayH := flag.Float64("display-height", 0, "height the drawing is shown at, 0 for native")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <drawing id or filename>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	// stderr shares the terminal with the prompt.
	log, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Client.BaseURL, cfg.Client.Timeout, log)
	if err := api.Health(ctx); err != nil {
		log.Sugar().Fatal("Measuring server unreachable: ", err)
	}

	c := console.New(api, os.Stdin, os.Stdout, console.Display{Width: *displayW, Height: *displayH}, log)
	if err := c.Run(ctx, flag.Arg(0)); err != nil {
		log.Sugar().Fatal("Measuring failed: ", err)
	}
}
