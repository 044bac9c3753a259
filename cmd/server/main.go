package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"vine-and-dine/server/internal/app"
	"vine-and-dine/server/internal/config"
)

type cli struct {
	Config []string `help:"YAML config files, merged in order over defaults." type:"path" short:"c"`

	Addr        string `help:"Override the TCP listen address."`
	TickMillis  int    `help:"Override the simulation tick period in milliseconds."`
	MinSeverity string `help:"Override the logging severity floor." enum:",debug,info,warn,error" default:""`
}

func main() {
	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("vine-and-dine-server"),
		kong.Description("Authoritative game server for the vine-and-dine line protocol."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(flags.Config...)
	kctx.FatalIfErrorf(err)

	if flags.Addr != "" {
		cfg.TCP.Addr = flags.Addr
	}
	if flags.TickMillis > 0 {
		cfg.Simulation.TickInterval = config.Duration(time.Duration(flags.TickMillis) * time.Millisecond)
	}
	if flags.MinSeverity != "" {
		cfg.Logging.MinSeverity = flags.MinSeverity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Options{Config: cfg}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
