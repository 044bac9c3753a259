// Package app assembles the server from its parts: logging, world, hub,
// transports, and the administrative console on stdin.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	server "vine-and-dine/server"
	"vine-and-dine/server/internal/config"
	"vine-and-dine/server/internal/net/tcp"
	"vine-and-dine/server/internal/net/ws"
	"vine-and-dine/server/internal/sim"
	"vine-and-dine/server/internal/telemetry"
	"vine-and-dine/server/logging"
	"vine-and-dine/server/logging/sinks"
)

// Options are the process-level knobs the CLI passes in.
type Options struct {
	Config config.Config
	Stdin  io.Reader
	Stdout io.Writer
}

// Run boots the server and blocks until ctx is cancelled. Teardown order:
// stop listeners, stop the tick loop, flush logging.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	stdLogger := log.New(os.Stderr, "", log.LstdFlags)
	logger := telemetry.WrapLogger(stdLogger)
	metrics := telemetry.NewCounters()

	router, err := buildRouter(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		router.Close(closeCtx)
	}()

	tiles, err := buildTileMap(cfg.World)
	if err != nil {
		return err
	}
	templates, err := buildTemplates(cfg.World, tiles)
	if err != nil {
		return err
	}

	deps := sim.Deps{Logger: logger, Metrics: metrics, Clock: logging.SystemClock{}}
	hub := server.NewHub(tiles, templates,
		sim.WorldConfig{
			StartLives:          cfg.Simulation.StartLives,
			StartRound:          cfg.Simulation.StartRound,
			EnemyBroadcastEvery: cfg.Simulation.EnemyBroadcastEvery,
		},
		sim.LoopConfig{
			TickInterval:   cfg.Simulation.TickInterval.Std(),
			InputCapacity:  cfg.Simulation.InputCapacity,
			PerPlayerLimit: cfg.Simulation.PerPlayerLimit,
		},
		deps, router)

	tcpServer := tcp.NewServer(tcp.Config{
		Addr:         cfg.TCP.Addr,
		IdleTimeout:  cfg.TCP.IdleTimeout.Std(),
		WriteTimeout: cfg.TCP.WriteTimeout.Std(),
		MaxLineBytes: cfg.TCP.MaxLineBytes,
	}, hub, logger, metrics, router)

	errCh := make(chan error, 3)
	go func() {
		if err := tcpServer.Serve(); err != nil {
			errCh <- err
		}
	}()
	go hub.RunSimulation()

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.HTTP.Path, ws.NewHandler(ws.DefaultConfig(), hub, logger, metrics, router))
		httpServer = &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	adminDone := make(chan struct{})
	go runAdminConsole(hub, stdin, stdout, logger, adminDone)

	select {
	case <-ctx.Done():
	case <-adminDone:
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpServer != nil {
		httpServer.Shutdown(shutdownCtx)
	}
	tcpServer.Close(shutdownCtx)
	hub.Stop()
	return err
}

// runAdminConsole reads administrator lines from stdin until EOF or "exit".
func runAdminConsole(hub *server.Hub, stdin io.Reader, stdout io.Writer, logger telemetry.Logger, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return
		}
		result, err := hub.RunAdminCommand(line)
		if err != nil {
			fmt.Fprintln(stdout, err)
			if logger != nil {
				logger.Printf("%v", err)
			}
			continue
		}
		fmt.Fprintln(stdout, result)
	}
}

func buildRouter(cfg config.LoggingConfig) (*logging.Router, error) {
	routerCfg := logging.DefaultConfig()
	if len(cfg.Sinks) > 0 {
		routerCfg.EnabledSinks = append([]string(nil), cfg.Sinks...)
	}
	if cfg.BufferSize > 0 {
		routerCfg.BufferSize = cfg.BufferSize
	}
	routerCfg.MinimumSeverity = parseSeverity(cfg.MinSeverity)
	routerCfg.JSON.FilePath = cfg.FilePath

	var named []logging.NamedSink
	if routerCfg.HasSink("console") {
		named = append(named, logging.NamedSink{
			Name: "console",
			Sink: sinks.NewConsoleSink(os.Stdout, routerCfg.Console),
		})
	}
	if routerCfg.HasSink("memory") {
		named = append(named, logging.NamedSink{Name: "memory", Sink: sinks.NewMemorySink()})
	}
	if routerCfg.HasSink("json") {
		jsonSink, err := sinks.NewJSONSink(routerCfg.JSON)
		if err != nil {
			return nil, err
		}
		named = append(named, logging.NamedSink{Name: "json", Sink: jsonSink})
	}
	return logging.NewRouter(logging.SystemClock{}, routerCfg, named)
}

func parseSeverity(name string) logging.Severity {
	switch strings.ToLower(name) {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}

func buildTileMap(cfg config.WorldConfig) (*sim.TileMap, error) {
	if len(cfg.MapRows) == 0 {
		return sim.NewDefaultTileMap(), nil
	}
	tiles, err := sim.ParseTileMap(cfg.MapRows)
	if err != nil {
		return nil, fmt.Errorf("world.mapRows: %w", err)
	}
	return tiles, nil
}

func buildTemplates(cfg config.WorldConfig, tiles *sim.TileMap) (*sim.TemplateStore, error) {
	store := sim.NewTemplateStore()
	for _, e := range cfg.Enemies {
		kind := sim.EnemyKindFalling
		if strings.EqualFold(e.Kind, string(sim.EnemyKindOscillating)) {
			kind = sim.EnemyKindOscillating
		}
		store.AddEnemy(sim.EnemySpec{Kind: kind, X: e.X, Y: e.Y})
	}
	for _, f := range cfg.Fruits {
		if !tiles.IsWalkable(f.X, f.Y) {
			return nil, fmt.Errorf("world.fruits: tile (%d,%d) cannot hold a fruit", f.X, f.Y)
		}
		if err := store.AddFruit(sim.FruitSpec{X: f.X, Y: f.Y, Points: f.Points}); err != nil {
			return nil, fmt.Errorf("world.fruits: %w", err)
		}
	}
	return store, nil
}
