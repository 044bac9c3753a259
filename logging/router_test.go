package logging_test

import (
	"context"
	"testing"
	"time"

	"vine-and-dine/server/logging"
	"vine-and-dine/server/logging/sinks"
)

func newRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.MemorySink) {
	t.Helper()
	memory := sinks.NewMemorySink()
	clock := logging.ClockFunc(func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	})
	router, err := logging.NewRouter(clock, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router, memory
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRouterDeliversToSinks(t *testing.T) {
	router, memory := newRouter(t, logging.Config{BufferSize: 16})

	router.Publish(context.Background(), logging.Event{
		Type:     "simulation.player_hit",
		Tick:     7,
		Actor:    logging.PlayerRef("1"),
		Severity: logging.SeverityInfo,
	})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("memory sink holds %d events, want 1", len(events))
	}
	got := events[0]
	if got.Type != "simulation.player_hit" || got.Tick != 7 {
		t.Fatalf("event = %+v", got)
	}
	if got.Time.IsZero() {
		t.Fatalf("router did not stamp the event time")
	}
}

func TestRouterHonorsSeverityFloor(t *testing.T) {
	router, memory := newRouter(t, logging.Config{
		BufferSize:      16,
		MinimumSeverity: logging.SeverityWarn,
	})

	router.Publish(context.Background(), logging.Event{Type: "network.client_connected", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "simulation.game_over", Severity: logging.SeverityWarn})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "simulation.game_over" {
		t.Fatalf("events = %+v, want only the warning", events)
	}
}

func TestRouterEnrichesWithStaticFields(t *testing.T) {
	router, memory := newRouter(t, logging.Config{
		BufferSize: 16,
		Fields:     map[string]any{"instance": "test-1"},
	})

	router.Publish(context.Background(), logging.Event{Type: "lifecycle.player_joined", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Extra["instance"] != "test-1" {
		t.Fatalf("extra = %+v, want the static field", events[0].Extra)
	}
}

func TestRouterIgnoresUntypedAndPostCloseEvents(t *testing.T) {
	router, memory := newRouter(t, logging.Config{BufferSize: 16})

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityInfo})
	closeRouter(t, router)
	router.Publish(context.Background(), logging.Event{Type: "lifecycle.player_joined", Severity: logging.SeverityInfo})

	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}
