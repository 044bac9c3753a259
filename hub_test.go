package server

import (
	"strings"
	"sync"
	"testing"
	"time"

	"vine-and-dine/server/internal/net/intake"
	"vine-and-dine/server/internal/sim"
)

// testRows mirrors the simulation tests: water bottom-right, goal at (5,1).
var testRows = []string{
	"TTTTTTTW",
	"S....G..",
	"..|=....",
	"..|.....",
	"..|.....",
}

type fakeObserver struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func (f *fakeObserver) SendLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeObserver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeObserver) all() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.lines, "")
}

func (f *fakeObserver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	tiles, err := sim.ParseTileMap(testRows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return NewHub(tiles, sim.NewTemplateStore(), sim.DefaultWorldConfig(),
		sim.LoopConfig{TickInterval: time.Hour, InputCapacity: 16, PerPlayerLimit: 4},
		sim.Deps{}, nil)
}

func tick(h *Hub) {
	h.advance(sim.LoopTickContext{Now: time.Now()}, nil)
}

func TestJoinSendsFullSnapshot(t *testing.T) {
	h := newTestHub(t)
	obs := &fakeObserver{}

	if code := h.Join(obs, "mario"); code != "" {
		t.Fatalf("join code = %q", code)
	}
	payload := obs.all()
	for _, want := range []string{"JOINED 1\n", "MAP_SIZE 8 5\n", "MAP_END\n", "STATE 0 1 0 1 0 1 3 false\n", "FRUITS_BEGIN 1\n", "ENEMIES_BEGIN 1\n"} {
		if !strings.Contains(payload, want) {
			t.Fatalf("join payload missing %q:\n%s", want, payload)
		}
	}
}

func TestJoinTwiceRejected(t *testing.T) {
	h := newTestHub(t)
	obs := &fakeObserver{}
	h.Join(obs, "mario")
	if code := h.Join(obs, "mario"); code != "ALREADY_JOINED" {
		t.Fatalf("second join code = %q", code)
	}
}

func TestStageInputRequiresJoin(t *testing.T) {
	h := newTestHub(t)
	obs := &fakeObserver{}
	if code := h.StageInput(obs, 1, 1, 0); code != sim.InputRejectNotPlayer {
		t.Fatalf("code = %q, want %q", code, sim.InputRejectNotPlayer)
	}

	h.Join(obs, "mario")
	if code := h.StageInput(obs, 1, 1, 0); code != "" {
		t.Fatalf("valid input rejected with %q", code)
	}
	if h.loop.Pending() != 1 {
		t.Fatalf("pending = %d, want the staged input", h.loop.Pending())
	}
	if code := h.StageInput(obs, 2, 4, 0); code != sim.InputRejectStepTooBig {
		t.Fatalf("oversized delta code = %q", code)
	}
}

func TestAdvanceBroadcastsToPlayerAndSpectators(t *testing.T) {
	h := newTestHub(t)
	player := &fakeObserver{}
	spectator := &fakeObserver{}

	h.Join(player, "mario")
	if code := h.Spectate(spectator, 1); code != "" {
		t.Fatalf("spectate code = %q", code)
	}
	if !strings.Contains(spectator.all(), "SPECTATE_OK 1\n") {
		t.Fatalf("active spectate should ack immediately:\n%s", spectator.all())
	}

	tick(h)
	for _, obs := range []*fakeObserver{player, spectator} {
		if !strings.Contains(obs.all(), "STATE 1 1 ") {
			t.Fatalf("missing tick state line:\n%s", obs.all())
		}
	}
}

func TestSpectateUnknownIDWaitsUntilJoin(t *testing.T) {
	h := newTestHub(t)
	spectator := &fakeObserver{}

	if code := h.Spectate(spectator, 1); code != "" {
		t.Fatalf("spectate code = %q", code)
	}
	if got := spectator.all(); got != "SPECTATE_WAIT 1\n" {
		t.Fatalf("waiting spectator saw %q", got)
	}

	player := &fakeObserver{}
	h.Join(player, "mario") // gets id 1, activates the waiter
	payload := spectator.all()
	if !strings.Contains(payload, "SPECTATE_OK 1\n") || !strings.Contains(payload, "MAP_SIZE 8 5\n") {
		t.Fatalf("activation payload missing ack or map:\n%s", payload)
	}
}

func TestSpectateRejectsPlayersAndBadIDs(t *testing.T) {
	h := newTestHub(t)
	obs := &fakeObserver{}
	h.Join(obs, "mario")
	if code := h.Spectate(obs, 1); code != "BAD_SPECTATE" {
		t.Fatalf("player spectating got %q", code)
	}
	if code := h.Spectate(&fakeObserver{}, 0); code != "BAD_SPECTATE" {
		t.Fatalf("id 0 got %q", code)
	}
}

func TestDropPlayerEndsSessionAndNotifiesSpectators(t *testing.T) {
	h := newTestHub(t)
	player := &fakeObserver{}
	spectator := &fakeObserver{}
	h.Join(player, "mario")
	h.Spectate(spectator, 1)

	h.DropObserver(player, "client_closed")

	if len(h.Players()) != 0 {
		t.Fatalf("player survived the drop")
	}
	if !strings.Contains(spectator.all(), "END 1\n") {
		t.Fatalf("spectator not told the session ended:\n%s", spectator.all())
	}

	// The dead session broadcasts nothing further.
	before := spectator.count()
	tick(h)
	if spectator.count() != before {
		t.Fatalf("spectator still receiving after END")
	}
}

func TestDropSpectatorLeavesPlayerAlone(t *testing.T) {
	h := newTestHub(t)
	player := &fakeObserver{}
	spectator := &fakeObserver{}
	h.Join(player, "mario")
	h.Spectate(spectator, 1)

	h.DropObserver(spectator, "client_closed")
	if len(h.Players()) != 1 {
		t.Fatalf("dropping a spectator removed the player")
	}

	before := spectator.count()
	tick(h)
	if spectator.count() != before {
		t.Fatalf("dropped spectator still receiving")
	}
	if !strings.Contains(player.all(), "STATE 1 1 ") {
		t.Fatalf("player missed the tick broadcast")
	}
}

func TestDispatchThroughIntake(t *testing.T) {
	h := newTestHub(t)
	obs := &fakeObserver{}

	if quit := intake.Dispatch(h, obs, "PING"); quit {
		t.Fatalf("ping should not quit")
	}
	if !strings.Contains(obs.all(), "PONG\n") {
		t.Fatalf("no pong:\n%s", obs.all())
	}

	intake.Dispatch(h, obs, "JOIN mario")
	intake.Dispatch(h, obs, "LIST_PLAYERS")
	if !strings.Contains(obs.all(), "PLAYER 1 mario\n") {
		t.Fatalf("list missing player:\n%s", obs.all())
	}

	intake.Dispatch(h, obs, "INPUT 1 9 0")
	if !strings.Contains(obs.all(), "ERR STEP_TOO_BIG\n") {
		t.Fatalf("oversized input not rejected:\n%s", obs.all())
	}
	intake.Dispatch(h, obs, "WIBBLE")
	if !strings.Contains(obs.all(), "ERR UNKNOWN\n") {
		t.Fatalf("unknown command not rejected:\n%s", obs.all())
	}

	if quit := intake.Dispatch(h, obs, "QUIT"); !quit {
		t.Fatalf("quit should close the loop")
	}
	if !strings.Contains(obs.all(), "BYE\n") {
		t.Fatalf("no farewell:\n%s", obs.all())
	}
}

func TestHubStats(t *testing.T) {
	h := newTestHub(t)
	h.Join(&fakeObserver{}, "mario")
	h.Spectate(&fakeObserver{}, 1)
	h.Spectate(&fakeObserver{}, 9)

	stats := h.Stats()
	if stats.Players != 1 || stats.Spectators != 1 || stats.Waiting != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
