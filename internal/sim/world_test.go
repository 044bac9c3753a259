package sim

import "testing"

// worldRows places water in the bottom-right corner, the goal on the walkway,
// and a platform ceiling over x=3.
var worldRows = []string{
	"TTTTTTTW", // y=0
	"S....G..", // y=1
	"..|=....", // y=2
	"..|.....", // y=3
	"..|.....", // y=4
}

func newTestWorld(t *testing.T, cfg WorldConfig) (*World, *TemplateStore) {
	t.Helper()
	tiles, err := ParseTileMap(worldRows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	templates := NewTemplateStore()
	world := NewWorld(tiles, NewDefaultFactory(tiles), templates, cfg, Deps{})
	return world, templates
}

func move(w *World, id, seq, dx, dy int) StepResult {
	return w.Step([]InputEvent{{PlayerID: id, Seq: seq, DX: dx, DY: dy}})
}

func mustSnapshot(t *testing.T, w *World, id int) Player {
	t.Helper()
	p, ok := w.PlayerSnapshot(id)
	if !ok {
		t.Fatalf("player %d missing", id)
	}
	return p
}

func TestAddPlayerStartsAtSpawn(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")
	if p.X != 0 || p.Y != 1 {
		t.Fatalf("spawned at (%d,%d), want (0,1)", p.X, p.Y)
	}
	if p.Lives != 3 || p.Round != 1 || p.Score != 0 || p.GameOver {
		t.Fatalf("bad initial snapshot: %+v", p)
	}
	if !w.HasPlayer(p.ID) {
		t.Fatalf("player not registered")
	}
}

func TestPositionStaysInBounds(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")

	for seq := 1; seq <= 10; seq++ {
		move(w, p.ID, seq, -3, 0)
	}
	got := mustSnapshot(t, w, p.ID)
	if got.X < 0 || got.Y < 0 {
		t.Fatalf("escaped bounds at (%d,%d)", got.X, got.Y)
	}
	if got.X != 0 {
		t.Fatalf("x=%d after hammering left, want clamp at 0", got.X)
	}
}

func TestWallRevertsMove(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")

	move(w, p.ID, 1, 1, 0) // (1,1), standing on ground
	move(w, p.ID, 2, 0, -1)
	got := mustSnapshot(t, w, p.ID)
	if got.X != 1 || got.Y != 1 {
		t.Fatalf("at (%d,%d), want move into ground reverted to (1,1)", got.X, got.Y)
	}
}

func TestGravityIntoWaterCostsALife(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")

	move(w, p.ID, 1, 3, 0) // (3,1)
	move(w, p.ID, 2, 3, 0) // (6,1)
	result := move(w, p.ID, 3, 1, 0)

	if len(result.Hits) != 1 || result.Hits[0] != p.ID {
		t.Fatalf("hits = %v, want the faller", result.Hits)
	}
	got := mustSnapshot(t, w, p.ID)
	if got.Lives != 2 {
		t.Fatalf("lives = %d, want 2", got.Lives)
	}
	if got.X != 0 || got.Y != 1 {
		t.Fatalf("at (%d,%d), want respawn at (0,1)", got.X, got.Y)
	}
	if got.GameOver {
		t.Fatalf("game over with lives remaining")
	}
}

func TestFinalLifeFreezesPlayer(t *testing.T) {
	w, _ := newTestWorld(t, WorldConfig{StartLives: 1, StartRound: 1, EnemyBroadcastEvery: 2})
	p := w.AddPlayer("mario")

	move(w, p.ID, 1, 3, 0)
	move(w, p.ID, 2, 3, 0)
	result := move(w, p.ID, 3, 1, 0)

	if len(result.GameOvers) != 1 || result.GameOvers[0] != p.ID {
		t.Fatalf("gameOvers = %v", result.GameOvers)
	}
	got := mustSnapshot(t, w, p.ID)
	if !got.GameOver || got.Lives != 0 {
		t.Fatalf("snapshot %+v, want frozen game over", got)
	}
	// Frozen in place, not respawned.
	if got.X != 7 || got.Y != 0 {
		t.Fatalf("at (%d,%d), want left in the water at (7,0)", got.X, got.Y)
	}

	if _, _, reason := w.GateInput(p.ID, 4, 1, 0); reason != InputRejectGameOver {
		t.Fatalf("gate reason = %q, want %q", reason, InputRejectGameOver)
	}

	// Further ticks change nothing.
	move(w, p.ID, 5, 1, 0)
	after := mustSnapshot(t, w, p.ID)
	if after.X != got.X || after.Y != got.Y {
		t.Fatalf("frozen player moved to (%d,%d)", after.X, after.Y)
	}
}

func TestFruitPickupIsImmediateAndIdempotent(t *testing.T) {
	w, templates := newTestWorld(t, DefaultWorldConfig())
	templates.AddFruit(FruitSpec{X: 1, Y: 1, Points: 50})
	p := w.AddPlayer("mario")

	result := move(w, p.ID, 1, 1, 0)
	if len(result.Pickups) != 1 || result.Pickups[0].Fruit.Points != 50 {
		t.Fatalf("pickups = %+v", result.Pickups)
	}
	if len(result.FruitRefresh) != 1 || result.FruitRefresh[0] != p.ID {
		t.Fatalf("fruitRefresh = %v, want immediate broadcast", result.FruitRefresh)
	}
	if got := mustSnapshot(t, w, p.ID); got.Score != 50 {
		t.Fatalf("score = %d, want 50", got.Score)
	}
	if len(w.FruitsOf(p.ID)) != 0 {
		t.Fatalf("fruit not removed from session")
	}

	// Standing on the same tile again scores nothing.
	result = w.Step(nil)
	if len(result.Pickups) != 0 {
		t.Fatalf("second tick re-picked the fruit: %+v", result.Pickups)
	}
	if got := mustSnapshot(t, w, p.ID); got.Score != 50 {
		t.Fatalf("score drifted to %d", got.Score)
	}
}

func TestGoalAdvancesRoundAndResetsFruits(t *testing.T) {
	w, templates := newTestWorld(t, DefaultWorldConfig())
	templates.AddFruit(FruitSpec{X: 1, Y: 1, Points: 50})
	p := w.AddPlayer("mario")

	move(w, p.ID, 1, 1, 0) // pick up the fruit at (1,1)
	move(w, p.ID, 2, 3, 0) // (4,1)
	result := move(w, p.ID, 3, 1, 0)

	if len(result.GoalsReached) != 1 || result.GoalsReached[0] != p.ID {
		t.Fatalf("goalsReached = %v", result.GoalsReached)
	}
	got := mustSnapshot(t, w, p.ID)
	if got.Round != 2 || got.Lives != 4 {
		t.Fatalf("round=%d lives=%d, want 2 and 4", got.Round, got.Lives)
	}
	if got.X != 0 || got.Y != 1 {
		t.Fatalf("at (%d,%d), want respawn", got.X, got.Y)
	}
	if got.Score != 50 {
		t.Fatalf("score = %d, goal must not reset score", got.Score)
	}
	// Fruits regenerate from the templates.
	if fruits := w.FruitsOf(p.ID); len(fruits) != 1 || fruits[0].Points != 50 {
		t.Fatalf("fruits after goal = %+v", fruits)
	}
}

func TestGateInput(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")

	if _, _, reason := w.GateInput(99, 1, 1, 0); reason != InputRejectNotPlayer {
		t.Fatalf("unknown player reason = %q", reason)
	}
	if _, _, reason := w.GateInput(p.ID, 1, 4, 0); reason != InputRejectStepTooBig {
		t.Fatalf("dx=4 reason = %q", reason)
	}
	if _, _, reason := w.GateInput(p.ID, 1, 0, 2); reason != InputRejectStepTooBig {
		t.Fatalf("dy=2 reason = %q", reason)
	}

	// dx=2 without the upward component collapses to a no-op.
	if _, ok, reason := w.GateInput(p.ID, 1, 2, 0); ok || reason != "" {
		t.Fatalf("dx=2 dy=0 should be a silent no-op, got ok=%v reason=%q", ok, reason)
	}
	// With dy=1 from a supported tile it is a legal diagonal jump.
	ev, ok, _ := w.GateInput(p.ID, 1, 2, 1)
	if !ok || ev.DX != 2 || ev.DY != 1 {
		t.Fatalf("diagonal jump = %+v ok=%v", ev, ok)
	}

	// Jumping under the platform at (3,2) is coerced to nothing.
	move(w, p.ID, 1, 3, 0)
	if _, ok, reason := w.GateInput(p.ID, 2, 0, 1); ok || reason != "" {
		t.Fatalf("blocked jump should be a silent no-op, got ok=%v reason=%q", ok, reason)
	}
}

func TestLastAckTracksHighestSequence(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")

	move(w, p.ID, 5, 1, 0)
	if got := mustSnapshot(t, w, p.ID); got.LastAck != 5 {
		t.Fatalf("lastAck = %d, want 5", got.LastAck)
	}
	move(w, p.ID, 3, 1, 0)
	if got := mustSnapshot(t, w, p.ID); got.LastAck != 5 {
		t.Fatalf("lastAck = %d, must not regress", got.LastAck)
	}
}

func TestFallingEnemyHitsAndIsPruned(t *testing.T) {
	// Round 5 removes the step throttle so the croc moves every tick.
	w, _ := newTestWorld(t, WorldConfig{StartLives: 3, StartRound: 5, EnemyBroadcastEvery: 2})
	p := w.AddPlayer("mario")
	if !w.AddSessionEnemy(p.ID, EnemySpec{Kind: EnemyKindFalling, X: 0, Y: 3}) {
		t.Fatalf("add enemy failed")
	}

	w.Step(nil) // croc to (0,2)
	result := w.Step(nil)
	if len(result.Hits) != 1 {
		t.Fatalf("croc at the player's tile should hit, got %v", result.Hits)
	}
	if got := mustSnapshot(t, w, p.ID); got.Lives != 2 {
		t.Fatalf("lives = %d, want 2", got.Lives)
	}

	result = w.Step(nil) // croc reaches y=0, deactivates
	if len(result.RemovedEnemies) != 1 || result.RemovedEnemies[0].Kind != EnemyKindFalling {
		t.Fatalf("removedEnemies = %+v", result.RemovedEnemies)
	}
	if len(w.EnemiesOf(p.ID)) != 0 {
		t.Fatalf("inactive croc not pruned")
	}
	// Removal bypasses the cadence: refresh on the same tick.
	if len(result.EnemyRefresh) == 0 {
		t.Fatalf("prune did not force an enemy broadcast")
	}
}

func TestSessionOverridesDoNotLeak(t *testing.T) {
	w, templates := newTestWorld(t, DefaultWorldConfig())
	a := w.AddPlayer("a")
	b := w.AddPlayer("b")

	w.AddSessionEnemy(a.ID, EnemySpec{Kind: EnemyKindOscillating, X: 2, Y: 3})
	if len(w.EnemiesOf(b.ID)) != 0 {
		t.Fatalf("enemy leaked into the other session")
	}
	if len(templates.Enemies()) != 0 {
		t.Fatalf("enemy leaked into the templates")
	}

	w.AddSessionFruit(a.ID, FruitSpec{X: 1, Y: 1, Points: 10})
	if removed, _ := w.RemoveSessionFruit(a.ID, 1, 1); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if removed, ok := w.RemoveSessionFruit(99, 1, 1); ok || removed != 0 {
		t.Fatalf("remove for unknown player should fail")
	}
}

func TestEnemyBroadcastCadence(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")

	// No enemies: refresh only on the every-N cadence.
	first := w.Step(nil)
	if len(first.EnemyRefresh) != 0 {
		t.Fatalf("tick 1 refreshed without dirt or cadence: %v", first.EnemyRefresh)
	}
	second := w.Step(nil)
	if len(second.EnemyRefresh) != 1 || second.EnemyRefresh[0] != p.ID {
		t.Fatalf("tick 2 should refresh on cadence, got %v", second.EnemyRefresh)
	}
}

func TestRemovePlayerDiscardsSession(t *testing.T) {
	w, _ := newTestWorld(t, DefaultWorldConfig())
	p := w.AddPlayer("mario")
	w.AddSessionFruit(p.ID, FruitSpec{X: 1, Y: 1, Points: 10})

	if !w.RemovePlayer(p.ID) {
		t.Fatalf("remove failed")
	}
	if w.HasPlayer(p.ID) || w.FruitsOf(p.ID) != nil {
		t.Fatalf("session artifacts survived teardown")
	}
	if w.RemovePlayer(p.ID) {
		t.Fatalf("double remove should report false")
	}
}
