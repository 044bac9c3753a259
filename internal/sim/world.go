package sim

import (
	"sort"
)

// Input gate rejection reasons surfaced to the protocol layer as ERR codes.
const (
	InputRejectNotPlayer  = "NOT_PLAYER"
	InputRejectGameOver   = "GAME_OVER"
	InputRejectStepTooBig = "STEP_TOO_BIG"
)

// Player is the broadcast snapshot of one joined player.
type Player struct {
	ID       int
	Name     string
	X        int
	Y        int
	Score    int
	Round    int
	Lives    int
	GameOver bool
	LastAck  int
}

type playerState struct {
	Player
}

// EnemyView is the broadcast snapshot of one enemy.
type EnemyView struct {
	Kind EnemyKind
	X    int
	Y    int
}

// WorldConfig tunes session defaults and broadcast cadence.
type WorldConfig struct {
	StartLives          int
	StartRound          int
	EnemyBroadcastEvery int
}

// DefaultWorldConfig mirrors the original game's session defaults.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		StartLives:          3,
		StartRound:          1,
		EnemyBroadcastEvery: 2,
	}
}

// FruitPickup records one consumed fruit for logging.
type FruitPickup struct {
	PlayerID int
	Fruit    Fruit
}

// EnemyRemoval records one pruned enemy for logging.
type EnemyRemoval struct {
	PlayerID int
	Kind     EnemyKind
	X        int
	Y        int
}

// StepResult is everything the broadcast layer needs after one tick.
type StepResult struct {
	Tick    uint64
	Players []Player

	// FruitRefresh lists players whose fruit list changed and must be
	// broadcast immediately. EnemyRefresh lists players due an enemy
	// snapshot, either because the session went dirty or because the
	// every-N-ticks cadence came up.
	FruitRefresh []int
	EnemyRefresh []int

	Hits           []int
	GameOvers      []int
	GoalsReached   []int
	Pickups        []FruitPickup
	RemovedEnemies []EnemyRemoval
}

// World owns all joined players and their sessions. Every mutating method is
// expected to run under the hub's lock: the tick thread per tick, the admin
// thread per command.
type World struct {
	tiles     *TileMap
	factory   Factory
	templates *TemplateStore
	cfg       WorldConfig
	deps      Deps

	players  map[int]*playerState
	sessions map[int]*GameSession
	nextID   int
	tick     uint64
}

// NewWorld builds an empty world over the given map, factory and templates.
func NewWorld(tiles *TileMap, factory Factory, templates *TemplateStore, cfg WorldConfig, deps Deps) *World {
	if cfg.StartLives <= 0 {
		cfg.StartLives = 3
	}
	if cfg.StartRound <= 0 {
		cfg.StartRound = 1
	}
	return &World{
		tiles:     tiles,
		factory:   factory,
		templates: templates,
		cfg:       cfg,
		deps:      deps,
		players:   make(map[int]*playerState),
		sessions:  make(map[int]*GameSession),
		nextID:    1,
	}
}

// TileMap exposes the static terrain grid.
func (w *World) TileMap() *TileMap { return w.tiles }

// Templates exposes the admin template store.
func (w *World) Templates() *TemplateStore { return w.templates }

// Tick reports the current tick sequence.
func (w *World) Tick() uint64 { return w.tick }

// AddPlayer registers a new player with a freshly cloned session and places
// them at the spawn tile.
func (w *World) AddPlayer(name string) Player {
	id := w.nextID
	w.nextID++

	session := NewGameSession(id, w.tiles)
	w.templates.CloneInto(session, w.factory)

	state := &playerState{Player: Player{
		ID:    id,
		Name:  name,
		X:     session.SpawnX,
		Y:     session.SpawnY,
		Lives: w.cfg.StartLives,
		Round: w.cfg.StartRound,
	}}
	w.players[id] = state
	w.sessions[id] = session
	return state.Player
}

// RemovePlayer discards the player and their session. No partial-session
// artifacts survive teardown.
func (w *World) RemovePlayer(id int) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	delete(w.sessions, id)
	return true
}

// HasPlayer reports whether the id is currently joined.
func (w *World) HasPlayer(id int) bool {
	_, ok := w.players[id]
	return ok
}

// PlayerSnapshot returns the current snapshot for one player.
func (w *World) PlayerSnapshot(id int) (Player, bool) {
	state, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return state.Player, true
}

// Players returns snapshots of all joined players ordered by id.
func (w *World) Players() []Player {
	out := make([]Player, 0, len(w.players))
	for _, state := range w.players {
		out = append(out, state.Player)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FruitsOf returns a copy of the session's fruit list.
func (w *World) FruitsOf(id int) []Fruit {
	session, ok := w.sessions[id]
	if !ok {
		return nil
	}
	return append([]Fruit(nil), session.Fruits...)
}

// EnemiesOf returns broadcast views of the session's enemies.
func (w *World) EnemiesOf(id int) []EnemyView {
	session, ok := w.sessions[id]
	if !ok {
		return nil
	}
	views := make([]EnemyView, 0, len(session.Enemies))
	for _, e := range session.Enemies {
		x, y := e.Position()
		views = append(views, EnemyView{Kind: e.Kind(), X: x, Y: y})
	}
	return views
}

// GateInput validates and normalizes a raw intent before it may be staged.
// Illegal vertical moves are coerced to no-ops rather than rejected; a
// coerced-to-zero intent returns ok=false with an empty reason and is simply
// not enqueued.
func (w *World) GateInput(id, seq, dx, dy int) (InputEvent, bool, string) {
	state, ok := w.players[id]
	if !ok {
		return InputEvent{}, false, InputRejectNotPlayer
	}
	if state.GameOver {
		return InputEvent{}, false, InputRejectGameOver
	}
	if abs(dx) > 3 || abs(dy) > 1 {
		return InputEvent{}, false, InputRejectStepTooBig
	}
	// Diagonal jumps use dx=±2; without the upward component they are void.
	if abs(dx) == 2 && dy != 1 {
		dx = 0
	}
	if dy > 0 && !w.tiles.CanMoveUp(state.X, state.Y) {
		dx = 0
		dy = 0
	}
	if dx == 0 && dy == 0 {
		return InputEvent{}, false, ""
	}
	return InputEvent{PlayerID: id, Seq: seq, DX: dx, DY: dy}, true, ""
}

// Step advances the whole simulation by one tick: merge staged inputs, apply
// movement, gravity and hazards, step every session's enemies, resolve fruit
// pickups and goal progression.
func (w *World) Step(events []InputEvent) StepResult {
	w.tick++
	result := StepResult{Tick: w.tick}

	jumped := w.applyInputs(MergeInputs(events))

	ids := make([]int, 0, len(w.sessions))
	for id := range w.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		w.stepSession(id, jumped[id], &result)
	}

	for _, id := range ids {
		session := w.sessions[id]
		if session == nil {
			continue
		}
		if session.EnemiesDirty() {
			session.clearEnemiesDirty()
			result.EnemyRefresh = append(result.EnemyRefresh, id)
		} else if w.cfg.EnemyBroadcastEvery > 0 && w.tick%uint64(w.cfg.EnemyBroadcastEvery) == 0 {
			result.EnemyRefresh = append(result.EnemyRefresh, id)
		}
	}

	result.Players = w.Players()
	return result
}

// applyInputs executes at most one merged move per player and reports who
// made a net upward move this tick.
func (w *World) applyInputs(best map[int]InputEvent) map[int]bool {
	jumped := make(map[int]bool, len(best))
	for id, ev := range best {
		state, ok := w.players[id]
		if !ok || state.GameOver {
			continue
		}
		oldY := state.Y
		nx := clampInt(state.X+ev.DX, w.tiles.MinX(), w.tiles.MaxX())
		ny := clampInt(state.Y+ev.DY, w.tiles.MinY(), w.tiles.MaxY())
		// Walls block outright: revert, no partial slide.
		if w.tiles.IsWall(nx, ny) {
			nx = state.X
			ny = state.Y
		}
		state.X = nx
		state.Y = ny
		if ev.Seq > state.LastAck {
			state.LastAck = ev.Seq
		}
		if ny > oldY {
			jumped[id] = true
		}
	}
	return jumped
}

// stepSession runs gravity, enemies, fruit and goal logic for one session.
// A fault in one session is isolated so it cannot stall the shared clock.
func (w *World) stepSession(id int, jumped bool, result *StepResult) {
	defer func() {
		if r := recover(); r != nil && w.deps.Logger != nil {
			w.deps.Logger.Printf("session %d step panicked: %v", id, r)
		}
	}()

	state := w.players[id]
	session := w.sessions[id]
	if state == nil || session == nil {
		return
	}

	hitThisTick := false

	// Gravity: free-fall one tile per tick unless the player jumped or has
	// footing. Landing in water counts as a hit.
	if !state.GameOver && !jumped {
		if state.Y > w.tiles.MinY() && !w.tiles.HasSolidBelow(state.X, state.Y) {
			state.Y--
		}
		if w.tiles.IsWater(state.X, state.Y) {
			w.resolveHit(state, session, result)
			hitThisTick = true
		}
	}

	// Enemies advance one machine step each; inactive ones are pruned and
	// any visible change marks the session dirty.
	kept := session.Enemies[:0]
	for _, e := range session.Enemies {
		oldX, oldY := e.Position()
		e.Step(w.tiles.MinY(), w.tiles.MaxY(), state.Round)
		if !e.Active() {
			x, y := e.Position()
			result.RemovedEnemies = append(result.RemovedEnemies, EnemyRemoval{
				PlayerID: id, Kind: e.Kind(), X: x, Y: y,
			})
			session.MarkEnemiesDirty()
			continue
		}
		kept = append(kept, e)
		x, y := e.Position()
		if x != oldX || y != oldY {
			session.MarkEnemiesDirty()
		}
		if !hitThisTick && !state.GameOver && x == state.X && y == state.Y {
			w.resolveHit(state, session, result)
			hitThisTick = true
		}
	}
	session.Enemies = kept

	// Fruit pickup: exact-tile match, removed on consumption, broadcast
	// immediately so observers see each pickup exactly once.
	if !state.GameOver {
		fruitsChanged := false
		keptFruits := session.Fruits[:0]
		for _, f := range session.Fruits {
			if f.X == state.X && f.Y == state.Y {
				state.Score += f.Points
				fruitsChanged = true
				result.Pickups = append(result.Pickups, FruitPickup{PlayerID: id, Fruit: f})
				continue
			}
			keptFruits = append(keptFruits, f)
		}
		session.Fruits = keptFruits
		if fruitsChanged {
			result.FruitRefresh = append(result.FruitRefresh, id)
		}
	}

	// Goal: advance the round, award a life, respawn and refresh fruits
	// from the current templates.
	if !state.GameOver && w.tiles.TileAt(state.X, state.Y) == TileGoal {
		state.Round++
		state.Lives++
		state.X = session.SpawnX
		state.Y = session.SpawnY
		state.GameOver = false
		w.templates.ResetFruits(session, w.factory)
		result.GoalsReached = append(result.GoalsReached, id)
		result.FruitRefresh = append(result.FruitRefresh, id)
	}
}

// resolveHit applies the water/enemy hit rules: lose a life and respawn, or
// freeze in place on game over.
func (w *World) resolveHit(state *playerState, session *GameSession, result *StepResult) {
	if state.Lives > 0 {
		state.Lives--
	}
	result.Hits = append(result.Hits, state.ID)
	if state.Lives <= 0 {
		state.GameOver = true
		result.GameOvers = append(result.GameOvers, state.ID)
		return
	}
	state.X = session.SpawnX
	state.Y = session.SpawnY
	state.GameOver = false
}

// AddSessionEnemy injects an enemy into one live session (admin override).
func (w *World) AddSessionEnemy(id int, spec EnemySpec) bool {
	session, ok := w.sessions[id]
	if !ok {
		return false
	}
	session.Enemies = append(session.Enemies, w.factory.CreateEnemy(spec.Kind, spec.X, spec.Y))
	return true
}

// AddSessionFruit injects a fruit into one live session (admin override).
func (w *World) AddSessionFruit(id int, spec FruitSpec) bool {
	session, ok := w.sessions[id]
	if !ok {
		return false
	}
	session.Fruits = append(session.Fruits, w.factory.CreateFruit(spec.X, spec.Y, spec.Points))
	return true
}

// RemoveSessionFruit deletes fruits at (x,y) from one live session.
func (w *World) RemoveSessionFruit(id, x, y int) (int, bool) {
	session, ok := w.sessions[id]
	if !ok {
		return 0, false
	}
	kept := session.Fruits[:0]
	removed := 0
	for _, f := range session.Fruits {
		if f.X == x && f.Y == y {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	session.Fruits = kept
	return removed, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
