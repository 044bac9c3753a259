package sim

import (
	"fmt"
	"sync"
)

// EnemySpec is the template form of an enemy: enough to rebuild a fresh
// instance through the factory.
type EnemySpec struct {
	Kind EnemyKind
	X    int
	Y    int
}

// FruitSpec is the template form of a fruit.
type FruitSpec struct {
	X      int
	Y      int
	Points int
}

// GameSession is one player's independent slice of the simulation: spawn and
// goal coordinates plus private clones of the template enemies and fruits.
type GameSession struct {
	PlayerID int
	SpawnX   int
	SpawnY   int
	GoalX    int
	GoalY    int

	Enemies []Enemy
	Fruits  []Fruit

	// enemiesDirty marks that enemy state changed since the last broadcast,
	// bypassing the every-N-ticks throttle.
	enemiesDirty bool
}

// NewGameSession creates an empty session anchored at the map's spawn/goal.
func NewGameSession(playerID int, tiles *TileMap) *GameSession {
	s := &GameSession{PlayerID: playerID}
	s.SpawnX, s.SpawnY = tiles.SpawnPoint()
	s.GoalX, s.GoalY = tiles.GoalPoint()
	return s
}

// MarkEnemiesDirty flags the session for an immediate enemy broadcast.
func (s *GameSession) MarkEnemiesDirty() { s.enemiesDirty = true }

// EnemiesDirty reports whether an immediate broadcast is due.
func (s *GameSession) EnemiesDirty() bool { return s.enemiesDirty }

func (s *GameSession) clearEnemiesDirty() { s.enemiesDirty = false }

// TemplateStore holds the administrator-defined baseline enemy and fruit
// lists. The tick thread reads it on every join and goal reset while the
// admin thread writes it, so access is lock-protected.
type TemplateStore struct {
	mu      sync.RWMutex
	enemies []EnemySpec
	fruits  []FruitSpec
}

// NewTemplateStore returns an empty store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{}
}

// AddEnemy appends an enemy template. Only future joins see it.
func (t *TemplateStore) AddEnemy(spec EnemySpec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enemies = append(t.enemies, spec)
}

// AddFruit appends a fruit template. Duplicate positions are rejected so a
// template load never yields two fruits on the same tile.
func (t *TemplateStore) AddFruit(spec FruitSpec) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.fruits {
		if f.X == spec.X && f.Y == spec.Y {
			return fmt.Errorf("template fruit already exists at (%d,%d)", spec.X, spec.Y)
		}
	}
	t.fruits = append(t.fruits, spec)
	return nil
}

// RemoveFruit deletes templates at (x,y), reporting how many were removed.
func (t *TemplateStore) RemoveFruit(x, y int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.fruits[:0]
	removed := 0
	for _, f := range t.fruits {
		if f.X == x && f.Y == y {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	t.fruits = kept
	return removed
}

// Enemies returns a copy of the enemy templates.
func (t *TemplateStore) Enemies() []EnemySpec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]EnemySpec(nil), t.enemies...)
}

// Fruits returns a copy of the fruit templates.
func (t *TemplateStore) Fruits() []FruitSpec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]FruitSpec(nil), t.fruits...)
}

// CloneInto deep-clones the current templates into the session: every entity
// is rebuilt through the factory so later mutation of one session never
// affects another session or the templates themselves.
func (t *TemplateStore) CloneInto(s *GameSession, factory Factory) {
	t.mu.RLock()
	enemies := append([]EnemySpec(nil), t.enemies...)
	fruits := append([]FruitSpec(nil), t.fruits...)
	t.mu.RUnlock()

	s.Enemies = s.Enemies[:0]
	for _, spec := range enemies {
		s.Enemies = append(s.Enemies, factory.CreateEnemy(spec.Kind, spec.X, spec.Y))
	}
	s.Fruits = s.Fruits[:0]
	for _, spec := range fruits {
		s.Fruits = append(s.Fruits, factory.CreateFruit(spec.X, spec.Y, spec.Points))
	}
}

// ResetFruits regenerates only the session's fruits from the current
// templates, used when the player reaches the goal.
func (t *TemplateStore) ResetFruits(s *GameSession, factory Factory) {
	t.mu.RLock()
	fruits := append([]FruitSpec(nil), t.fruits...)
	t.mu.RUnlock()

	s.Fruits = s.Fruits[:0]
	for _, spec := range fruits {
		s.Fruits = append(s.Fruits, factory.CreateFruit(spec.X, spec.Y, spec.Points))
	}
}
