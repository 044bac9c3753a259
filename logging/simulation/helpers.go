package simulation

import (
	"context"

	"vine-and-dine/server/logging"
)

const (
	// EventPlayerHit is emitted when water or an enemy costs a life.
	EventPlayerHit logging.EventType = "simulation.player_hit"
	// EventGameOver is emitted when a player runs out of lives.
	EventGameOver logging.EventType = "simulation.game_over"
	// EventRoundAdvanced is emitted when a player reaches the goal tile.
	EventRoundAdvanced logging.EventType = "simulation.round_advanced"
	// EventFruitPicked is emitted for every consumed fruit.
	EventFruitPicked logging.EventType = "simulation.fruit_picked"
	// EventEnemyRemoved is emitted when an inactive enemy is pruned.
	EventEnemyRemoved logging.EventType = "simulation.enemy_removed"
)

type FruitPickedPayload struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Points int `json:"points"`
}

type EnemyRemovedPayload struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type RoundAdvancedPayload struct {
	Round int `json:"round"`
	Lives int `json:"lives"`
}

func PlayerHit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	publish(ctx, pub, logging.Event{
		Type: EventPlayerHit, Tick: tick, Actor: actor,
		Severity: logging.SeverityInfo, Category: logging.CategorySimulation,
	})
}

func GameOver(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	publish(ctx, pub, logging.Event{
		Type: EventGameOver, Tick: tick, Actor: actor,
		Severity: logging.SeverityInfo, Category: logging.CategorySimulation,
	})
}

func RoundAdvanced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundAdvancedPayload) {
	publish(ctx, pub, logging.Event{
		Type: EventRoundAdvanced, Tick: tick, Actor: actor,
		Severity: logging.SeverityInfo, Category: logging.CategorySimulation,
		Payload: payload,
	})
}

func FruitPicked(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FruitPickedPayload) {
	publish(ctx, pub, logging.Event{
		Type: EventFruitPicked, Tick: tick, Actor: actor,
		Severity: logging.SeverityInfo, Category: logging.CategorySimulation,
		Payload: payload,
	})
}

func EnemyRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EnemyRemovedPayload) {
	publish(ctx, pub, logging.Event{
		Type: EventEnemyRemoved, Tick: tick, Actor: actor,
		Severity: logging.SeverityDebug, Category: logging.CategorySimulation,
		Payload: payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
