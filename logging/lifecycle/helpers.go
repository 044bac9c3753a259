package lifecycle

import (
	"context"

	"vine-and-dine/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player joins and a session is cloned.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventSessionEnded is emitted when a player's session is torn down.
	EventSessionEnded logging.EventType = "lifecycle.session_ended"
	// EventSpectatorAttached is emitted when a spectator starts observing a player.
	EventSpectatorAttached logging.EventType = "lifecycle.spectator_attached"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	Name    string `json:"name"`
	SpawnX  int    `json:"spawnX"`
	SpawnY  int    `json:"spawnY"`
	Enemies int    `json:"enemies"`
	Fruits  int    `json:"fruits"`
}

// SessionEndedPayload captures why a session went away.
type SessionEndedPayload struct {
	Reason string `json:"reason"`
}

// SpectatorAttachedPayload records whether the spectator had been waiting.
type SpectatorAttachedPayload struct {
	Waited bool `json:"waited"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// SessionEnded publishes a session teardown event.
func SessionEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionEndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// SpectatorAttached publishes a spectator activation event.
func SpectatorAttached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload SpectatorAttachedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSpectatorAttached,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
