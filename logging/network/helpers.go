package network

import (
	"context"

	"vine-and-dine/server/logging"
)

const (
	// EventClientConnected is emitted when a transport accepts a connection.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a connection is torn down.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
	// EventAdminCommandFailed is emitted when an admin line fails to parse.
	EventAdminCommandFailed logging.EventType = "network.admin_command_failed"
)

type ClientDisconnectedPayload struct {
	Reason string `json:"reason"`
}

type AdminCommandFailedPayload struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

func ClientConnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type: EventClientConnected, Actor: actor,
		Severity: logging.SeverityDebug, Category: logging.CategoryNetwork,
	})
}

func ClientDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ClientDisconnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type: EventClientDisconnected, Actor: actor,
		Severity: logging.SeverityDebug, Category: logging.CategoryNetwork,
		Payload: payload,
	})
}

func AdminCommandFailed(ctx context.Context, pub logging.Publisher, payload AdminCommandFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:  EventAdminCommandFailed,
		Actor: logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn, Category: logging.CategoryNetwork,
		Payload: payload,
	})
}
