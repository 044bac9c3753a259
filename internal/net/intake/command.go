// Package intake turns raw client lines into gateway calls. Both transports
// feed it, so TCP and WebSocket clients speak the exact same protocol.
package intake

import (
	"vine-and-dine/server/internal/net/proto"
	"vine-and-dine/server/internal/sim"
)

// Observer is one connected client endpoint. SendLine must be safe to call
// from the tick goroutine and the connection goroutine concurrently.
type Observer interface {
	SendLine(line string) error
	Close() error
}

// Gateway is the hub surface the transports need. Successful JOIN and
// SPECTATE calls write their own response payloads to the observer; the
// returned code is non-empty only on failure.
type Gateway interface {
	Join(obs Observer, name string) (errCode string)
	StageInput(obs Observer, seq, dx, dy int) (errCode string)
	Spectate(obs Observer, playerID int) (errCode string)
	Players() []sim.Player
	DropObserver(obs Observer, reason string)
}

// Dispatch handles one client line and reports whether the connection asked
// to close.
func Dispatch(gw Gateway, obs Observer, line string) (quit bool) {
	cmd, errCode := proto.ParseClientLine(line)
	if errCode != "" {
		obs.SendLine(proto.Err(errCode))
		return false
	}
	switch cmd.Type {
	case proto.CmdPing:
		obs.SendLine(proto.Pong())
	case proto.CmdQuit:
		obs.SendLine(proto.Bye())
		return true
	case proto.CmdListPlayers:
		obs.SendLine(proto.PlayersBlock(gw.Players()))
	case proto.CmdJoin:
		if code := gw.Join(obs, cmd.Name); code != "" {
			obs.SendLine(proto.Err(code))
		}
	case proto.CmdInput:
		if code := gw.StageInput(obs, cmd.Seq, cmd.DX, cmd.DY); code != "" {
			obs.SendLine(proto.Err(code))
		}
	case proto.CmdSpectate:
		if code := gw.Spectate(obs, cmd.PlayerID); code != "" {
			obs.SendLine(proto.Err(code))
		}
	}
	return false
}
