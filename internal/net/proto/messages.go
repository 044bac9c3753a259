// Package proto implements the newline-terminated ASCII wire protocol shared
// by the TCP and WebSocket transports.
package proto

import (
	"fmt"
	"strconv"
	"strings"

	"vine-and-dine/server/internal/sim"
)

// Protocol-level ERR codes. State-level codes come from the input gate.
const (
	CodeUnknown       = "UNKNOWN"
	CodeBadInput      = "BAD_INPUT"
	CodeBadSpectate   = "BAD_SPECTATE"
	CodeAlreadyJoined = "ALREADY_JOINED"
)

// CommandType enumerates the client line commands.
type CommandType string

const (
	CmdJoin        CommandType = "JOIN"
	CmdInput       CommandType = "INPUT"
	CmdSpectate    CommandType = "SPECTATE"
	CmdListPlayers CommandType = "LIST_PLAYERS"
	CmdPing        CommandType = "PING"
	CmdQuit        CommandType = "QUIT"
)

// ClientCommand is one parsed client line.
type ClientCommand struct {
	Type     CommandType
	Name     string
	Seq      int
	DX       int
	DY       int
	PlayerID int
}

// ParseClientLine parses a raw client line. On failure it returns the ERR
// code the connection should answer with.
func ParseClientLine(line string) (ClientCommand, string) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return ClientCommand{}, CodeUnknown
	}
	switch strings.ToUpper(fields[0]) {
	case string(CmdJoin):
		name := strings.TrimSpace(trimmed[len(fields[0]):])
		if name == "" {
			return ClientCommand{}, CodeBadInput
		}
		return ClientCommand{Type: CmdJoin, Name: name}, ""
	case string(CmdInput):
		if len(fields) < 4 {
			return ClientCommand{}, CodeBadInput
		}
		seq, err1 := strconv.Atoi(fields[1])
		dx, err2 := strconv.Atoi(fields[2])
		dy, err3 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return ClientCommand{}, CodeBadInput
		}
		return ClientCommand{Type: CmdInput, Seq: seq, DX: dx, DY: dy}, ""
	case string(CmdSpectate):
		if len(fields) < 2 {
			return ClientCommand{}, CodeBadSpectate
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return ClientCommand{}, CodeBadSpectate
		}
		return ClientCommand{Type: CmdSpectate, PlayerID: id}, ""
	case string(CmdListPlayers):
		return ClientCommand{Type: CmdListPlayers}, ""
	case string(CmdPing):
		return ClientCommand{Type: CmdPing}, ""
	case string(CmdQuit):
		return ClientCommand{Type: CmdQuit}, ""
	default:
		return ClientCommand{}, CodeUnknown
	}
}

func Welcome() string { return "WELCOME\n" }

func Joined(id int) string { return fmt.Sprintf("JOINED %d\n", id) }

func Pong() string { return "PONG\n" }

func Bye() string { return "BYE\n" }

func End(id int) string { return fmt.Sprintf("END %d\n", id) }

func Err(code string) string { return fmt.Sprintf("ERR %s\n", code) }

func SpectateOK(id int) string { return fmt.Sprintf("SPECTATE_OK %d\n", id) }

func SpectateWait(id int) string { return fmt.Sprintf("SPECTATE_WAIT %d\n", id) }

// MapBlock renders the MAP_SIZE/MAP_ROW/MAP_END description of the level.
func MapBlock(m *sim.TileMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MAP_SIZE %d %d\n", m.Width(), m.Height())
	for y, row := range m.Rows() {
		fmt.Fprintf(&b, "MAP_ROW %d %s\n", y, row)
	}
	b.WriteString("MAP_END\n")
	return b.String()
}

// StateLine renders the per-tick snapshot of one player.
func StateLine(tick uint64, p sim.Player) string {
	return fmt.Sprintf("STATE %d %d %d %d %d %d %d %t\n",
		tick, p.ID, p.X, p.Y, p.Score, p.Round, p.Lives, p.GameOver)
}

// FruitsBlock renders a full fruit snapshot for one player's session.
func FruitsBlock(id int, fruits []sim.Fruit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FRUITS_BEGIN %d\n", id)
	for _, f := range fruits {
		fmt.Fprintf(&b, "FRUIT %d %d %d\n", f.X, f.Y, f.Points)
	}
	fmt.Fprintf(&b, "FRUITS_END %d\n", id)
	return b.String()
}

// EnemiesBlock renders a full enemy snapshot for one player's session.
func EnemiesBlock(id int, enemies []sim.EnemyView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ENEMIES_BEGIN %d\n", id)
	for _, e := range enemies {
		fmt.Fprintf(&b, "ENEMY %s %d %d\n", e.Kind, e.X, e.Y)
	}
	fmt.Fprintf(&b, "ENEMIES_END %d\n", id)
	return b.String()
}

// PlayersBlock renders the LIST_PLAYERS response.
func PlayersBlock(players []sim.Player) string {
	var b strings.Builder
	b.WriteString("PLAYERS_BEGIN\n")
	for _, p := range players {
		fmt.Fprintf(&b, "PLAYER %d %s\n", p.ID, p.Name)
	}
	b.WriteString("PLAYERS_END\n")
	return b.String()
}
