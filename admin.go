package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"vine-and-dine/server/internal/sim"
	"vine-and-dine/server/logging/network"
)

// RunAdminCommand executes one administrator line and returns a short result
// string. Grammar:
//
//	ADMIN CROCODILE <type> <x> [y] [playerId]
//	ADMIN FRUIT CREATE <x> <y> <points> [playerId]
//	ADMIN FRUIT DELETE <x> <y> [playerId]
//
// An omitted playerId targets the templates, affecting only future joins; a
// present playerId mutates that player's live session and pushes an updated
// broadcast to its observers. Parse failures are logged and the server keeps
// running.
func (h *Hub) RunAdminCommand(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "ADMIN") {
		return "", h.adminFail(line, "expected ADMIN <CROCODILE|FRUIT> ...")
	}
	switch strings.ToUpper(fields[1]) {
	case "CROCODILE":
		return h.adminCrocodile(line, fields[2:])
	case "FRUIT":
		return h.adminFruit(line, fields[2:])
	default:
		return "", h.adminFail(line, "unknown admin subject "+fields[1])
	}
}

// adminCrocodile handles `CROCODILE <type> <x> [y] [playerId]`. When y is
// omitted the crocodile enters at the top row.
func (h *Hub) adminCrocodile(line string, args []string) (string, error) {
	if len(args) < 2 || len(args) > 4 {
		return "", h.adminFail(line, "expected CROCODILE <type> <x> [y] [playerId]")
	}
	kind := parseEnemyKind(args[0])
	nums, err := parseInts(args[1:])
	if err != nil {
		return "", h.adminFail(line, err.Error())
	}

	tiles := h.world.TileMap()
	spec := sim.EnemySpec{Kind: kind, X: nums[0], Y: tiles.MaxY()}
	playerID := 0
	switch len(nums) {
	case 2:
		spec.Y = nums[1]
	case 3:
		spec.Y = nums[1]
		playerID = nums[2]
	}
	if spec.X < tiles.MinX() || spec.X > tiles.MaxX() || spec.Y < tiles.MinY() || spec.Y > tiles.MaxY() {
		return "", h.adminFail(line, fmt.Sprintf("crocodile position (%d,%d) out of bounds", spec.X, spec.Y))
	}

	if playerID == 0 {
		h.world.Templates().AddEnemy(spec)
		return fmt.Sprintf("template crocodile %s at (%d,%d)", spec.Kind, spec.X, spec.Y), nil
	}

	h.mu.Lock()
	ok := h.world.AddSessionEnemy(playerID, spec)
	h.mu.Unlock()
	if !ok {
		return "", h.adminFail(line, fmt.Sprintf("no such player %d", playerID))
	}
	h.refreshSession(playerID)
	return fmt.Sprintf("crocodile %s at (%d,%d) for player %d", spec.Kind, spec.X, spec.Y, playerID), nil
}

// adminFruit handles `FRUIT CREATE|DELETE ...`. Creation is rejected on
// non-walkable tiles: water, ground and platform cannot hold a fruit.
func (h *Hub) adminFruit(line string, args []string) (string, error) {
	if len(args) < 3 {
		return "", h.adminFail(line, "expected FRUIT <CREATE|DELETE> <x> <y> ...")
	}
	nums, err := parseInts(args[1:])
	if err != nil {
		return "", h.adminFail(line, err.Error())
	}

	switch strings.ToUpper(args[0]) {
	case "CREATE":
		if len(nums) < 3 || len(nums) > 4 {
			return "", h.adminFail(line, "expected FRUIT CREATE <x> <y> <points> [playerId]")
		}
		spec := sim.FruitSpec{X: nums[0], Y: nums[1], Points: nums[2]}
		if !h.world.TileMap().IsWalkable(spec.X, spec.Y) {
			return "", h.adminFail(line, fmt.Sprintf("tile (%d,%d) cannot hold a fruit", spec.X, spec.Y))
		}
		if len(nums) == 3 {
			if err := h.world.Templates().AddFruit(spec); err != nil {
				return "", h.adminFail(line, err.Error())
			}
			return fmt.Sprintf("template fruit at (%d,%d) worth %d", spec.X, spec.Y, spec.Points), nil
		}
		playerID := nums[3]
		h.mu.Lock()
		ok := h.world.AddSessionFruit(playerID, spec)
		h.mu.Unlock()
		if !ok {
			return "", h.adminFail(line, fmt.Sprintf("no such player %d", playerID))
		}
		h.refreshSession(playerID)
		return fmt.Sprintf("fruit at (%d,%d) worth %d for player %d", spec.X, spec.Y, spec.Points, playerID), nil

	case "DELETE":
		if len(nums) < 2 || len(nums) > 3 {
			return "", h.adminFail(line, "expected FRUIT DELETE <x> <y> [playerId]")
		}
		x, y := nums[0], nums[1]
		if len(nums) == 2 {
			removed := h.world.Templates().RemoveFruit(x, y)
			return fmt.Sprintf("removed %d template fruit(s) at (%d,%d)", removed, x, y), nil
		}
		playerID := nums[2]
		h.mu.Lock()
		removed, ok := h.world.RemoveSessionFruit(playerID, x, y)
		h.mu.Unlock()
		if !ok {
			return "", h.adminFail(line, fmt.Sprintf("no such player %d", playerID))
		}
		h.refreshSession(playerID)
		return fmt.Sprintf("removed %d fruit(s) at (%d,%d) for player %d", removed, x, y, playerID), nil

	default:
		return "", h.adminFail(line, "unknown fruit verb "+args[0])
	}
}

func (h *Hub) adminFail(line, reason string) error {
	network.AdminCommandFailed(context.Background(), h.publisher,
		network.AdminCommandFailedPayload{Line: line, Reason: reason})
	return fmt.Errorf("admin: %s", reason)
}

// parseEnemyKind maps the admin's type word onto a kind tag. Anything that is
// not RED falls back to the falling variant, matching the factory.
func parseEnemyKind(word string) sim.EnemyKind {
	if strings.EqualFold(word, string(sim.EnemyKindOscillating)) {
		return sim.EnemyKindOscillating
	}
	return sim.EnemyKindFalling
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", arg)
		}
		out = append(out, v)
	}
	return out, nil
}
