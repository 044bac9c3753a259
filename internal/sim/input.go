package sim

// InputEvent is one movement intent captured from a connection, staged for
// the next tick.
type InputEvent struct {
	PlayerID int
	Seq      int
	DX       int
	DY       int
}

// betterInput reports whether candidate should replace current under the
// per-tick merge order: a strictly larger dy wins (jumps dominate lateral
// moves); on a dy tie the larger |dx| wins; otherwise the first event seen
// is kept.
func betterInput(current, candidate InputEvent) bool {
	if candidate.DY > current.DY {
		return true
	}
	if candidate.DY == current.DY && abs(candidate.DX) > abs(current.DX) {
		return true
	}
	return false
}

// MergeInputs reduces the drained queue to at most one winning event per
// player, so queue flooding can never produce more than one tile of movement
// per tick.
func MergeInputs(events []InputEvent) map[int]InputEvent {
	if len(events) == 0 {
		return nil
	}
	best := make(map[int]InputEvent, len(events))
	for _, ev := range events {
		current, ok := best[ev.PlayerID]
		if !ok || betterInput(current, ev) {
			best[ev.PlayerID] = ev
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
