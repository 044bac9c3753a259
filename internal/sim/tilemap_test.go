package sim

import "testing"

func TestParseTileMapValidation(t *testing.T) {
	cases := []struct {
		name string
		rows []string
	}{
		{"empty", nil},
		{"ragged", []string{"TTT", "TT"}},
		{"unknown tile", []string{"TXT", "S.G"}},
		{"no spawn", []string{"TTT", "..G"}},
		{"two spawns", []string{"TTT", "SSG"}},
		{"no goal", []string{"TTT", "S.."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseTileMap(tc.rows); err == nil {
				t.Fatalf("expected error for %v", tc.rows)
			}
		})
	}
}

func TestParseTileMapAnchors(t *testing.T) {
	m, err := ParseTileMap([]string{
		"TTTT",
		"S..G",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if x, y := m.SpawnPoint(); x != 0 || y != 1 {
		t.Fatalf("spawn at (%d,%d), want (0,1)", x, y)
	}
	if x, y := m.GoalPoint(); x != 3 || y != 1 {
		t.Fatalf("goal at (%d,%d), want (3,1)", x, y)
	}
	if m.Width() != 4 || m.Height() != 2 {
		t.Fatalf("size %dx%d, want 4x2", m.Width(), m.Height())
	}
}

func TestTileAtOutOfBoundsReadsEmpty(t *testing.T) {
	m := NewDefaultTileMap()
	for _, pt := range [][2]int{{-1, 0}, {0, -1}, {m.Width(), 0}, {0, m.Height()}} {
		if got := m.TileAt(pt[0], pt[1]); got != TileEmpty {
			t.Fatalf("TileAt(%d,%d) = %q, want empty", pt[0], pt[1], got)
		}
	}
}

func TestPredicates(t *testing.T) {
	m, err := ParseTileMap([]string{
		"TTTWTTTT", // y=0
		"S.|..=G.", // y=1
		"..|.....", // y=2
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !m.IsWater(3, 0) {
		t.Fatalf("(3,0) should be water")
	}
	if !m.IsLiana(2, 1) || !m.IsLiana(2, 2) {
		t.Fatalf("liana column at x=2 not detected")
	}
	if !m.IsWall(0, 0) || !m.IsWall(5, 1) {
		t.Fatalf("ground and platform should be walls")
	}
	if m.IsWall(2, 1) {
		t.Fatalf("liana is not a wall")
	}

	// Standing on ground is supported; above water is not.
	if !m.IsSupported(1, 1) {
		t.Fatalf("(1,1) sits on ground, should be supported")
	}
	if m.IsSupported(3, 2) {
		t.Fatalf("(3,2) floats above water, should be unsupported")
	}
	// In a liana tile counts as footing.
	if !m.IsSupported(2, 2) {
		t.Fatalf("inside liana should be supported")
	}

	// Platform overhead blocks jumps, liana does not.
	if m.CanMoveUp(5, 0) {
		t.Fatalf("platform at (5,1) should block the jump from (5,0)")
	}
	if !m.CanMoveUp(2, 1) {
		t.Fatalf("liana overhead should not block climbing")
	}
	if m.CanMoveUp(3, 2) {
		t.Fatalf("unsupported tile cannot start a jump")
	}

	// Fruit placement: empty/liana/spawn/goal only.
	for _, ok := range [][2]int{{1, 1}, {2, 1}, {0, 1}, {6, 1}} {
		if !m.IsWalkable(ok[0], ok[1]) {
			t.Fatalf("(%d,%d) should accept a fruit", ok[0], ok[1])
		}
	}
	for _, bad := range [][2]int{{0, 0}, {3, 0}, {5, 1}} {
		if m.IsWalkable(bad[0], bad[1]) {
			t.Fatalf("(%d,%d) should reject a fruit", bad[0], bad[1])
		}
	}
}

func TestDefaultTileMapParses(t *testing.T) {
	m := NewDefaultTileMap()
	if x, y := m.SpawnPoint(); m.TileAt(x, y) != TileSpawn {
		t.Fatalf("spawn anchor does not point at a spawn tile")
	}
	if x, y := m.GoalPoint(); m.TileAt(x, y) != TileGoal {
		t.Fatalf("goal anchor does not point at a goal tile")
	}
}
