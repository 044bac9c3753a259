package sim

import (
	"fmt"
	"strings"
)

// Tile classifies a single map cell.
type Tile byte

const (
	TileEmpty    Tile = '.'
	TileWater    Tile = 'W'
	TileGround   Tile = 'T'
	TilePlatform Tile = '='
	TileLiana    Tile = '|'
	TileSpawn    Tile = 'S'
	TileGoal     Tile = 'G'
)

// defaultRows describes the world bottom-up: rows[0] is y=0, the water line.
var defaultRows = []string{
	"TTTWWTWTWWW...", // y=0
	"S==..=T..==...", // y=1
	".....T=...=...", // y=2
	"..|.......=...", // y=3
	"..|..|........", // y=4
	"..|..|..===...", // y=5
	"..|..|........", // y=6
	"..|==|........", // y=7
	".....|.====...", // y=8
	"..............", // y=9
	"..............", // y=10
	"..............", // y=11
	"======........", // y=12
	"G.............", // y=13
}

// TileMap is a static, read-only terrain grid. y grows upward: y=0 is the
// bottom row and gravity pulls toward it.
type TileMap struct {
	rows   []string
	width  int
	height int
	spawnX int
	spawnY int
	goalX  int
	goalY  int
}

// NewDefaultTileMap returns the built-in level.
func NewDefaultTileMap() *TileMap {
	m, err := ParseTileMap(defaultRows)
	if err != nil {
		panic(fmt.Sprintf("default tile map invalid: %v", err))
	}
	return m
}

// ParseTileMap validates rows (given bottom-up) and builds a TileMap. The grid
// must be rectangular, contain only known tile characters, exactly one spawn,
// and at least one goal.
func ParseTileMap(rows []string) (*TileMap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tile map has no rows")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("tile map rows are empty")
	}
	m := &TileMap{
		rows:   append([]string(nil), rows...),
		width:  width,
		height: len(rows),
		spawnX: -1,
		spawnY: -1,
		goalX:  -1,
		goalY:  -1,
	}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has width %d, want %d", y, len(row), width)
		}
		for x := 0; x < width; x++ {
			switch Tile(row[x]) {
			case TileEmpty, TileWater, TileGround, TilePlatform, TileLiana, TileGoal:
			case TileSpawn:
				if m.spawnX >= 0 {
					return nil, fmt.Errorf("duplicate spawn at (%d,%d)", x, y)
				}
				m.spawnX, m.spawnY = x, y
			default:
				return nil, fmt.Errorf("unknown tile %q at (%d,%d)", row[x], x, y)
			}
			if Tile(row[x]) == TileGoal && m.goalX < 0 {
				m.goalX, m.goalY = x, y
			}
		}
	}
	if m.spawnX < 0 {
		return nil, fmt.Errorf("tile map has no spawn tile")
	}
	if m.goalX < 0 {
		return nil, fmt.Errorf("tile map has no goal tile")
	}
	return m, nil
}

func (m *TileMap) Width() int  { return m.width }
func (m *TileMap) Height() int { return m.height }
func (m *TileMap) MinX() int   { return 0 }
func (m *TileMap) MinY() int   { return 0 }
func (m *TileMap) MaxX() int   { return m.width - 1 }
func (m *TileMap) MaxY() int   { return m.height - 1 }

// Rows returns the raw rows bottom-up, for the MAP_ROW broadcast.
func (m *TileMap) Rows() []string {
	return append([]string(nil), m.rows...)
}

// SpawnPoint returns the coordinates of the spawn tile.
func (m *TileMap) SpawnPoint() (int, int) { return m.spawnX, m.spawnY }

// GoalPoint returns the coordinates of the first goal tile.
func (m *TileMap) GoalPoint() (int, int) { return m.goalX, m.goalY }

// TileAt classifies the cell at (x,y). Out-of-bounds cells read as empty
// rather than failing, so movement code never has to bounds-check first.
func (m *TileMap) TileAt(x, y int) Tile {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return TileEmpty
	}
	return Tile(m.rows[y][x])
}

// IsWater reports whether (x,y) is lethal water.
func (m *TileMap) IsWater(x, y int) bool {
	return m.TileAt(x, y) == TileWater
}

// IsLiana reports whether (x,y) is a climbable liana.
func (m *TileMap) IsLiana(x, y int) bool {
	return m.TileAt(x, y) == TileLiana
}

// IsWall reports whether the tile blocks occupancy outright.
func (m *TileMap) IsWall(x, y int) bool {
	t := m.TileAt(x, y)
	return t == TileGround || t == TilePlatform
}

// isSolid reports whether a player can stand on or hang from the tile.
func isSolid(t Tile) bool {
	return t == TileGround || t == TilePlatform || t == TileLiana || t == TileSpawn
}

// isBlockingCeiling reports whether the tile blocks upward movement. Lianas
// are climbable through; the goal tile is deliberately passable.
func isBlockingCeiling(t Tile) bool {
	return t == TileGround || t == TilePlatform || t == TileSpawn
}

// HasSolidBelow reports whether a solid tile sits directly under (x,y).
func (m *TileMap) HasSolidBelow(x, y int) bool {
	if y <= m.MinY() {
		return false
	}
	return isSolid(m.TileAt(x, y-1))
}

// IsSupported reports whether a player at (x,y) has footing: either standing
// in a solid/liana tile or one cell above a solid tile.
func (m *TileMap) IsSupported(x, y int) bool {
	if isSolid(m.TileAt(x, y)) {
		return true
	}
	return m.HasSolidBelow(x, y)
}

// BlockingCeiling reports whether a solid, non-liana tile sits directly
// above (x,y).
func (m *TileMap) BlockingCeiling(x, y int) bool {
	return isBlockingCeiling(m.TileAt(x, y+1))
}

// CanMoveUp reports whether an upward move from (x,y) is legal: the player
// must be supported and the cell above must not be a blocking ceiling.
func (m *TileMap) CanMoveUp(x, y int) bool {
	if m.BlockingCeiling(x, y) {
		return false
	}
	return m.IsSupported(x, y)
}

// IsWalkable reports whether a fruit may be placed at (x,y): only empty,
// liana, spawn and goal tiles are reachable by a player.
func (m *TileMap) IsWalkable(x, y int) bool {
	switch m.TileAt(x, y) {
	case TileEmpty, TileLiana, TileSpawn, TileGoal:
		return true
	default:
		return false
	}
}

// String renders the map top-down for logs.
func (m *TileMap) String() string {
	var b strings.Builder
	for y := m.height - 1; y >= 0; y-- {
		b.WriteString(m.rows[y])
		if y > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
