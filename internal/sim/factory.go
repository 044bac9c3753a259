package sim

// Factory constructs enemies and fruits from their kind tags, decoupling the
// simulation and the template store from concrete variant types.
type Factory interface {
	CreateEnemy(kind EnemyKind, x, y int) Enemy
	CreateFruit(x, y, points int) Fruit
}

// DefaultFactory builds the stock variants. It carries the tile map so
// oscillating crocs can stay glued to their liana columns.
type DefaultFactory struct {
	tiles *TileMap
}

// NewDefaultFactory returns a factory bound to the given tile map.
func NewDefaultFactory(tiles *TileMap) *DefaultFactory {
	return &DefaultFactory{tiles: tiles}
}

// CreateEnemy builds an enemy for the kind tag. Unknown tags fall back to the
// falling variant, matching the admin console's loose typing.
func (f *DefaultFactory) CreateEnemy(kind EnemyKind, x, y int) Enemy {
	if kind == EnemyKindOscillating {
		var lianaAt func(int, int) bool
		if f.tiles != nil {
			lianaAt = f.tiles.IsLiana
		}
		return NewOscillatingCroc(x, y, lianaAt)
	}
	return NewFallingCroc(x, y)
}

// CreateFruit builds a fruit at the given tile.
func (f *DefaultFactory) CreateFruit(x, y, points int) Fruit {
	return Fruit{X: x, Y: y, Points: points}
}
