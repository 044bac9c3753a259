package sim

// EnemyKind tags a concrete enemy variant. The values double as the wire
// tags carried by ENEMY lines.
type EnemyKind string

const (
	// EnemyKindOscillating patrols a vertical liana segment.
	EnemyKindOscillating EnemyKind = "RED"
	// EnemyKindFalling drops toward a terminal bound and then deactivates.
	EnemyKindFalling EnemyKind = "BLUE"
)

// Enemy is the common contract for all enemy state machines. Step advances
// the machine by one tick; minY/maxY bound the vertical range and round is
// the owning player's difficulty level.
type Enemy interface {
	Step(minY, maxY, round int)
	Position() (x, y int)
	Active() bool
	Kind() EnemyKind
}

// stepTicks is the movement cadence: an enemy advances only every stepTicks
// invocations, so higher rounds mean faster enemies.
func stepTicks(round int) int {
	ticks := 6 - round
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// OscillatingCroc patrols its liana column between the bounds it is stepped
// with, reversing direction at either end.
type OscillatingCroc struct {
	x        int
	y        int
	dir      int
	cooldown int
	lianaAt  func(x, y int) bool
}

// NewOscillatingCroc places a patrolling croc on column x at height y.
// lianaAt, when non-nil, vetoes steps onto non-liana tiles so the croc stays
// glued to its column even if the bounds are mis-specified.
func NewOscillatingCroc(x, y int, lianaAt func(x, y int) bool) *OscillatingCroc {
	return &OscillatingCroc{x: x, y: y, dir: 1, lianaAt: lianaAt}
}

func (c *OscillatingCroc) Step(minY, maxY, round int) {
	if c.cooldown > 1 {
		c.cooldown--
		return
	}
	c.cooldown = stepTicks(round)

	next := c.y + c.dir
	if c.lianaAt != nil && !c.lianaAt(c.x, next) {
		c.dir = -c.dir
		return
	}
	c.y = next
	if c.y <= minY {
		c.y = minY
		c.dir = 1
	}
	if c.y >= maxY {
		c.y = maxY
		c.dir = -1
	}
}

func (c *OscillatingCroc) Position() (int, int) { return c.x, c.y }
func (c *OscillatingCroc) Active() bool         { return true }
func (c *OscillatingCroc) Kind() EnemyKind      { return EnemyKindOscillating }

// FallingCroc moves one tile toward the lower bound per throttled step and
// deactivates permanently on arrival; the owning session prunes it.
type FallingCroc struct {
	x        int
	y        int
	active   bool
	cooldown int
}

// NewFallingCroc places a falling croc on column x at height y.
func NewFallingCroc(x, y int) *FallingCroc {
	return &FallingCroc{x: x, y: y, active: true}
}

func (c *FallingCroc) Step(minY, maxY, round int) {
	if !c.active {
		return
	}
	if c.cooldown > 1 {
		c.cooldown--
		return
	}
	c.cooldown = stepTicks(round)

	c.y--
	if c.y <= minY {
		c.y = minY
		c.active = false
	}
}

func (c *FallingCroc) Position() (int, int) { return c.x, c.y }
func (c *FallingCroc) Active() bool         { return c.active }
func (c *FallingCroc) Kind() EnemyKind      { return EnemyKindFalling }
