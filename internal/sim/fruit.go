package sim

// Fruit is an immutable pickup worth Points. It lives in a session's fruit
// list until a player occupies its tile, at which point it is removed.
type Fruit struct {
	X      int
	Y      int
	Points int
}
