package mapgrid

// Direction is one of the four cardinal movement directions. There are no
// diagonals.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Valid reports whether d is one of the four recognized directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	default:
		return false
	}
}

// delta returns the (dx, dy) tile offset for a direction.
func (d Direction) delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	default:
		return 0, 0
	}
}

// Evaluate is the pure, total movement function shared by server authority
// and client prediction: given a map and a current position and direction,
// it returns the resulting position and whether the move was applied.
//
// Evaluate never mutates its inputs, never panics, and has no notion of
// sessions, sequence numbers, or time. Identical inputs always produce
// identical outputs — this is the contract that keeps client-side
// prediction and server reconciliation from diverging.
func Evaluate(m *Model, x, y int, dir Direction) (nx, ny int, moved bool) {
	dx, dy := dir.delta()
	tx, ty := x+dx, y+dy

	if !m.InBounds(tx, ty) {
		return x, y, false
	}
	if !m.Tile(tx, ty).Passable() {
		return x, y, false
	}
	return tx, ty, true
}
