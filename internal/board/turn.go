package board

// Turn counts move attempts starting at 1. Odd turns belong to white.
type Turn int

const FirstTurn Turn = 1

func (t Turn) SideToMove() Side {
	if t%2 != 0 {
		return White
	}
	return Black
}
