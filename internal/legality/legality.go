// Package legality checks whether a single piece displacement matches the
// piece's movement pattern.
//
// Only geometry and destination occupancy are considered. Sliding pieces are
// not checked for blockers, a pawn's double step does not inspect the square it
// passes, and check, castling, en passant and promotion are not modelled.
package legality

import "github.com/park285/boardwatch/internal/board"

// IsLegal reports whether piece may move from from to to on b. b is consulted
// only for the occupancy of to.
func IsLegal(piece board.Piece, from, to board.Square, b *board.Board) bool {
	if piece.IsZero() || !from.Valid() || !to.Valid() || from == to {
		return false
	}
	switch piece.Kind() {
	case board.Pawn:
		return pawn(piece.Side(), from, to, b.Occupied(to))
	case board.Rook:
		return straight(from, to)
	case board.Knight:
		return knight(from, to)
	case board.Bishop:
		return diagonal(from, to)
	case board.Queen:
		return straight(from, to) || diagonal(from, to)
	case board.King:
		rows, cols := from.Distance(to)
		return rows <= 1 && cols <= 1
	default:
		return false
	}
}

// forward is the row step a pawn of side advances by.
func forward(side board.Side) int {
	if side == board.White {
		return -1
	}
	return 1
}

// StartRow is the row a side's pawns begin on.
func StartRow(side board.Side) int {
	if side == board.White {
		return 6
	}
	return 1
}

func pawn(side board.Side, from, to board.Square, targetOccupied bool) bool {
	dRow, dCol := from.Delta(to)
	step := forward(side)

	if dCol == 0 && !targetOccupied {
		if dRow == step {
			return true
		}
		// double step from the start row; the skipped square is not inspected
		if dRow == 2*step && from.Row == StartRow(side) {
			return true
		}
		return false
	}
	return dRow == step && (dCol == 1 || dCol == -1) && targetOccupied
}

func straight(from, to board.Square) bool {
	return from.Row == to.Row || from.Col == to.Col
}

func diagonal(from, to board.Square) bool {
	rows, cols := from.Distance(to)
	return rows == cols
}

func knight(from, to board.Square) bool {
	rows, cols := from.Distance(to)
	return (rows == 2 && cols == 1) || (rows == 1 && cols == 2)
}
