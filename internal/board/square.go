package board

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// Size is the number of rows and columns on the board.
const Size = 8

// Square is a camera-relative coordinate. Row 0 is the far rank as seen by the
// camera (black's back rank) and column 0 is the left file.
type Square struct {
	Row int
	Col int
}

func Sq(row, col int) Square { return Square{Row: row, Col: col} }

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Index is the row-major position of the square, 0..63.
func (s Square) Index() int { return s.Row*Size + s.Col }

// Coords formats the square as "(row, col)".
func (s Square) Coords() string { return fmt.Sprintf("(%d, %d)", s.Row, s.Col) }

// String returns algebraic notation. Row 0 maps to rank 8, column 0 to file a.
func (s Square) String() string {
	if !s.Valid() {
		return s.Coords()
	}
	return s.chess().String()
}

func (s Square) chess() nchess.Square {
	return nchess.NewSquare(nchess.File(s.Col), nchess.Rank(Size-1-s.Row))
}

var ErrInvalidSquare = errors.New("invalid square")

// ParseSquare accepts algebraic notation ("e2").
func ParseSquare(text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, text)
	}
	file := int(text[0] - 'a')
	rank := int(text[1] - '1')
	sq := Sq(Size-1-rank, file)
	if !sq.Valid() {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, text)
	}
	return sq, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Delta returns the row and column offsets from s to to.
func (s Square) Delta(to Square) (dRow, dCol int) {
	return to.Row - s.Row, to.Col - s.Col
}

// Distance returns the absolute row and column offsets.
func (s Square) Distance(to Square) (rows, cols int) {
	dr, dc := s.Delta(to)
	return abs(dr), abs(dc)
}
