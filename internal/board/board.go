package board

import (
	"encoding/json"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Board maps each square to an optional piece. The zero value is an empty board.
type Board struct {
	cells [Size][Size]Piece
}

// StartPosition returns the standard setup in camera orientation: black on
// rows 0-1, white on rows 6-7.
func StartPosition() *Board {
	b := &Board{}
	for col := 0; col < Size; col++ {
		b.cells[0][col] = NewPiece(Black, backRank[col])
		b.cells[1][col] = NewPiece(Black, Pawn)
		b.cells[6][col] = NewPiece(White, Pawn)
		b.cells[7][col] = NewPiece(White, backRank[col])
	}
	return b
}

// At returns the piece on sq and whether the square is occupied.
func (b *Board) At(sq Square) (Piece, bool) {
	if b == nil || !sq.Valid() {
		return NoPiece, false
	}
	p := b.cells[sq.Row][sq.Col]
	return p, !p.IsZero()
}

func (b *Board) Occupied(sq Square) bool {
	_, ok := b.At(sq)
	return ok
}

// Set places p on sq; NoPiece clears the square. Invalid squares are ignored.
func (b *Board) Set(sq Square, p Piece) {
	if !sq.Valid() {
		return
	}
	b.cells[sq.Row][sq.Col] = p
}

// Move relocates the piece on from to to and returns whatever was on to.
func (b *Board) Move(from, to Square) Piece {
	moving, _ := b.At(from)
	captured, _ := b.At(to)
	b.Set(to, moving)
	b.Set(from, NoPiece)
	return captured
}

func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.cells == o.cells
}

// Count returns the number of occupied squares.
func (b *Board) Count() int {
	n := 0
	for row := range b.cells {
		for col := range b.cells[row] {
			if !b.cells[row][col].IsZero() {
				n++
			}
		}
	}
	return n
}

// Tags returns the board as a grid of two-character tags, "" for empty squares.
func (b *Board) Tags() [][]string {
	out := make([][]string, Size)
	for row := range b.cells {
		out[row] = make([]string, Size)
		for col, p := range b.cells[row] {
			out[row][col] = p.String()
		}
	}
	return out
}

// FromTags builds a board from a tag grid as produced by Tags.
func FromTags(tags [][]string) (*Board, error) {
	if len(tags) != Size {
		return nil, fmt.Errorf("board tags: expected %d rows, got %d", Size, len(tags))
	}
	b := &Board{}
	for row, line := range tags {
		if len(line) != Size {
			return nil, fmt.Errorf("board tags: row %d has %d columns", row, len(line))
		}
		for col, tag := range line {
			p, err := ParsePiece(tag)
			if err != nil {
				return nil, fmt.Errorf("board tags at %s: %w", Sq(row, col).Coords(), err)
			}
			b.cells[row][col] = p
		}
	}
	return b, nil
}

func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Tags())
}

func (b *Board) UnmarshalJSON(raw []byte) error {
	var tags [][]string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return err
	}
	parsed, err := FromTags(tags)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}

// ChessBoard converts the board to the chess library representation, used for
// FEN export and rendering.
func (b *Board) ChessBoard() *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, 32)
	for row := range b.cells {
		for col, p := range b.cells[row] {
			if p.IsZero() {
				continue
			}
			m[Sq(row, col).chess()] = p.chess()
		}
	}
	return nchess.NewBoard(m)
}

// FEN returns the piece-placement field of a FEN record.
func (b *Board) FEN() string {
	return b.ChessBoard().String()
}

// String renders the board as rows of tags, "--" for empty squares.
func (b *Board) String() string {
	var sb strings.Builder
	for row := range b.cells {
		for col, p := range b.cells[row] {
			if col > 0 {
				sb.WriteByte(' ')
			}
			if p.IsZero() {
				sb.WriteString("--")
			} else {
				sb.WriteString(p.String())
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (p Piece) chess() nchess.Piece {
	color := nchess.White
	if p.side == Black {
		color = nchess.Black
	}
	var t nchess.PieceType
	switch p.kind {
	case Pawn:
		t = nchess.Pawn
	case Rook:
		t = nchess.Rook
	case Knight:
		t = nchess.Knight
	case Bishop:
		t = nchess.Bishop
	case Queen:
		t = nchess.Queen
	case King:
		t = nchess.King
	default:
		return nchess.NoPiece
	}
	return nchess.NewPiece(t, color)
}
