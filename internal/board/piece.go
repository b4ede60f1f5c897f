package board

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPiece = errors.New("invalid piece tag")

// Side identifies the owner of a piece.
type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Other returns the opposing side.
func (s Side) Other() Side { return s ^ 1 }

func (s Side) tag() byte {
	if s == Black {
		return 'B'
	}
	return 'W'
}

// Kind is the movement class of a piece. The zero value is not a valid kind,
// which keeps the zero Piece empty.
type Kind uint8

const (
	Pawn Kind = iota + 1
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindTags = map[Kind]byte{
	Pawn:   'P',
	Rook:   'R',
	Knight: 'N',
	Bishop: 'B',
	Queen:  'Q',
	King:   'K',
}

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Rook:
		return "rook"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Piece is an immutable side × kind pair.
type Piece struct {
	side Side
	kind Kind
}

// NoPiece is the empty square marker.
var NoPiece Piece

func NewPiece(side Side, kind Kind) Piece {
	return Piece{side: side, kind: kind}
}

func (p Piece) Side() Side   { return p.side }
func (p Piece) Kind() Kind   { return p.kind }
func (p Piece) IsZero() bool { return p.kind == 0 }

// String returns the two-character tag used in logs and stored payloads ("WP", "BK").
func (p Piece) String() string {
	if p.IsZero() {
		return ""
	}
	return string([]byte{p.side.tag(), kindTags[p.kind]})
}

// ParsePiece decodes a two-character tag. The empty string decodes to NoPiece.
func ParsePiece(tag string) (Piece, error) {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == "" {
		return NoPiece, nil
	}
	if len(tag) != 2 {
		return NoPiece, fmt.Errorf("%w: %q", ErrInvalidPiece, tag)
	}
	var side Side
	switch tag[0] {
	case 'W':
		side = White
	case 'B':
		side = Black
	default:
		return NoPiece, fmt.Errorf("%w: %q", ErrInvalidPiece, tag)
	}
	for k, c := range kindTags {
		if c == tag[1] {
			return NewPiece(side, k), nil
		}
	}
	return NoPiece, fmt.Errorf("%w: %q", ErrInvalidPiece, tag)
}
