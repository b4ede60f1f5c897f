package resolver

import (
	"fmt"

	"github.com/park285/boardwatch/internal/board"
)

// Status classifies one resolution attempt.
type Status int

const (
	Indeterminate Status = iota
	Accepted
	Rejected
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "indeterminate"
	}
}

// MoveKind distinguishes plain displacements from captures.
type MoveKind int

const (
	Move MoveKind = iota
	Capture
)

func (k MoveKind) String() string {
	if k == Capture {
		return "capture"
	}
	return "move"
}

const (
	ReasonNoMovement     = "no movement detected"
	ReasonAmbiguous      = "multiple/ambiguous movements detected"
	ReasonNoOccupancy    = "changed squares are both empty"
	ReasonOutOfRange     = "changed square out of range"
	ReasonIllegalMove    = "illegal move"
	ReasonIllegalCapture = "illegal capture"
)

// Outcome is the result of one Resolve call. From, To and Piece are set for
// accepted and rejected outcomes; Captured only for captures.
type Outcome struct {
	Status     Status
	Kind       MoveKind
	From       board.Square
	To         board.Square
	Piece      board.Piece
	Captured   board.Piece
	Reason     string
	TurnBefore board.Turn
	TurnAfter  board.Turn
}

// Mover is the side that made (or attempted) the move.
func (o Outcome) Mover() board.Side { return o.Piece.Side() }

// UCI returns the move in from-to coordinate notation ("e2e4"), or "" when no
// move was identified.
func (o Outcome) UCI() string {
	if o.Status == Indeterminate {
		return ""
	}
	return o.From.String() + o.To.String()
}

func (o Outcome) String() string {
	switch o.Status {
	case Accepted:
		if o.Kind == Capture {
			return fmt.Sprintf("%s %s x %s %s", o.Piece, o.From, o.Captured, o.To)
		}
		return fmt.Sprintf("%s %s-%s", o.Piece, o.From, o.To)
	case Rejected:
		return fmt.Sprintf("%s: %s %s-%s", o.Reason, o.Piece, o.From, o.To)
	default:
		return o.Reason
	}
}
