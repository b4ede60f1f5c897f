// Package resolver turns a set of changed squares into a move against the
// tracked board state.
package resolver

import (
	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/legality"
)

// Mode selects between the two historical turn and capture behaviours.
type Mode struct {
	// PenalizeIllegalAttempts takes back the turn advance of a rejected attempt,
	// so the same side is to move again. When false a rejected attempt still
	// consumes the turn.
	PenalizeIllegalAttempts bool
	// PositionalCapture resolves a two-occupied-square change by moving the
	// piece on the first changed square (row-major) onto the second, whatever
	// its side. When false the mover is the piece belonging to the side to move.
	PositionalCapture bool
}

func DefaultMode() Mode {
	return Mode{PenalizeIllegalAttempts: true}
}

// State is the logical game tracked across comparisons.
type State struct {
	Board *board.Board `json:"board"`
	Turn  board.Turn   `json:"turn"`
}

func NewState() *State {
	return &State{Board: board.StartPosition(), Turn: board.FirstTurn}
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	return &State{Board: s.Board.Clone(), Turn: s.Turn}
}

// Checker decides whether a displacement is legal for a piece.
type Checker func(piece board.Piece, from, to board.Square, b *board.Board) bool

type Resolver struct {
	mode  Mode
	legal Checker
}

type Option func(*Resolver)

// WithChecker replaces the movement rules, mostly for tests.
func WithChecker(c Checker) Option {
	return func(r *Resolver) {
		if c != nil {
			r.legal = c
		}
	}
}

func New(mode Mode, opts ...Option) *Resolver {
	r := &Resolver{mode: mode, legal: legality.IsLegal}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Mode() Mode { return r.mode }

// Resolve interprets changes against st and applies an accepted move in place.
// Only a change of exactly two squares can be resolved; anything else leaves st
// untouched and yields Indeterminate.
func (r *Resolver) Resolve(changes []board.Square, st *State) Outcome {
	if st == nil || st.Board == nil {
		return Outcome{Status: Indeterminate, Reason: ReasonNoMovement}
	}
	out := Outcome{Status: Indeterminate, TurnBefore: st.Turn, TurnAfter: st.Turn}

	squares := dedupe(changes)
	for _, sq := range squares {
		if !sq.Valid() {
			out.Reason = ReasonOutOfRange
			return out
		}
	}
	switch {
	case len(squares) < 2:
		out.Reason = ReasonNoMovement
		return out
	case len(squares) > 2:
		out.Reason = ReasonAmbiguous
		return out
	}

	a, b := squares[0], squares[1]
	pieceA, occA := st.Board.At(a)
	pieceB, occB := st.Board.At(b)

	switch {
	case occA && !occB:
		return r.displace(st, out, pieceA, a, b)
	case !occA && occB:
		return r.displace(st, out, pieceB, b, a)
	case occA && occB:
		return r.capture(st, out, a, b, pieceA, pieceB)
	default:
		out.Reason = ReasonNoOccupancy
		return out
	}
}

func (r *Resolver) displace(st *State, out Outcome, piece board.Piece, from, to board.Square) Outcome {
	out.Kind = Move
	out.Piece = piece
	out.From, out.To = from, to
	if !r.legal(piece, from, to, st.Board) {
		return r.reject(st, out, ReasonIllegalMove)
	}
	st.Board.Move(from, to)
	return r.accept(st, out)
}

func (r *Resolver) capture(st *State, out Outcome, a, b board.Square, pieceA, pieceB board.Piece) Outcome {
	out.Kind = Capture
	from, to := a, b
	attacker, victim := pieceA, pieceB

	if !r.mode.PositionalCapture {
		mover := st.Turn.SideToMove()
		switch {
		case pieceA.Side() == mover && pieceB.Side() != mover:
		case pieceB.Side() == mover && pieceA.Side() != mover:
			from, to = b, a
			attacker, victim = pieceB, pieceA
		default:
			out.Piece, out.Captured = pieceA, pieceB
			out.From, out.To = a, b
			return r.reject(st, out, ReasonIllegalCapture)
		}
	}

	out.Piece, out.Captured = attacker, victim
	out.From, out.To = from, to
	if !r.legal(attacker, from, to, st.Board) {
		return r.reject(st, out, ReasonIllegalCapture)
	}
	st.Board.Move(from, to)
	return r.accept(st, out)
}

func (r *Resolver) accept(st *State, out Outcome) Outcome {
	st.Turn++
	out.Status = Accepted
	out.TurnAfter = st.Turn
	return out
}

func (r *Resolver) reject(st *State, out Outcome, reason string) Outcome {
	if !r.mode.PenalizeIllegalAttempts {
		st.Turn++
	}
	out.Status = Rejected
	out.Reason = reason
	out.TurnAfter = st.Turn
	return out
}

func dedupe(in []board.Square) []board.Square {
	out := make([]board.Square, 0, len(in))
	seen := make(map[board.Square]struct{}, len(in))
	for _, sq := range in {
		if _, ok := seen[sq]; ok {
			continue
		}
		seen[sq] = struct{}{}
		out = append(out, sq)
	}
	return out
}
