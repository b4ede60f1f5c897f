package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/boardwatch/internal/board"
)

func sq(r, c int) board.Square { return board.Sq(r, c) }

func piece(t *testing.T, tag string) board.Piece {
	t.Helper()
	p, err := board.ParsePiece(tag)
	require.NoError(t, err)
	return p
}

func TestWhiteKingPawnDoubleStep(t *testing.T) {
	st := NewState()
	out := New(DefaultMode()).Resolve([]board.Square{sq(4, 4), sq(6, 4)}, st)

	require.Equal(t, Accepted, out.Status)
	assert.Equal(t, Move, out.Kind)
	assert.Equal(t, sq(6, 4), out.From)
	assert.Equal(t, sq(4, 4), out.To)
	assert.Equal(t, "e2e4", out.UCI())

	p, ok := st.Board.At(sq(4, 4))
	require.True(t, ok)
	assert.Equal(t, "WP", p.String())
	assert.False(t, st.Board.Occupied(sq(6, 4)))
	assert.Equal(t, board.Turn(2), st.Turn)
	assert.Equal(t, board.Turn(1), out.TurnBefore)
	assert.Equal(t, board.Turn(2), out.TurnAfter)
}

func TestPawnDiagonalToEmptyRejected(t *testing.T) {
	for _, mode := range []Mode{{PenalizeIllegalAttempts: true}, {PenalizeIllegalAttempts: false}} {
		st := NewState()
		before := st.Board.Clone()
		out := New(mode).Resolve([]board.Square{sq(6, 0), sq(5, 1)}, st)

		require.Equal(t, Rejected, out.Status)
		assert.Equal(t, ReasonIllegalMove, out.Reason)
		assert.True(t, before.Equal(st.Board), "board must be unchanged")
		if mode.PenalizeIllegalAttempts {
			assert.Equal(t, board.Turn(1), st.Turn)
		} else {
			assert.Equal(t, board.Turn(2), st.Turn)
		}
	}
}

func TestIndeterminateCardinalities(t *testing.T) {
	cases := []struct {
		name    string
		changes []board.Square
		reason  string
	}{
		{"none", nil, ReasonNoMovement},
		{"single", []board.Square{sq(3, 3)}, ReasonNoMovement},
		{"three", []board.Square{sq(2, 2), sq(2, 5), sq(6, 1)}, ReasonAmbiguous},
		{"duplicates collapse", []board.Square{sq(3, 3), sq(3, 3)}, ReasonNoMovement},
		{"out of range", []board.Square{sq(6, 4), sq(8, 4)}, ReasonOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, mode := range []Mode{DefaultMode(), {}, {PositionalCapture: true}} {
				st := NewState()
				st.Turn = 5
				before := st.Board.Clone()
				out := New(mode).Resolve(tc.changes, st)
				assert.Equal(t, Indeterminate, out.Status)
				assert.Equal(t, tc.reason, out.Reason)
				assert.Equal(t, "", out.UCI())
				assert.True(t, before.Equal(st.Board))
				assert.Equal(t, board.Turn(5), st.Turn)
			}
		})
	}
}

func TestBothEmptyIsIndeterminate(t *testing.T) {
	st := NewState()
	out := New(DefaultMode()).Resolve([]board.Square{sq(3, 3), sq(4, 4)}, st)
	assert.Equal(t, Indeterminate, out.Status)
	assert.Equal(t, ReasonNoOccupancy, out.Reason)
	assert.Equal(t, board.FirstTurn, st.Turn)
}

func TestMoveWhenSecondSquareHoldsPiece(t *testing.T) {
	st := NewState()
	// knight g1 -> f3: (7,6) -> (5,5); row-major order puts the empty target first
	out := New(DefaultMode()).Resolve([]board.Square{sq(5, 5), sq(7, 6)}, st)
	require.Equal(t, Accepted, out.Status)
	assert.Equal(t, "WN", out.Piece.String())
	assert.Equal(t, sq(7, 6), out.From)
	assert.Equal(t, sq(5, 5), out.To)
	assert.True(t, st.Board.Occupied(sq(5, 5)))
	assert.False(t, st.Board.Occupied(sq(7, 6)))
}

func captureBoard(t *testing.T) *State {
	t.Helper()
	b := &board.Board{}
	b.Set(sq(3, 3), piece(t, "BP"))
	b.Set(sq(4, 4), piece(t, "WP"))
	return &State{Board: b, Turn: 1}
}

func TestCaptureBySideToMove(t *testing.T) {
	// white to move; the white pawn sits on the second changed square
	st := captureBoard(t)
	out := New(DefaultMode()).Resolve([]board.Square{sq(3, 3), sq(4, 4)}, st)

	require.Equal(t, Accepted, out.Status)
	assert.Equal(t, Capture, out.Kind)
	assert.Equal(t, "WP", out.Piece.String())
	assert.Equal(t, "BP", out.Captured.String())
	assert.Equal(t, sq(4, 4), out.From)
	assert.Equal(t, sq(3, 3), out.To)

	p, _ := st.Board.At(sq(3, 3))
	assert.Equal(t, "WP", p.String())
	assert.False(t, st.Board.Occupied(sq(4, 4)))
	assert.Equal(t, board.Turn(2), st.Turn)
}

func TestPositionalCaptureUsesFirstSquare(t *testing.T) {
	// legacy behaviour: the black pawn on the first square "captures" forward,
	// although it is white's turn
	st := captureBoard(t)
	out := New(Mode{PenalizeIllegalAttempts: true, PositionalCapture: true}).Resolve([]board.Square{sq(3, 3), sq(4, 4)}, st)

	require.Equal(t, Accepted, out.Status)
	assert.Equal(t, "BP", out.Piece.String())
	assert.Equal(t, sq(3, 3), out.From)
	p, _ := st.Board.At(sq(4, 4))
	assert.Equal(t, "BP", p.String())
}

func TestCaptureSameSideRejected(t *testing.T) {
	st := NewState()
	before := st.Board.Clone()
	out := New(DefaultMode()).Resolve([]board.Square{sq(6, 3), sq(7, 3)}, st)
	assert.Equal(t, Rejected, out.Status)
	assert.Equal(t, ReasonIllegalCapture, out.Reason)
	assert.True(t, before.Equal(st.Board))
	assert.Equal(t, board.FirstTurn, st.Turn)
}

func TestIllegalCaptureTurnModes(t *testing.T) {
	setup := func() *State {
		b := &board.Board{}
		b.Set(sq(7, 0), piece(t, "WR"))
		b.Set(sq(5, 1), piece(t, "BN"))
		return &State{Board: b, Turn: 1}
	}

	st := setup()
	out := New(Mode{PenalizeIllegalAttempts: true}).Resolve([]board.Square{sq(5, 1), sq(7, 0)}, st)
	assert.Equal(t, Rejected, out.Status)
	assert.Equal(t, ReasonIllegalCapture, out.Reason)
	assert.Equal(t, board.Turn(1), st.Turn)

	st = setup()
	out = New(Mode{}).Resolve([]board.Square{sq(5, 1), sq(7, 0)}, st)
	assert.Equal(t, Rejected, out.Status)
	assert.Equal(t, board.Turn(2), st.Turn)
	assert.Equal(t, board.Turn(2), out.TurnAfter)
}

func TestCustomChecker(t *testing.T) {
	calls := 0
	r := New(DefaultMode(), WithChecker(func(p board.Piece, from, to board.Square, b *board.Board) bool {
		calls++
		return true
	}))
	st := NewState()
	out := r.Resolve([]board.Square{sq(6, 0), sq(2, 7)}, st)
	assert.Equal(t, Accepted, out.Status)
	assert.Equal(t, 1, calls)
}

func TestGameSequence(t *testing.T) {
	st := NewState()
	r := New(DefaultMode())
	moves := [][2]board.Square{
		{sq(6, 4), sq(4, 4)}, // e4
		{sq(1, 3), sq(3, 3)}, // d5
		{sq(3, 3), sq(4, 4)}, // exd5 as seen by the camera: both squares occupied
	}
	for i, mv := range moves {
		out := r.Resolve([]board.Square{mv[0], mv[1]}, st)
		require.Equal(t, Accepted, out.Status, "move %d: %s", i, out)
	}
	p, _ := st.Board.At(sq(3, 3))
	assert.Equal(t, "WP", p.String())
	assert.Equal(t, 31, st.Board.Count())
	assert.Equal(t, board.Turn(4), st.Turn)
	assert.Equal(t, board.Black, st.Turn.SideToMove())
}

func TestNilState(t *testing.T) {
	out := New(DefaultMode()).Resolve([]board.Square{sq(6, 4), sq(4, 4)}, nil)
	assert.Equal(t, Indeterminate, out.Status)
}
