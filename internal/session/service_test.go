package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/detect"
	"github.com/park285/boardwatch/internal/resolver"
)

const cellPx = 16

// frameOf paints b with a light patch for white pieces and a dark patch for
// black ones, so a capture changes both squares involved.
func frameOf(b *board.Board) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cellPx*board.Size, cellPx*board.Size))
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			r := image.Rect(col*cellPx, row*cellPx, (col+1)*cellPx, (row+1)*cellPx)
			bg := color.RGBA{233, 207, 163, 255}
			if (row+col)%2 == 1 {
				bg = color.RGBA{187, 136, 96, 255}
			}
			draw.Draw(img, r, image.NewUniform(bg), image.Point{}, draw.Src)
			p, ok := b.At(board.Sq(row, col))
			if !ok {
				continue
			}
			ink := color.RGBA{20, 20, 20, 255}
			if p.Side() == board.White {
				ink = color.RGBA{250, 250, 250, 255}
			}
			draw.Draw(img, r.Inset(3), image.NewUniform(ink), image.Point{}, draw.Src)
		}
	}
	return img
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, 0)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newRedisStore(t),
	}
}

func newTestService(t *testing.T, store Store, mode resolver.Mode) *Service {
	t.Helper()
	svc, err := NewService(store, NewMemoryRepository(), detect.SSIM{}, Config{Mode: mode}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestStartAndStatus(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, store, resolver.DefaultMode())
			ctx := context.Background()

			rep, err := svc.Start(ctx)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if rep.SessionUUID == "" || rep.Turn != board.FirstTurn || rep.SideToMove != board.White {
				t.Fatalf("unexpected start report: %+v", rep)
			}
			if rep.FEN != board.StartPosition().FEN() {
				t.Fatalf("unexpected FEN %q", rep.FEN)
			}

			st, err := svc.Status(ctx, rep.SessionUUID)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if !st.Board.Equal(board.StartPosition()) {
				t.Fatalf("status board differs from start position")
			}

			if _, err := svc.Status(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
		})
	}
}

func TestCompareAppliesMove(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, store, resolver.DefaultMode())
			ctx := context.Background()
			rep, err := svc.Start(ctx)
			if err != nil {
				t.Fatalf("Start: %v", err)
			}

			start := board.StartPosition()
			next := start.Clone()
			next.Move(board.Sq(6, 4), board.Sq(4, 4))

			before, _ := detect.Split(frameOf(start))
			after, _ := detect.Split(frameOf(next))
			got, err := svc.Compare(ctx, rep.SessionUUID, before, after)
			if err != nil {
				t.Fatalf("Compare: %v", err)
			}
			if got.Outcome == nil || got.Outcome.Status != resolver.Accepted {
				t.Fatalf("expected accepted outcome, got %+v", got.Outcome)
			}
			if got.Outcome.UCI() != "e2e4" {
				t.Fatalf("unexpected move %q", got.Outcome.UCI())
			}
			if got.Turn != 2 || got.SideToMove != board.Black || got.Seq != 1 {
				t.Fatalf("unexpected turn/seq: turn=%d side=%s seq=%d", got.Turn, got.SideToMove, got.Seq)
			}

			st, err := svc.Status(ctx, rep.SessionUUID)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if !st.Board.Equal(next) {
				t.Fatalf("stored board not updated:\n%s", st.Board)
			}

			hist, err := svc.History(ctx, rep.SessionUUID, 0)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(hist) != 1 || hist[0].FromSquare != "e2" || hist[0].ToSquare != "e4" || hist[0].Status != "accepted" {
				t.Fatalf("unexpected history: %+v", hist)
			}
		})
	}
}

func TestResolveIndeterminateKeepsState(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), resolver.DefaultMode())
	ctx := context.Background()
	rep, _ := svc.Start(ctx)

	got, err := svc.Resolve(ctx, rep.SessionUUID, detect.ChangeSet{board.Sq(2, 2), board.Sq(2, 5), board.Sq(6, 1)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Outcome.Status != resolver.Indeterminate || got.Outcome.Reason != resolver.ReasonAmbiguous {
		t.Fatalf("unexpected outcome: %+v", got.Outcome)
	}
	if got.Turn != board.FirstTurn || !got.Board.Equal(board.StartPosition()) {
		t.Fatalf("state changed on indeterminate outcome")
	}
	if got.Seq != 1 {
		t.Fatalf("expected comparison to be counted, seq=%d", got.Seq)
	}
}

func TestResolveRejectedTurnModes(t *testing.T) {
	ctx := context.Background()
	changes := detect.ChangeSet{board.Sq(5, 1), board.Sq(6, 0)}

	strict := newTestService(t, NewMemoryStore(), resolver.Mode{PenalizeIllegalAttempts: true})
	rep, _ := strict.Start(ctx)
	got, err := strict.Resolve(ctx, rep.SessionUUID, changes)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Outcome.Status != resolver.Rejected || got.Turn != 1 {
		t.Fatalf("penalized mode: status=%s turn=%d", got.Outcome.Status, got.Turn)
	}

	lenient := newTestService(t, NewMemoryStore(), resolver.Mode{})
	rep, _ = lenient.Start(ctx)
	got, err = lenient.Resolve(ctx, rep.SessionUUID, changes)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Outcome.Status != resolver.Rejected || got.Turn != 2 {
		t.Fatalf("unpenalized mode: status=%s turn=%d", got.Outcome.Status, got.Turn)
	}
	if !got.Board.Equal(board.StartPosition()) {
		t.Fatalf("board changed on rejected move")
	}
}

func TestAdvanceFramesPairwise(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, store, resolver.DefaultMode())
			ctx := context.Background()
			rep, _ := svc.Start(ctx)
			id := rep.SessionUUID

			pos := board.StartPosition()
			seed, err := svc.Advance(ctx, id, frameOf(pos))
			if err != nil {
				t.Fatalf("Advance seed: %v", err)
			}
			if !seed.Seeded || seed.Outcome != nil {
				t.Fatalf("expected seeding report, got %+v", seed)
			}

			moves := [][2]board.Square{
				{board.Sq(6, 4), board.Sq(4, 4)},
				{board.Sq(1, 3), board.Sq(3, 3)},
				{board.Sq(4, 4), board.Sq(3, 3)},
			}
			for i, mv := range moves {
				pos.Move(mv[0], mv[1])
				got, err := svc.Advance(ctx, id, frameOf(pos))
				if err != nil {
					t.Fatalf("Advance %d: %v", i, err)
				}
				if got.Outcome == nil || got.Outcome.Status != resolver.Accepted {
					t.Fatalf("move %d not accepted: %+v changes=%v", i, got.Outcome, got.Changes)
				}
			}
			st, _ := svc.Status(ctx, id)
			if st.Turn != 4 || !st.Board.Equal(pos) {
				t.Fatalf("unexpected final state turn=%d\n%s", st.Turn, st.Board)
			}

			// an unchanged frame resolves to nothing
			got, err := svc.Advance(ctx, id, frameOf(pos))
			if err != nil {
				t.Fatalf("Advance repeat: %v", err)
			}
			if got.Outcome.Status != resolver.Indeterminate || got.Outcome.Reason != resolver.ReasonNoMovement {
				t.Fatalf("expected no movement, got %+v", got.Outcome)
			}
		})
	}
}

func TestAdvanceConcurrentFramesApplyInOrder(t *testing.T) {
	const workers = 8
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, store, resolver.DefaultMode())
			ctx := context.Background()
			rep, _ := svc.Start(ctx)
			id := rep.SessionUUID

			pos := board.StartPosition()
			if _, err := svc.Advance(ctx, id, frameOf(pos)); err != nil {
				t.Fatalf("Advance seed: %v", err)
			}
			pos.Move(board.Sq(6, 4), board.Sq(4, 4))
			next := frameOf(pos)

			var wg sync.WaitGroup
			results := make(chan *Report, workers)
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got, err := svc.Advance(ctx, id, next)
					if err != nil {
						errs <- err
						return
					}
					results <- got
				}()
			}
			wg.Wait()
			close(results)
			close(errs)
			for err := range errs {
				t.Fatalf("Advance: %v", err)
			}

			accepted, still := 0, 0
			for got := range results {
				switch {
				case got.Outcome.Status == resolver.Accepted:
					accepted++
				case got.Outcome.Reason == resolver.ReasonNoMovement:
					still++
				default:
					t.Fatalf("unexpected outcome %+v changes=%v", got.Outcome, got.Changes)
				}
			}
			if accepted != 1 || still != workers-1 {
				t.Fatalf("accepted=%d unchanged=%d, want 1 and %d", accepted, still, workers-1)
			}
			st, _ := svc.Status(ctx, id)
			if st.Seq != workers || st.Turn != 2 || !st.Board.Equal(pos) {
				t.Fatalf("unexpected final state seq=%d turn=%d\n%s", st.Seq, st.Turn, st.Board)
			}

			// the stored frame is the latest one, so black's reply resolves
			pos.Move(board.Sq(1, 4), board.Sq(3, 4))
			got, err := svc.Advance(ctx, id, frameOf(pos))
			if err != nil {
				t.Fatalf("Advance reply: %v", err)
			}
			if got.Outcome.Status != resolver.Accepted || got.Turn != 3 {
				t.Fatalf("reply not accepted: %+v turn=%d", got.Outcome, got.Turn)
			}
		})
	}
}

func TestResolveConcurrentWritersAllApplied(t *testing.T) {
	const writers = 16
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, store, resolver.DefaultMode())
			ctx := context.Background()
			rep, _ := svc.Start(ctx)

			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := svc.Resolve(ctx, rep.SessionUUID, nil); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Fatalf("Resolve: %v", err)
			}
			st, _ := svc.Status(ctx, rep.SessionUUID)
			if st.Seq != writers {
				t.Fatalf("seq=%d, want %d", st.Seq, writers)
			}
			hist, err := svc.History(ctx, rep.SessionUUID, writers)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(hist) != writers {
				t.Fatalf("history has %d records, want %d", len(hist), writers)
			}
		})
	}
}

func TestRetryDelayBounded(t *testing.T) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		d := retryDelay(attempt)
		if d <= 0 || d > retryMaxDelay+time.Millisecond {
			t.Fatalf("attempt %d: delay %v out of range", attempt, d)
		}
	}
}

func TestUnknownSessionErrors(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), resolver.DefaultMode())
	ctx := context.Background()
	if _, err := svc.Resolve(ctx, "nope", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Resolve: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Advance(ctx, "nope", frameOf(board.StartPosition())); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Advance: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.History(ctx, "nope", 5); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("History: expected ErrSessionNotFound, got %v", err)
	}
}

func TestCompareRejectsMalformedGrid(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), resolver.DefaultMode())
	ctx := context.Background()
	rep, _ := svc.Start(ctx)
	g, _ := detect.Split(frameOf(board.StartPosition()))
	broken := *g
	broken[0][0] = nil
	if _, err := svc.Compare(ctx, rep.SessionUUID, g, &broken); !errors.Is(err, detect.ErrMalformedGrid) {
		t.Fatalf("expected ErrMalformedGrid, got %v", err)
	}
	st, _ := svc.Status(ctx, rep.SessionUUID)
	if st.Seq != 0 {
		t.Fatalf("malformed comparison must not be recorded")
	}
}
