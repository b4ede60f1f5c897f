// Package session tracks physical games across snapshot comparisons.
package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/detect"
	"github.com/park285/boardwatch/internal/domain"
	"github.com/park285/boardwatch/internal/resolver"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type Config struct {
	Threshold    float64
	Mode         resolver.Mode
	HistoryLimit int
}

// Report is what one service call exposes: the outcome (absent for status
// reads and seeding frames) plus the post-call board and turn.
type Report struct {
	SessionUUID string
	Outcome     *resolver.Outcome
	Changes     detect.ChangeSet
	Board       *board.Board
	Turn        board.Turn
	SideToMove  board.Side
	FEN         string
	Seq         int
	Seeded      bool
	StartedAt   time.Time
	UpdatedAt   time.Time
}

type Service struct {
	store    Store
	repo     Repository
	cmp      detect.Comparator
	resolver *resolver.Resolver
	cfg      Config
	logger   *zap.Logger
}

func NewService(store Store, repo Repository, cmp detect.Comparator, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("move repository is required")
	}
	if cmp == nil {
		cmp = detect.SSIM{}
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = detect.DefaultThreshold
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		repo:     repo,
		cmp:      cmp,
		resolver: resolver.New(cfg.Mode),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start opens a session at the standard start position with turn 1.
func (s *Service) Start(ctx context.Context) (*Report, error) {
	now := time.Now()
	p := &Payload{
		SessionUUID: uuid.NewString(),
		State:       resolver.NewState(),
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session_start",
		zap.String("session_uuid", p.SessionUUID),
		zap.Bool("penalize_illegal", s.cfg.Mode.PenalizeIllegalAttempts),
		zap.Bool("positional_capture", s.cfg.Mode.PositionalCapture),
	)
	return reportFrom(p), nil
}

func (s *Service) Status(ctx context.Context, id string) (*Report, error) {
	p, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return reportFrom(p), nil
}

// Compare detects the changed cells between two grids and resolves them
// against the session state.
func (s *Service) Compare(ctx context.Context, id string, before, after *detect.Grid) (*Report, error) {
	changes, err := detect.Detect(before, after, s.cmp, s.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, id, changes)
}

// Resolve applies an already computed change set. The resolve-and-mutate step
// runs inside the store's critical section.
func (s *Service) Resolve(ctx context.Context, id string, changes detect.ChangeSet) (*Report, error) {
	var outcome resolver.Outcome
	p, err := s.store.Update(ctx, id, func(p *Payload) error {
		outcome = s.apply(p, changes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, p, outcome, changes), nil
}

// Advance feeds the next snapshot of the board. The first frame of a session
// only seeds it; every later frame is compared with the frame before it.
// Reading the previous frame, resolving and storing the new frame happen in
// one store update, so concurrent frames for a session apply one after another.
func (s *Service) Advance(ctx context.Context, id string, frame image.Image) (*Report, error) {
	after, err := detect.Split(frame)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	var (
		seeded  bool
		outcome resolver.Outcome
		changes detect.ChangeSet
	)
	p, err := s.store.Update(ctx, id, func(p *Payload) error {
		seeded, changes = false, nil
		if p.Frame == nil {
			seeded = true
			p.Frame = encoded
			p.UpdatedAt = time.Now()
			return nil
		}
		before, err := decodeGrid(p.Frame)
		if err != nil {
			return err
		}
		changes, err = detect.Detect(before, after, s.cmp, s.cfg.Threshold)
		if err != nil {
			return err
		}
		outcome = s.apply(p, changes)
		p.Frame = encoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if seeded {
		rep := reportFrom(p)
		rep.Seeded = true
		s.logger.Info("session_seeded", zap.String("session_uuid", rep.SessionUUID))
		return rep, nil
	}
	return s.record(ctx, p, outcome, changes), nil
}

// apply resolves changes against p and bumps its sequence. Callers hold the
// store's critical section.
func (s *Service) apply(p *Payload, changes detect.ChangeSet) resolver.Outcome {
	outcome := s.resolver.Resolve(changes, p.State)
	p.Seq++
	p.UpdatedAt = time.Now()
	return outcome
}

func (s *Service) record(ctx context.Context, p *Payload, outcome resolver.Outcome, changes detect.ChangeSet) *Report {
	rep := reportFrom(p)
	rep.Outcome = &outcome
	rep.Changes = changes
	s.logOutcome(rep)

	if _, err := s.repo.InsertMove(ctx, recordFrom(rep)); err != nil {
		s.logger.Warn("move_record_persist_failed",
			zap.Error(err),
			zap.String("session_uuid", rep.SessionUUID),
			zap.Int("seq", rep.Seq),
		)
	}
	return rep
}

func (s *Service) History(ctx context.Context, id string, limit int) ([]*domain.MoveRecord, error) {
	if _, err := s.store.Load(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.RecentMoves(ctx, strings.TrimSpace(id), limit)
}

func (s *Service) Close() error {
	var errs *multierror.Error
	if err := s.store.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := s.repo.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("close repository: %w", err))
	}
	return errs.ErrorOrNil()
}

func (s *Service) logOutcome(rep *Report) {
	out := rep.Outcome
	fields := []zap.Field{
		zap.String("session_uuid", rep.SessionUUID),
		zap.Int("seq", rep.Seq),
		zap.Int("changes", len(rep.Changes)),
		zap.Int("turn_before", int(out.TurnBefore)),
		zap.Int("turn_after", int(out.TurnAfter)),
	}
	switch out.Status {
	case resolver.Accepted:
		s.logger.Info("move_accepted", append(fields,
			zap.String("piece", out.Piece.String()),
			zap.String("kind", out.Kind.String()),
			zap.String("move", out.UCI()),
			zap.String("fen", rep.FEN),
		)...)
	case resolver.Rejected:
		s.logger.Warn("move_rejected", append(fields,
			zap.String("piece", out.Piece.String()),
			zap.String("move", out.UCI()),
			zap.String("reason", out.Reason),
		)...)
	default:
		s.logger.Warn("move_indeterminate", append(fields, zap.String("reason", out.Reason))...)
	}
}

func reportFrom(p *Payload) *Report {
	return &Report{
		SessionUUID: p.SessionUUID,
		Board:       p.State.Board,
		Turn:        p.State.Turn,
		SideToMove:  p.State.Turn.SideToMove(),
		FEN:         p.State.Board.FEN(),
		Seq:         p.Seq,
		StartedAt:   p.StartedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func recordFrom(rep *Report) *domain.MoveRecord {
	out := rep.Outcome
	rec := &domain.MoveRecord{
		SessionUUID: rep.SessionUUID,
		Seq:         rep.Seq,
		Status:      out.Status.String(),
		Kind:        out.Kind.String(),
		Reason:      out.Reason,
		TurnBefore:  int(out.TurnBefore),
		TurnAfter:   int(out.TurnAfter),
		FEN:         rep.FEN,
		CreatedAt:   rep.UpdatedAt,
	}
	if out.Status != resolver.Indeterminate {
		rec.Piece = out.Piece.String()
		rec.Captured = out.Captured.String()
		rec.FromSquare = out.From.String()
		rec.ToSquare = out.To.String()
	}
	rec.Changes = make([]string, 0, len(rep.Changes))
	for _, sq := range rep.Changes {
		rec.Changes = append(rec.Changes, sq.String())
	}
	return rec
}

func decodeGrid(raw []byte) (*detect.Grid, error) {
	img, err := detect.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("previous frame: %w", err)
	}
	g, err := detect.Split(img)
	if err != nil {
		return nil, fmt.Errorf("previous frame: %w", err)
	}
	return g, nil
}

func encodeFrame(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
