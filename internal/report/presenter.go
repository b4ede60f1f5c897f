package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/park285/boardwatch/internal/notify"
	"github.com/park285/boardwatch/internal/render"
	"github.com/park285/boardwatch/internal/session"
	"go.uber.org/zap"
)

// Presenter pushes formatted reports, optionally with a board image, to an
// egress.
type Presenter struct {
	formatter *Formatter
	egress    notify.Egress
	logger    *zap.Logger
	images    bool
}

func NewPresenter(f *Formatter, egress notify.Egress, images bool, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if egress == nil {
		egress = notify.NewEgress("", nil, nil, logger)
	}
	return &Presenter{formatter: f, egress: egress, logger: logger, images: images}
}

// BoardPNG renders the report's board with the last move highlighted.
func BoardPNG(ctx context.Context, rep *session.Report) ([]byte, error) {
	return render.RenderPNG(ctx, rep.Board, render.Options{
		Highlight: Highlight(rep),
		Header:    fmt.Sprintf("Turn %d - %s to move", rep.Turn, rep.SideToMove),
		Footer:    footer(rep),
	})
}

func footer(rep *session.Report) string {
	if rep.Outcome == nil {
		return ""
	}
	if mv := rep.Outcome.UCI(); mv != "" {
		return mv + " (" + rep.Outcome.Status.String() + ")"
	}
	return rep.Outcome.Status.String()
}

// Publish sends the outcome of rep and returns the text that was sent.
func (p *Presenter) Publish(ctx context.Context, rep *session.Report) (string, error) {
	if rep == nil {
		return "", nil
	}
	ev := notify.Event{
		Type:        notify.EventOutcome,
		SessionUUID: rep.SessionUUID,
		Seq:         int64(rep.Seq),
		Text:        p.formatter.Full(rep),
		Turn:        int(rep.Turn),
		FEN:         rep.FEN,
		At:          time.Now(),
	}
	if rep.Outcome != nil {
		ev.Status = rep.Outcome.Status.String()
		ev.Move = rep.Outcome.UCI()
	}
	if rep.Seeded {
		ev.Type = notify.EventSession
	}
	if p.images {
		raw, err := BoardPNG(ctx, rep)
		if err != nil {
			p.logger.Warn("board_render_failed", zap.Error(err), zap.String("session_uuid", rep.SessionUUID))
		} else {
			ev.ImagePNG = base64.StdEncoding.EncodeToString(raw)
		}
	}
	if err := p.egress.Send(ctx, ev); err != nil {
		return ev.Text, fmt.Errorf("publish outcome: %w", err)
	}
	return ev.Text, nil
}

// Started announces a new session.
func (p *Presenter) Started(ctx context.Context, rep *session.Report) error {
	if rep == nil {
		return nil
	}
	return p.egress.Send(ctx, notify.Event{
		Type:        notify.EventSession,
		SessionUUID: rep.SessionUUID,
		Text:        p.formatter.Started(rep),
		Turn:        int(rep.Turn),
		FEN:         rep.FEN,
		At:          time.Now(),
	})
}
