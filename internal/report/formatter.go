// Package report turns session reports into user-facing text, DTOs and
// pushed notifications.
package report

import (
	"strings"

	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/msgcat"
	"github.com/park285/boardwatch/internal/resolver"
	"github.com/park285/boardwatch/internal/session"
)

// Formatter renders reports through the message catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) side(s board.Side) string {
	if s == board.Black {
		return f.cat.Text("side.black", nil)
	}
	return f.cat.Text("side.white", nil)
}

// Outcome describes the result of one comparison. Seeded reports and reports
// without an outcome describe the session instead.
func (f *Formatter) Outcome(rep *session.Report) string {
	if rep == nil {
		return ""
	}
	if rep.Seeded {
		return f.cat.Text("session.seeded", nil)
	}
	out := rep.Outcome
	if out == nil {
		return f.Turn(rep)
	}

	data := map[string]any{
		"Piece":     out.Piece.String(),
		"Captured":  out.Captured.String(),
		"From":      out.From.String(),
		"To":        out.To.String(),
		"Side":      f.side(out.Mover()),
		"OtherSide": f.side(out.Mover().Other()),
	}
	switch out.Status {
	case resolver.Accepted:
		if out.Kind == resolver.Capture {
			return f.cat.Text("outcome.capture", data)
		}
		return f.cat.Text("outcome.move", data)
	case resolver.Rejected:
		if out.Kind == resolver.Capture {
			return f.cat.Text("outcome.illegal_capture", data)
		}
		return f.cat.Text("outcome.illegal_move", data)
	}

	switch out.Reason {
	case resolver.ReasonNoOccupancy:
		return f.cat.Text("outcome.no_occupancy", nil)
	case resolver.ReasonOutOfRange:
		return f.cat.Text("outcome.out_of_range", nil)
	default:
		return f.cat.Text("outcome.indeterminate", nil)
	}
}

func (f *Formatter) Started(rep *session.Report) string {
	if rep == nil {
		return ""
	}
	return f.cat.Text("session.started", map[string]any{"Session": rep.SessionUUID})
}

func (f *Formatter) Turn(rep *session.Report) string {
	if rep == nil {
		return ""
	}
	return f.cat.Text("session.turn", map[string]any{
		"Turn": int(rep.Turn),
		"Side": f.side(rep.SideToMove),
	})
}

// Full joins the outcome line and the turn line.
func (f *Formatter) Full(rep *session.Report) string {
	lines := []string{f.Outcome(rep)}
	if rep != nil && rep.Outcome != nil {
		lines = append(lines, f.Turn(rep))
	}
	return strings.Join(lines, "\n")
}
