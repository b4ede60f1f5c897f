package report

import (
	"github.com/park285/boardwatch/internal/board"
	"github.com/park285/boardwatch/internal/domain"
	"github.com/park285/boardwatch/internal/render"
	"github.com/park285/boardwatch/internal/resolver"
	"github.com/park285/boardwatch/internal/session"
	"github.com/park285/boardwatch/pkg/boarddto"
)

func ToDTOSquare(sq board.Square) boarddto.Square {
	return boarddto.Square{Row: sq.Row, Col: sq.Col, Name: sq.String()}
}

func ToDTOState(rep *session.Report, message string) *boarddto.SessionState {
	if rep == nil {
		return nil
	}
	dto := &boarddto.SessionState{
		SessionUUID: rep.SessionUUID,
		Board:       rep.Board.Tags(),
		Turn:        int(rep.Turn),
		SideToMove:  rep.SideToMove.String(),
		FEN:         rep.FEN,
		Seq:         rep.Seq,
		Seeded:      rep.Seeded,
		Outcome:     ToDTOOutcome(rep.Outcome),
		Message:     message,
		StartedAt:   rep.StartedAt,
		UpdatedAt:   rep.UpdatedAt,
	}
	if len(rep.Changes) > 0 {
		dto.Changes = make([]boarddto.Square, 0, len(rep.Changes))
		for _, sq := range rep.Changes {
			dto.Changes = append(dto.Changes, ToDTOSquare(sq))
		}
	}
	return dto
}

func ToDTOOutcome(out *resolver.Outcome) *boarddto.Outcome {
	if out == nil {
		return nil
	}
	dto := &boarddto.Outcome{
		Status:     out.Status.String(),
		Reason:     out.Reason,
		TurnBefore: int(out.TurnBefore),
		TurnAfter:  int(out.TurnAfter),
	}
	if out.Status == resolver.Indeterminate {
		return dto
	}
	from, to := ToDTOSquare(out.From), ToDTOSquare(out.To)
	dto.Kind = out.Kind.String()
	dto.Move = out.UCI()
	dto.From, dto.To = &from, &to
	dto.Piece = out.Piece.String()
	dto.Captured = out.Captured.String()
	return dto
}

func ToDTOHistory(id string, records []*domain.MoveRecord) *boarddto.History {
	h := &boarddto.History{SessionUUID: id, Moves: make([]boarddto.MoveRecord, 0, len(records))}
	for _, r := range records {
		if r == nil {
			continue
		}
		h.Moves = append(h.Moves, boarddto.MoveRecord{
			Seq:        r.Seq,
			Status:     r.Status,
			Kind:       r.Kind,
			Piece:      r.Piece,
			Captured:   r.Captured,
			From:       r.FromSquare,
			To:         r.ToSquare,
			Reason:     r.Reason,
			Changes:    append([]string{}, r.Changes...),
			TurnBefore: r.TurnBefore,
			TurnAfter:  r.TurnAfter,
			FEN:        r.FEN,
			CreatedAt:  r.CreatedAt,
		})
	}
	return h
}

// Highlight marks the last identified move, if any.
func Highlight(rep *session.Report) *render.Highlight {
	if rep == nil || rep.Outcome == nil || rep.Outcome.Status == resolver.Indeterminate {
		return nil
	}
	out := rep.Outcome
	return &render.Highlight{
		From:     out.From,
		To:       out.To,
		Side:     out.Mover(),
		Rejected: out.Status == resolver.Rejected,
	}
}
