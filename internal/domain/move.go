package domain

import "time"

// MoveRecord is one resolved comparison persisted for a session.
type MoveRecord struct {
	ID          int64
	SessionUUID string
	Seq         int
	Status      string
	Kind        string
	Piece       string
	Captured    string
	FromSquare  string
	ToSquare    string
	Reason      string
	Changes     []string
	TurnBefore  int
	TurnAfter   int
	FEN         string
	CreatedAt   time.Time
}
