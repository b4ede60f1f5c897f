package boarddto

import "time"

type MoveRecord struct {
	Seq        int       `json:"seq"`
	Status     string    `json:"status"`
	Kind       string    `json:"kind,omitempty"`
	Piece      string    `json:"piece,omitempty"`
	Captured   string    `json:"captured,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Changes    []string  `json:"changes"`
	TurnBefore int       `json:"turn_before"`
	TurnAfter  int       `json:"turn_after"`
	FEN        string    `json:"fen"`
	CreatedAt  time.Time `json:"created_at"`
}

type History struct {
	SessionUUID string       `json:"session_uuid"`
	Moves       []MoveRecord `json:"moves"`
}
