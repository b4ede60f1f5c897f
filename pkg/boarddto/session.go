package boarddto

import "time"

type Square struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Name string `json:"name"`
}

type Outcome struct {
	Status     string  `json:"status"`
	Kind       string  `json:"kind,omitempty"`
	Move       string  `json:"move,omitempty"`
	From       *Square `json:"from,omitempty"`
	To         *Square `json:"to,omitempty"`
	Piece      string  `json:"piece,omitempty"`
	Captured   string  `json:"captured,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	TurnBefore int     `json:"turn_before"`
	TurnAfter  int     `json:"turn_after"`
}

// SessionState is returned by every session endpoint. Outcome and Changes
// are only present after a comparison.
type SessionState struct {
	SessionUUID string     `json:"session_uuid"`
	Board       [][]string `json:"board"`
	Turn        int        `json:"turn"`
	SideToMove  string     `json:"side_to_move"`
	FEN         string     `json:"fen"`
	Seq         int        `json:"seq"`
	Seeded      bool       `json:"seeded,omitempty"`
	Outcome     *Outcome   `json:"outcome,omitempty"`
	Changes     []Square   `json:"changes,omitempty"`
	Message     string     `json:"message,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
