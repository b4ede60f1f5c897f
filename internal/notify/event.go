// Package notify delivers resolved outcomes to an external consumer over an
// HTTP webhook or a WebSocket.
package notify

import "time"

const (
	EventOutcome = "outcome"
	EventSession = "session"
)

// Event is the JSON document pushed for every session change.
type Event struct {
	Type        string    `json:"type"`
	SessionUUID string    `json:"session_uuid"`
	Seq         int64     `json:"seq"`
	Status      string    `json:"status,omitempty"`
	Move        string    `json:"move,omitempty"`
	Text        string    `json:"text"`
	Turn        int       `json:"turn"`
	FEN         string    `json:"fen,omitempty"`
	ImagePNG    string    `json:"image_png,omitempty"` // base64
	At          time.Time `json:"at"`
}
