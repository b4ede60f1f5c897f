package session

import (
	"context"
	"errors"
	"time"

	"github.com/park285/boardwatch/internal/resolver"
)

var (
	ErrSessionNotFound = errors.New("board session not found")
	ErrSessionExists   = errors.New("board session already exists")
)

// Payload is the persisted form of one tracked game.
type Payload struct {
	SessionUUID string          `json:"session_uuid"`
	State       *resolver.State `json:"state"`
	Seq         int             `json:"seq"`
	// Frame is the PNG of the last snapshot fed through Advance.
	Frame       []byte          `json:"frame,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Payload) clone() *Payload {
	if p == nil {
		return nil
	}
	c := *p
	c.State = p.State.Clone()
	if p.Frame != nil {
		c.Frame = append([]byte(nil), p.Frame...)
	}
	return &c
}

// Store keeps session payloads.
// Update runs fn with exclusive access to the payload and persists the result
// only when fn returns nil, so a comparison is either fully applied or not at all.
type Store interface {
	Create(ctx context.Context, p *Payload) error
	Load(ctx context.Context, id string) (*Payload, error)
	Update(ctx context.Context, id string, fn func(p *Payload) error) (*Payload, error)
	Close() error
}
