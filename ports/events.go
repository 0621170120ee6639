package ports

import (
	"context"

	"github.com/layer-3/zklogin/core"
)

// TransitionEvent describes one lifecycle state change
type TransitionEvent struct {
	SessionID string `json:"session_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Address   string `json:"address,omitempty"`
	Digest    string `json:"digest,omitempty"`
}

// NewTransitionEvent builds an event for a session moving from one state to another
func NewTransitionEvent(s *core.Session, from core.State) TransitionEvent {
	ev := TransitionEvent{
		SessionID: s.ID,
		From:      from.String(),
		To:        s.State().String(),
		Address:   s.Address,
	}
	if s.LastResult != nil {
		ev.Digest = s.LastResult.Digest
	}
	return ev
}

// EventPublisher publishes lifecycle events for other processes to observe
type EventPublisher interface {
	PublishTransition(ctx context.Context, event TransitionEvent) error
}
