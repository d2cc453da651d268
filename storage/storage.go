// Package storage defines how sessions are persisted.
//
// The engine writes a session after each turn and reads it back the
// first time the session is used after a restart.
package storage

import (
	"context"
	"time"

	"github.com/Comcast/chatter/settings"
)

// Turn is a presentation of one remembered turn.
type Turn struct {
	Inputs  []string  `json:"inputs"`
	Outputs []string  `json:"outputs"`
	At      time.Time `json:"at"`
}

// SessionState is a presentation of a session's state as stored in a
// Storage system.
type SessionState struct {
	// Id is the id for the session.
	Id string `json:"id,omitempty"`

	Predicates *settings.Dictionary `json:"predicates"`

	// History is most recent first.
	History []*Turn `json:"history,omitempty"`

	Emotion string             `json:"emotion,omitempty"`
	Mood    map[string]float64 `json:"mood,omitempty"`

	// Deleted indicates that this session should be removed.
	Deleted bool `json:"-" yaml:"-"`
}

// Storage is a persistence interface for sessions.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	// GetSession returns nil (and no error) if there's no such
	// session.
	GetSession(ctx context.Context, id string) (*SessionState, error)

	WriteSessions(ctx context.Context, ss []*SessionState) error

	SessionIds(ctx context.Context) ([]string, error)
}

// NoopStorage stores nothing.
type NoopStorage struct {
}

func (s *NoopStorage) Open(ctx context.Context) error {
	return nil
}

func (s *NoopStorage) Close(ctx context.Context) error {
	return nil
}

func (s *NoopStorage) GetSession(ctx context.Context, id string) (*SessionState, error) {
	return nil, nil
}

func (s *NoopStorage) WriteSessions(ctx context.Context, ss []*SessionState) error {
	return nil
}

func (s *NoopStorage) SessionIds(ctx context.Context) ([]string, error) {
	return nil, nil
}
