// Package storage provides the session storage adapters: a read-mostly view
// over the Claude CLI's own JSONL project logs (native) and a simple
// file-per-session JSON store (fallback).
package storage

import (
	"context"

	"claudeweb/internal/types"
)

// Mode names the backing store in use.
type Mode string

const (
	ModeNative   Mode = "native"
	ModeFallback Mode = "fallback"
)

// NewMessage is the input to AppendMessage.
type NewMessage struct {
	Role      types.Role
	Content   string
	Timestamp string // optional, defaults to now
}

// Unsubscribe stops a watch. It is safe to call more than once.
type Unsubscribe func()

// Adapter is the contract both stores implement.
type Adapter interface {
	Mode() Mode
	ListSessions(ctx context.Context) ([]types.Session, error)
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, id string) (*types.Session, error)
	CreateSession(ctx context.Context, title string) (*types.Session, error)
	DeleteSession(ctx context.Context, id string) error
	RenameSession(ctx context.Context, id, title string) error
	GetMessages(ctx context.Context, id string) ([]types.Message, error)
	AppendMessage(ctx context.Context, id string, msg NewMessage) (*types.Message, error)
	WatchChanges(handler func(types.StorageEvent)) (Unsubscribe, error)
	// HasHistory reports whether the agent should resume the session
	// rather than start it fresh.
	HasHistory(ctx context.Context, id string) (bool, error)
}
