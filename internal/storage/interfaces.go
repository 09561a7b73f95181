package storage

import (
	"context"

	"token-intel/internal/domain"
)

// ChatStore persists chats and their messages.
type ChatStore interface {
	// CreateChat inserts a chat. Returns ErrDuplicateKey if the id exists.
	CreateChat(ctx context.Context, c *domain.Chat) error

	// GetChat returns a chat with its messages. Returns ErrNotFound if not exists.
	GetChat(ctx context.Context, id string) (*domain.Chat, error)

	// ListChats returns the chats of a user, most recently updated first,
	// without messages. limit <= 0 means no limit.
	ListChats(ctx context.Context, userID string, limit int) ([]*domain.Chat, error)

	// UpdateTitle renames a chat. Returns ErrNotFound if not exists.
	UpdateTitle(ctx context.Context, id, title string) error

	// DeleteChat removes a chat and its messages. Returns ErrNotFound if not exists.
	DeleteChat(ctx context.Context, id string) error

	// AppendMessages adds messages to a chat and bumps its updated time.
	// Returns ErrNotFound if the chat does not exist, ErrDuplicateKey if a
	// message id exists.
	AppendMessages(ctx context.Context, chatID string, msgs []*domain.Message) error

	// Messages returns the messages of a chat, oldest first.
	Messages(ctx context.Context, chatID string) ([]*domain.Message, error)
}

// VolumeSnapshotStore persists volume analyses. Snapshots are append-only.
type VolumeSnapshotStore interface {
	// InsertBulk adds snapshots. Empty input is a no-op.
	InsertBulk(ctx context.Context, snaps []*domain.VolumeSnapshot) error

	// GetByMint returns snapshots of a mint for one bucket width, newest
	// first. limit <= 0 means no limit.
	GetByMint(ctx context.Context, mint string, bucketMinutes int, limit int) ([]*domain.VolumeSnapshot, error)
}
