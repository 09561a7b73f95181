package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"token-intel/internal/domain"
	"token-intel/internal/storage"
)

// ChatStore implements storage.ChatStore using PostgreSQL.
type ChatStore struct {
	pool *Pool
}

// NewChatStore creates a new ChatStore.
func NewChatStore(pool *Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChatStore = (*ChatStore)(nil)

// CreateChat inserts a chat. Returns ErrDuplicateKey if the id exists.
func (s *ChatStore) CreateChat(ctx context.Context, c *domain.Chat) (err error) {
	defer func(start time.Time) { observe("create_chat", start, err) }(time.Now())
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO chats (id, user_id, title, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, $5, now()))
	`

	_, err = s.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Title,
		visibilityOrDefault(c.Visibility),
		nullTime(c.CreatedAt),
		nullTime(c.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

// GetChat returns a chat with its messages. Returns ErrNotFound if not exists.
func (s *ChatStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	query := `
		SELECT id, user_id, title, visibility, created_at, updated_at
		FROM chats
		WHERE id = $1
	`

	start := time.Now()
	c, err := scanChat(s.pool.QueryRow(ctx, query, id))
	observe("get_chat", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Messages = make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		c.Messages = append(c.Messages, *m)
	}
	return c, nil
}

// ListChats returns the chats of a user, most recently updated first.
func (s *ChatStore) ListChats(ctx context.Context, userID string, limit int) ([]*domain.Chat, error) {
	query := `
		SELECT id, user_id, title, visibility, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY updated_at DESC, id ASC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		observe("list_chats", start, err)
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	err = rows.Err()
	observe("list_chats", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, nil
}

// UpdateTitle renames a chat. Returns ErrNotFound if not exists.
func (s *ChatStore) UpdateTitle(ctx context.Context, id, title string) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `UPDATE chats SET title = $2, updated_at = now() WHERE id = $1`, id, title)
	observe("update_title", start, err)
	if err != nil {
		return fmt.Errorf("update chat title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteChat removes a chat; messages go with it through ON DELETE CASCADE.
func (s *ChatStore) DeleteChat(ctx context.Context, id string) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	observe("delete_chat", start, err)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendMessages adds messages to a chat atomically and bumps its updated time.
func (s *ChatStore) AppendMessages(ctx context.Context, chatID string, msgs []*domain.Message) (err error) {
	defer func(start time.Time) { observe("append_messages", start, err) }(time.Now())
	for _, m := range msgs {
		if m == nil || m.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE chats SET updated_at = now() WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`
			INSERT INTO messages (id, chat_id, role, content, created_at)
			VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		`, m.ID, chatID, m.Role, content(m.Content), nullTime(m.CreatedAt))
	}

	br := tx.SendBatch(ctx, batch)
	for range msgs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert message: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Messages returns the messages of a chat, oldest first.
func (s *ChatStore) Messages(ctx context.Context, chatID string) ([]*domain.Message, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check chat: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}
	return s.messages(ctx, chatID)
}

func (s *ChatStore) messages(ctx context.Context, chatID string) ([]*domain.Message, error) {
	query := `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, chatID)
	if err != nil {
		observe("list_messages", start, err)
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var raw []byte
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &raw, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Content = json.RawMessage(raw)
		msgs = append(msgs, &m)
	}
	err = rows.Err()
	observe("list_messages", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// scanChat scans a single row into Chat.
func scanChat(row pgx.Row) (*domain.Chat, error) {
	var c domain.Chat
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.Visibility,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func visibilityOrDefault(v string) string {
	if v == "" {
		return domain.VisibilityPrivate
	}
	return v
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// content passes JSON through as text so the jsonb column stores it verbatim.
func content(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
