package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-intel/internal/domain"
	"token-intel/internal/storage"
)

// ChatStore is an in-memory implementation of storage.ChatStore.
type ChatStore struct {
	mu       sync.RWMutex
	chats    map[string]*domain.Chat      // keyed by chat id, messages not set
	messages map[string][]*domain.Message // keyed by chat id, insertion order
	msgIDs   map[string]struct{}
	now      func() time.Time
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		chats:    make(map[string]*domain.Chat),
		messages: make(map[string][]*domain.Message),
		msgIDs:   make(map[string]struct{}),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ storage.ChatStore = (*ChatStore)(nil)

// CreateChat inserts a chat. Returns ErrDuplicateKey if the id exists.
func (s *ChatStore) CreateChat(_ context.Context, c *domain.Chat) error {
	if c == nil || c.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chats[c.ID]; exists {
		return storage.ErrDuplicateKey
	}

	chatCopy := *c
	chatCopy.Messages = nil
	if chatCopy.CreatedAt.IsZero() {
		chatCopy.CreatedAt = s.now().UTC()
	}
	if chatCopy.UpdatedAt.IsZero() {
		chatCopy.UpdatedAt = chatCopy.CreatedAt
	}
	s.chats[c.ID] = &chatCopy
	return nil
}

// GetChat returns a chat with its messages. Returns ErrNotFound if not exists.
func (s *ChatStore) GetChat(_ context.Context, id string) (*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.chats[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	chatCopy := *c
	msgs := s.copyMessages(id)
	chatCopy.Messages = make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		chatCopy.Messages = append(chatCopy.Messages, *m)
	}
	return &chatCopy, nil
}

// ListChats returns the chats of a user, most recently updated first.
func (s *ChatStore) ListChats(_ context.Context, userID string, limit int) ([]*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			chatCopy := *c
			result = append(result, &chatCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateTitle renames a chat. Returns ErrNotFound if not exists.
func (s *ChatStore) UpdateTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.chats[id]
	if !exists {
		return storage.ErrNotFound
	}
	c.Title = title
	c.UpdatedAt = s.now().UTC()
	return nil
}

// DeleteChat removes a chat and its messages. Returns ErrNotFound if not exists.
func (s *ChatStore) DeleteChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chats[id]; !exists {
		return storage.ErrNotFound
	}
	for _, m := range s.messages[id] {
		delete(s.msgIDs, m.ID)
	}
	delete(s.messages, id)
	delete(s.chats, id)
	return nil
}

// AppendMessages adds messages to a chat. The batch is rejected as a whole
// on any duplicate id.
func (s *ChatStore) AppendMessages(_ context.Context, chatID string, msgs []*domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.chats[chatID]
	if !exists {
		return storage.ErrNotFound
	}

	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if m == nil || m.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := s.msgIDs[m.ID]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[m.ID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[m.ID] = struct{}{}
	}

	now := s.now().UTC()
	for _, m := range msgs {
		msgCopy := *m
		msgCopy.ChatID = chatID
		if msgCopy.CreatedAt.IsZero() {
			msgCopy.CreatedAt = now
		}
		s.messages[chatID] = append(s.messages[chatID], &msgCopy)
		s.msgIDs[m.ID] = struct{}{}
	}
	if len(msgs) > 0 {
		c.UpdatedAt = now
	}
	return nil
}

// Messages returns the messages of a chat, oldest first.
func (s *ChatStore) Messages(_ context.Context, chatID string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.chats[chatID]; !exists {
		return nil, storage.ErrNotFound
	}
	return s.copyMessages(chatID), nil
}

// copyMessages must be called with the lock held.
func (s *ChatStore) copyMessages(chatID string) []*domain.Message {
	src := s.messages[chatID]
	out := make([]*domain.Message, 0, len(src))
	for _, m := range src {
		msgCopy := *m
		out = append(out, &msgCopy)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
