package domain

import (
	"encoding/json"
	"time"
)

// Chat visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Chat is a persisted conversation.
type Chat struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Messages   []Message `json:"messages,omitempty"`
}

// Message is one chat message. Content is opaque JSON owned by the UI.
type Message struct {
	ID        string          `json:"id"`
	ChatID    string          `json:"chatId"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}
