package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"token-intel/internal/domain"
)

const (
	userHeader       = "X-User-ID"
	guestUser        = "guest"
	defaultChatLimit = 50
	defaultChatTitle = "New research"
)

type createChatRequest struct {
	Title      string `json:"title" binding:"max=200"`
	Visibility string `json:"visibility" binding:"omitempty,oneof=private public"`
}

type updateChatRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

type messageInput struct {
	Role    string          `json:"role" binding:"required,oneof=user assistant system tool"`
	Content json.RawMessage `json:"content" binding:"required"`
}

type appendMessagesRequest struct {
	Messages []messageInput `json:"messages" binding:"required,min=1,dive"`
}

func userID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(userHeader)); id != "" {
		return id
	}
	return guestUser
}

// ownedChat loads a chat the caller may read. Private chats of other users
// are reported as missing. write requires ownership regardless of visibility.
func (s *Server) ownedChat(c *gin.Context, write bool) (*domain.Chat, bool) {
	chat, err := s.svc.Chats.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	owner := chat.UserID == userID(c)
	if !owner && (write || chat.Visibility != domain.VisibilityPublic) {
		respondError(c, fmt.Errorf("chat %s: %w", c.Param("id"), domain.ErrNotFound))
		return nil, false
	}
	return chat, true
}

func (s *Server) createChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	now := s.now().UTC()
	chat := &domain.Chat{
		ID:         uuid.NewString(),
		UserID:     userID(c),
		Title:      req.Title,
		Visibility: req.Visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if chat.Title == "" {
		chat.Title = defaultChatTitle
	}
	if chat.Visibility == "" {
		chat.Visibility = domain.VisibilityPrivate
	}
	if err := s.svc.Chats.CreateChat(c.Request.Context(), chat); err != nil {
		respondError(c, err)
		return
	}
	respond(c, chat)
}

func (s *Server) listChats(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultChatLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	chats, err := s.svc.Chats.ListChats(c.Request.Context(), userID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, chats)
}

func (s *Server) getChat(c *gin.Context) {
	chat, ok := s.ownedChat(c, false)
	if !ok {
		return
	}
	respond(c, chat)
}

func (s *Server) updateChat(c *gin.Context) {
	var req updateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	chat, ok := s.ownedChat(c, true)
	if !ok {
		return
	}
	if err := s.svc.Chats.UpdateTitle(c.Request.Context(), chat.ID, req.Title); err != nil {
		respondError(c, err)
		return
	}
	chat.Title = req.Title
	chat.Messages = nil
	respond(c, chat)
}

func (s *Server) deleteChat(c *gin.Context) {
	chat, ok := s.ownedChat(c, true)
	if !ok {
		return
	}
	if err := s.svc.Chats.DeleteChat(c.Request.Context(), chat.ID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, gin.H{"id": chat.ID})
}

func (s *Server) appendMessages(c *gin.Context) {
	var req appendMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	chat, ok := s.ownedChat(c, true)
	if !ok {
		return
	}
	msgs := make([]*domain.Message, 0, len(req.Messages))
	for _, in := range req.Messages {
		if !json.Valid(in.Content) {
			respondError(c, fmt.Errorf("%w: message content is not valid JSON", domain.ErrValidation))
			return
		}
		msgs = append(msgs, s.newMessage(chat.ID, in.Role, in.Content))
	}
	if err := s.svc.Chats.AppendMessages(c.Request.Context(), chat.ID, msgs); err != nil {
		respondError(c, err)
		return
	}
	respond(c, msgs)
}

func (s *Server) newMessage(chatID, role string, content json.RawMessage) *domain.Message {
	return &domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
}

// saveResearch appends a research result to a chat as a tool message.
func (s *Server) saveResearch(ctx context.Context, chatID string, res domain.ResearchResult) error {
	content, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.svc.Chats.AppendMessages(ctx, chatID, []*domain.Message{s.newMessage(chatID, "tool", content)})
}
