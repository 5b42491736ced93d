package store

import (
	"context"

	"github.com/pkg/errors"
)

// ChatMessageRole is the speaker of a logged chat message.
type ChatMessageRole string

const (
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant"
)

// ChatMessage is one entry of the append-only conversation log.
type ChatMessage struct {
	ID        int64
	UserID    int64
	PlantID   int64
	Role      ChatMessageRole
	Content   string
	CreatedTs int64
}

// FindChatMessage specifies the conditions for finding chat messages.
// Results are ordered newest first.
type FindChatMessage struct {
	UserID  *int64
	PlantID *int64
	Limit   *int
}

// CreateChatMessage appends a message to the log.
func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	switch create.Role {
	case ChatMessageRoleUser, ChatMessageRoleAssistant:
	default:
		return nil, errors.Errorf("invalid chat message role: %q", create.Role)
	}
	return s.driver.CreateChatMessage(ctx, create)
}

func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}
