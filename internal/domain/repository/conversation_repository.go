package repository

import (
	"context"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
)

// ConversationRepository — запросы истории переписки через HTTP API.
type ConversationRepository interface {
	ListConversations(ctx context.Context, actorID string) ([]entity.Conversation, error)
	FindUser(ctx context.Context, userID string) (*entity.Participant, error)
	History(ctx context.Context, actorID, counterpartID string) ([]entity.Message, error)
}
