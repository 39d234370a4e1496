package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

var _ repository.ConversationRepository = (*Client)(nil)

// ListConversations обслуживает GET /api/messages/conversations/{actorId}.
func (c *Client) ListConversations(ctx context.Context, actorID string) ([]entity.Conversation, error) {
	var users []userDTO
	if err := c.get(ctx, "/api/messages/conversations/"+url.PathEscape(actorID), &users); err != nil {
		return nil, err
	}

	convs := make([]entity.Conversation, 0, len(users))
	for _, u := range users {
		p := u.toParticipant()
		if p.ID == "" || p.ID == actorID {
			continue
		}
		convs = append(convs, entity.Conversation{Participant: p})
	}
	return convs, nil
}

// FindUser обслуживает GET /api/auth/users/{id}.
func (c *Client) FindUser(ctx context.Context, userID string) (*entity.Participant, error) {
	var u userDTO
	if err := c.get(ctx, "/api/auth/users/"+url.PathEscape(userID), &u); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	p := u.toParticipant()
	if p.ID == "" {
		p.ID = userID
	}
	return &p, nil
}

// History обслуживает GET /api/messages/{actorId}/{counterpartId}.
// Порядок сообщений сохраняется таким, каким его вернул сервер.
func (c *Client) History(ctx context.Context, actorID, counterpartID string) ([]entity.Message, error) {
	var dtos []MessageDTO
	path := fmt.Sprintf("/api/messages/%s/%s", url.PathEscape(actorID), url.PathEscape(counterpartID))
	if err := c.get(ctx, path, &dtos); err != nil {
		return nil, err
	}

	msgs := make([]entity.Message, 0, len(dtos))
	for _, d := range dtos {
		msgs = append(msgs, d.ToEntity())
	}
	return msgs, nil
}
