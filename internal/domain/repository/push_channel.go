package repository

import (
	"context"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
)

// OutgoingMessage — полезная нагрузка события sendMessage.
type OutgoingMessage struct {
	SenderID      string
	ReceiverID    string
	Content       string
	CorrelationID string
}

// PushHandler получает события канала. Любое поле может быть nil.
type PushHandler struct {
	OnMessage    func(msg entity.Message)
	OnError      func(text string)
	OnDisconnect func(err error)
}

// Subscription отменяет подписку; после возврата Unsubscribe обработчики больше не вызываются.
type Subscription interface {
	Unsubscribe()
}

// PushChannel — двунаправленный канал событий реального времени.
type PushChannel interface {
	JoinRoom(ctx context.Context, actorID string) error
	SendMessage(ctx context.Context, msg OutgoingMessage) error
	Subscribe(handler PushHandler) Subscription
}
