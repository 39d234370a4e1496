package ws

import (
	"context"
	"sync"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

// Connector — канал событий, который подключается при первой отправке и
// переподключается после обрыва. Ошибка подключения возвращается как ошибка отправки.
type Connector struct {
	endpoint string
	token    string
	dial     func(ctx context.Context, endpoint, token string) (*Channel, error)
	subs     *registry

	mu      sync.Mutex
	current *Channel
	room    string
	closed  bool
}

var _ repository.PushChannel = (*Connector)(nil)

// NewConnector создаёт канал без подключения.
func NewConnector(endpoint, token string) *Connector {
	return &Connector{
		endpoint: endpoint,
		token:    token,
		dial:     Dial,
		subs:     newRegistry(),
	}
}

// JoinRoom подключается при необходимости и входит в комнату.
// Вход повторяется после каждого переподключения.
func (c *Connector) JoinRoom(ctx context.Context, actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Комнату запоминаем до подключения: если оно не удалось, вход повторится
	// при следующем успешном подключении.
	c.room = actorID
	ch, fresh, err := c.ensureLocked(ctx)
	if err != nil {
		return err
	}
	if fresh {
		return nil
	}
	return ch.JoinRoom(ctx, actorID)
}

func (c *Connector) SendMessage(ctx context.Context, msg repository.OutgoingMessage) error {
	c.mu.Lock()
	ch, _, err := c.ensureLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return ch.SendMessage(ctx, msg)
}

func (c *Connector) Subscribe(handler repository.PushHandler) repository.Subscription {
	return c.subs.add(handler)
}

// Close закрывает текущее подключение; после него отправка возвращает ErrChannelClosed.
func (c *Connector) Close() error {
	c.mu.Lock()
	c.closed = true
	ch := c.current
	c.current = nil
	c.mu.Unlock()

	if ch != nil {
		return ch.Close()
	}
	return nil
}

// ensureLocked возвращает живое подключение. fresh означает, что оно только что открыто.
func (c *Connector) ensureLocked(ctx context.Context) (*Channel, bool, error) {
	if c.closed {
		return nil, false, apperror.ErrChannelClosed
	}
	if c.current != nil {
		select {
		case <-c.current.Done():
			c.current = nil
		default:
			return c.current, false, nil
		}
	}

	ch, err := c.dial(ctx, c.endpoint, c.token)
	if err != nil {
		logger.Log.WithError(err).Warn("ws: подключение не удалось")
		return nil, false, err
	}
	ch.Subscribe(repository.PushHandler{
		OnMessage: func(msg entity.Message) {
			c.subs.dispatch(func(h repository.PushHandler) {
				if h.OnMessage != nil {
					h.OnMessage(msg)
				}
			})
		},
		OnError: func(text string) {
			c.subs.dispatch(func(h repository.PushHandler) {
				if h.OnError != nil {
					h.OnError(text)
				}
			})
		},
		OnDisconnect: func(err error) {
			c.subs.dispatch(func(h repository.PushHandler) {
				if h.OnDisconnect != nil {
					h.OnDisconnect(err)
				}
			})
		},
	})

	if c.room != "" {
		if err := ch.JoinRoom(ctx, c.room); err != nil {
			_ = ch.Close()
			return nil, false, err
		}
	}
	c.current = ch
	return ch, true, nil
}
