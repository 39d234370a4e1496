package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-client/internal/api"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/goroutine"
	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 16
)

// Имена событий канала.
const (
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventMessageError   = "messageError"
)

// Event — конверт события: "type" содержит имя события, "data" — полезную нагрузку.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type sendMessagePayload struct {
	SenderID      string `json:"senderId"`
	ReceiverID    string `json:"receiverId"`
	Content       string `json:"content"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Channel — одно долгоживущее WebSocket подключение к серверу событий.
type Channel struct {
	conn      *websocket.Conn
	send      chan outbound
	pingEvery time.Duration
	subs      *registry

	mu         sync.Mutex
	done       chan struct{}
	closeOnce  sync.Once
	closedByUs bool
}

// outbound — событие в очереди на запись; result получает итог записи в сокет.
type outbound struct {
	raw    []byte
	result chan error
}

var _ repository.PushChannel = (*Channel)(nil)

// Dial открывает подключение к endpoint. Токен передаётся и в query (?token=),
// и в заголовке Authorization.
func Dial(ctx context.Context, endpoint, token string) (*Channel, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeChannel, "некорректный адрес канала сообщений")
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNetwork, "не удалось подключиться к каналу сообщений")
	}

	c := &Channel{
		conn:      conn,
		send:      make(chan outbound, sendBuffer),
		pingEvery: pingPeriod,
		subs:      newRegistry(),
		done:      make(chan struct{}),
	}
	goroutine.SafeGo(c.writePump)
	goroutine.SafeGo(c.readPump)
	return c, nil
}

// JoinRoom подписывает подключение на комнату пользователя.
func (c *Channel) JoinRoom(ctx context.Context, actorID string) error {
	return c.emit(ctx, EventJoinRoom, actorID)
}

// SendMessage отправляет сообщение собеседнику.
func (c *Channel) SendMessage(ctx context.Context, msg repository.OutgoingMessage) error {
	return c.emit(ctx, EventSendMessage, sendMessagePayload{
		SenderID:      msg.SenderID,
		ReceiverID:    msg.ReceiverID,
		Content:       msg.Content,
		CorrelationID: msg.CorrelationID,
	})
}

// Subscribe регистрирует обработчик событий.
// Unsubscribe нельзя вызывать изнутри самого обработчика.
func (c *Channel) Subscribe(handler repository.PushHandler) repository.Subscription {
	return c.subs.add(handler)
}

// Done закрывается, когда подключение завершено.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close закрывает подключение. Повторный вызов безопасен.
func (c *Channel) Close() error {
	c.shutdown(true)
	return nil
}

func (c *Channel) emit(ctx context.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать %s: %w", event, err)
	}
	raw, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case <-c.done:
		return apperror.ErrChannelClosed
	default:
	}

	req := outbound{raw: raw, result: make(chan error, 1)}
	select {
	case c.send <- req:
	case <-c.done:
		return apperror.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Успех только после записи в сокет: событие из очереди закрытого канала потеряно.
	select {
	case err := <-req.result:
		return err
	case <-c.done:
		select {
		case err := <-req.result:
			return err
		default:
			return apperror.ErrChannelClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) shutdown(byUs bool) bool {
	first := false
	c.closeOnce.Do(func() {
		first = true
		c.mu.Lock()
		c.closedByUs = byUs
		c.mu.Unlock()
		close(c.done)
		if byUs {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		}
		_ = c.conn.Close()
	})
	return first
}

func (c *Channel) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.shutdown(false) {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Log.WithError(err).Warn("ws: соединение потеряно")
				}
				c.dispatchDisconnect(err)
			}
			return
		}
		c.handleRaw(raw)
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case req := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, req.raw); err != nil {
				req.result <- apperror.Wrap(err, apperror.ErrCodeNetwork, "не удалось отправить событие")
				c.failWrite(err)
				return
			}
			req.result <- nil
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.failWrite(err)
				return
			}
		}
	}
}

// failWrite закрывает подключение после ошибки записи, не дожидаясь таймаута чтения.
func (c *Channel) failWrite(err error) {
	logger.Log.WithError(err).Warn("ws: ошибка записи")
	if c.shutdown(false) {
		c.dispatchDisconnect(err)
	}
}

func (c *Channel) handleRaw(raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		logger.Log.WithError(err).Debug("ws: пропущено некорректное событие")
		return
	}

	log := logger.Log.WithFields(logrus.Fields{"event": ev.Type})
	switch ev.Type {
	case EventReceiveMessage:
		var dto api.MessageDTO
		if err := json.Unmarshal(ev.Data, &dto); err != nil {
			log.WithError(err).Warn("ws: некорректное сообщение")
			return
		}
		msg := dto.ToEntity()
		c.dispatch(func(h repository.PushHandler) {
			if h.OnMessage != nil {
				h.OnMessage(msg)
			}
		})
	case EventMessageError:
		text := decodeErrorText(ev.Data)
		c.dispatch(func(h repository.PushHandler) {
			if h.OnError != nil {
				h.OnError(text)
			}
		})
	default:
		log.Debug("ws: неизвестное событие")
	}
}

// decodeErrorText принимает и строку, и объект {"message": ...}.
func decodeErrorText(data json.RawMessage) string {
	var text string
	if err := json.Unmarshal(data, &text); err == nil && text != "" {
		return text
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	return "ошибка отправки сообщения"
}

func (c *Channel) dispatchDisconnect(err error) {
	c.mu.Lock()
	byUs := c.closedByUs
	c.mu.Unlock()
	if byUs {
		return
	}
	if err == nil {
		err = errors.New("connection closed")
	}
	c.dispatch(func(h repository.PushHandler) {
		if h.OnDisconnect != nil {
			h.OnDisconnect(err)
		}
	})
}

func (c *Channel) dispatch(call func(h repository.PushHandler)) {
	c.subs.dispatch(call)
}

// registry — набор подписчиков; общий для Channel и Connector.
type registry struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
}

func newRegistry() *registry {
	return &registry{subs: make(map[uint64]*subscription)}
}

func (r *registry) add(handler repository.PushHandler) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &subscription{id: r.nextID, owner: r, handler: handler, active: true}
	r.subs[sub.id] = sub
	return sub
}

func (r *registry) dispatch(call func(h repository.PushHandler)) {
	r.mu.RLock()
	subs := make([]*subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	for _, s := range subs {
		s.deliver(call)
	}
}

type subscription struct {
	id      uint64
	owner   *registry
	handler repository.PushHandler

	mu     sync.Mutex
	active bool
}

func (s *subscription) deliver(call func(h repository.PushHandler)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	goroutine.SafeCall(func() { call(s.handler) })
}

// Unsubscribe дожидается завершения текущего вызова обработчика.
func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.owner.mu.Lock()
	delete(s.owner.subs, s.id)
	s.owner.mu.Unlock()
}
