package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification — всплывающее сообщение для пользователя.
type Notification struct {
	Level     Level
	Event     string
	Message   string
	CreatedAt time.Time
}

// Notifier принимает уведомления от view-model.
type Notifier interface {
	Info(event, message string)
	Error(event string, err error)
}

// Center логирует уведомления и раздаёт их интерфейсу через канал.
type Center struct {
	mu         sync.Mutex
	ch         chan Notification
	history    []Notification
	maxHistory int
	now        func() time.Time
}

// NewCenter создаёт центр уведомлений с буфером buffer.
// Если интерфейс не успевает читать, новые уведомления остаются только в истории.
func NewCenter(buffer int) *Center {
	if buffer <= 0 {
		buffer = 16
	}
	return &Center{
		ch:         make(chan Notification, buffer),
		maxHistory: 50,
		now:        time.Now,
	}
}

// Notifications возвращает канал для отображения уведомлений.
func (c *Center) Notifications() <-chan Notification {
	return c.ch
}

// Recent возвращает последние уведомления, старые первыми.
func (c *Center) Recent() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Center) Info(event, message string) {
	logger.Log.WithField("event", event).Info(message)
	c.push(Notification{Level: LevelInfo, Event: event, Message: message})
}

func (c *Center) Error(event string, err error) {
	logger.Log.WithFields(logrus.Fields{"event": event}).WithError(err).Warn("ошибка операции")
	c.push(Notification{Level: LevelError, Event: event, Message: apperror.UserMessage(err)})
}

func (c *Center) push(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n.CreatedAt = c.now()
	c.history = append(c.history, n)
	if len(c.history) > c.maxHistory {
		c.history = c.history[len(c.history)-c.maxHistory:]
	}

	select {
	case c.ch <- n:
	default:
	}
}
