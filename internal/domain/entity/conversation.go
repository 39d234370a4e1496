package entity

import (
	"time"
)

// Participant — собеседник, данные берутся из справочника пользователей.
type Participant struct {
	ID       string
	Username string
	Avatar   string
}

// Conversation идентифицируется id собеседника.
// Synthetic выставляется, когда беседы нет в списке и участник найден отдельным запросом.
type Conversation struct {
	Participant Participant
	Synthetic   bool
}

func (c Conversation) CounterpartID() string {
	return c.Participant.ID
}

type Message struct {
	ID            string
	CorrelationID string
	Sender        string
	Receiver      string
	Content       string
	Timestamp     time.Time

	// Pending — локальное эхо, ещё не подтверждённое сервером.
	Pending bool
	// Failed — отправка эха завершилась ошибкой канала.
	Failed bool
}

// BelongsTo проверяет, что сообщение относится к паре участников в любом направлении.
func (m Message) BelongsTo(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// Counterpart возвращает второго участника переписки относительно actorID.
func (m Message) Counterpart(actorID string) (string, bool) {
	switch actorID {
	case m.Sender:
		return m.Receiver, true
	case m.Receiver:
		return m.Sender, true
	}
	return "", false
}
