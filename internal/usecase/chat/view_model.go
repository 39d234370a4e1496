package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/notify"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-client/internal/session"
	"github.com/ignatzorin/freelance-client/internal/validation"
)

const defaultEchoWindow = 5 * time.Second

// Option настраивает ViewModel.
type Option func(*ViewModel)

// WithClock подменяет источник времени для локальных эхо.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) { vm.now = now }
}

// WithEchoWindow задаёт окно, в котором сообщение сервера без correlationId
// считается подтверждением локального эха с тем же текстом.
func WithEchoWindow(d time.Duration) Option {
	return func(vm *ViewModel) {
		if d > 0 {
			vm.echoWindow = d
		}
	}
}

// WithIDGenerator подменяет генератор correlationId.
func WithIDGenerator(gen func() string) Option {
	return func(vm *ViewModel) { vm.newID = gen }
}

// ViewModel — состояние экрана чата: список бесед, выбранная беседа и её сообщения.
type ViewModel struct {
	mu       sync.Mutex
	session  *session.Session
	repo     repository.ConversationRepository
	channel  repository.PushChannel
	notifier notify.Notifier

	now        func() time.Time
	newID      func() string
	echoWindow time.Duration

	sub    repository.Subscription
	joined bool
	closed bool

	conversationsLoaded bool
	conversations       []entity.Conversation

	selected  string
	selectSeq uint64
	loading   bool
	messages  []entity.Message
	unread    map[string]int
}

// NewViewModel создаёт view-model чата для пользователя из sess.
func NewViewModel(sess *session.Session, repo repository.ConversationRepository, channel repository.PushChannel, notifier notify.Notifier, opts ...Option) *ViewModel {
	vm := &ViewModel{
		session:    sess,
		repo:       repo,
		channel:    channel,
		notifier:   notifier,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
		echoWindow: defaultEchoWindow,
		unread:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Open подписывается на канал и входит в комнату пользователя.
// Подписка создаётся один раз; при ошибке входа Open можно вызвать повторно.
func (vm *ViewModel) Open(ctx context.Context) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return apperror.ErrChannelClosed
	}
	if vm.joined {
		vm.mu.Unlock()
		return nil
	}
	if vm.sub == nil {
		vm.sub = vm.channel.Subscribe(repository.PushHandler{
			OnMessage:    vm.handleIncoming,
			OnError:      vm.handleChannelError,
			OnDisconnect: vm.handleDisconnect,
		})
	}
	vm.mu.Unlock()

	if err := vm.channel.JoinRoom(ctx, vm.session.ActorID); err != nil {
		vm.notifier.Error("chat.join", err)
		return err
	}

	vm.mu.Lock()
	vm.joined = true
	vm.mu.Unlock()
	return nil
}

// LoadConversations загружает список бесед один раз. Если routeCounterpart задан и его
// нет в списке, участник ищется отдельным запросом и добавляется как синтетическая беседа.
func (vm *ViewModel) LoadConversations(ctx context.Context, routeCounterpart string) error {
	vm.mu.Lock()
	loaded := vm.conversationsLoaded
	vm.mu.Unlock()

	if !loaded {
		convs, err := vm.repo.ListConversations(ctx, vm.session.ActorID)
		if err != nil {
			vm.notifier.Error("chat.conversations", err)
			return err
		}
		vm.mu.Lock()
		vm.conversations = convs
		vm.conversationsLoaded = true
		vm.mu.Unlock()
	}

	if routeCounterpart == "" || routeCounterpart == vm.session.ActorID {
		return nil
	}
	if err := validation.ValidateUserID(routeCounterpart); err != nil {
		return err
	}

	vm.mu.Lock()
	_, known := vm.findConversation(routeCounterpart)
	vm.mu.Unlock()
	if known {
		return nil
	}

	participant, err := vm.repo.FindUser(ctx, routeCounterpart)
	if err != nil {
		vm.notifier.Error("chat.lookup_user", err)
		return err
	}

	vm.mu.Lock()
	if _, known := vm.findConversation(routeCounterpart); !known {
		vm.conversations = append(vm.conversations, entity.Conversation{Participant: *participant, Synthetic: true})
	}
	vm.mu.Unlock()
	return nil
}

// Select делает беседу активной и загружает её историю одним запросом.
// История целиком заменяет список сообщений; ответ для прежнего выбора отбрасывается.
func (vm *ViewModel) Select(ctx context.Context, counterpartID string) error {
	if err := validation.ValidateUserID(counterpartID); err != nil {
		return err
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return apperror.ErrChannelClosed
	}
	vm.selectSeq++
	seq := vm.selectSeq
	vm.selected = counterpartID
	vm.messages = nil
	vm.loading = true
	delete(vm.unread, counterpartID)
	vm.mu.Unlock()

	history, err := vm.repo.History(ctx, vm.session.ActorID, counterpartID)

	vm.mu.Lock()
	if seq != vm.selectSeq || vm.closed {
		vm.mu.Unlock()
		logger.Log.WithField("counterpart", counterpartID).Debug("chat vm: устаревшая история отброшена")
		return nil
	}
	vm.loading = false

	// Живые сообщения и эхо, пришедшие во время загрузки, идут после истории.
	// Если история не загрузилась, остаются только они.
	live := vm.messages
	vm.messages = make([]entity.Message, 0, len(history)+len(live))
	vm.messages = append(vm.messages, history...)
	for _, m := range live {
		vm.mergeLocked(m)
	}
	vm.mu.Unlock()

	if err != nil {
		vm.notifier.Error("chat.history", err)
		return err
	}
	return nil
}

// Send добавляет локальное эхо сообщения и отправляет его в канал.
// Ошибка канала помечает эхо как неотправленное; повторные попытки не блокируются.
func (vm *ViewModel) Send(ctx context.Context, content string) (entity.Message, error) {
	if err := validation.ValidateMessageContent(content); err != nil {
		return entity.Message{}, err
	}

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return entity.Message{}, apperror.ErrChannelClosed
	}
	if vm.selected == "" {
		vm.mu.Unlock()
		return entity.Message{}, apperror.ErrNoActiveConversation
	}
	echo := entity.Message{
		CorrelationID: vm.newID(),
		Sender:        vm.session.ActorID,
		Receiver:      vm.selected,
		Content:       content,
		Timestamp:     vm.now(),
		Pending:       true,
	}
	vm.messages = append(vm.messages, echo)
	vm.mu.Unlock()

	err := vm.channel.SendMessage(ctx, repository.OutgoingMessage{
		SenderID:      echo.Sender,
		ReceiverID:    echo.Receiver,
		Content:       echo.Content,
		CorrelationID: echo.CorrelationID,
	})
	if err != nil {
		vm.mu.Lock()
		for i := range vm.messages {
			if vm.messages[i].CorrelationID == echo.CorrelationID && vm.messages[i].Pending {
				vm.messages[i].Failed = true
			}
		}
		vm.mu.Unlock()
		vm.notifier.Error("chat.send", err)
		echo.Failed = true
		return echo, err
	}
	return echo, nil
}

// Close отписывается от канала. После возврата обработчики не меняют состояние.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	sub := vm.sub
	vm.sub = nil
	vm.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Messages возвращает копию видимых сообщений.
func (vm *ViewModel) Messages() []entity.Message {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]entity.Message, len(vm.messages))
	copy(out, vm.messages)
	return out
}

// Conversations возвращает копию списка бесед.
func (vm *ViewModel) Conversations() []entity.Conversation {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]entity.Conversation, len(vm.conversations))
	copy(out, vm.conversations)
	return out
}

// Selected возвращает активную беседу.
func (vm *ViewModel) Selected() (entity.Conversation, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.selected == "" {
		return entity.Conversation{}, false
	}
	if conv, ok := vm.findConversation(vm.selected); ok {
		return conv, true
	}
	return entity.Conversation{Participant: entity.Participant{ID: vm.selected}}, true
}

// Loading сообщает, что история активной беседы ещё загружается.
func (vm *ViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

// Unread возвращает число сообщений, пришедших в неактивную беседу.
func (vm *ViewModel) Unread(counterpartID string) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.unread[counterpartID]
}

// UnreadCounts возвращает счётчики непрочитанных по всем собеседникам,
// в том числе по тем, кого нет в списке бесед.
func (vm *ViewModel) UnreadCounts() map[string]int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make(map[string]int, len(vm.unread))
	for id, n := range vm.unread {
		out[id] = n
	}
	return out
}

func (vm *ViewModel) handleIncoming(msg entity.Message) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}

	other, ok := msg.Counterpart(vm.session.ActorID)
	if !ok {
		logger.Log.WithFields(logrus.Fields{"sender": msg.Sender, "receiver": msg.Receiver}).
			Debug("chat vm: чужое сообщение пропущено")
		return
	}
	if !msg.BelongsTo(vm.session.ActorID, vm.selected) {
		vm.unread[other]++
		return
	}
	msg.Pending = false
	vm.mergeLocked(msg)
}

func (vm *ViewModel) handleChannelError(text string) {
	vm.mu.Lock()
	closed := vm.closed
	vm.mu.Unlock()
	if closed {
		return
	}
	vm.notifier.Error("chat.message_error", apperror.New(apperror.ErrCodeChannel, text))
}

func (vm *ViewModel) handleDisconnect(err error) {
	vm.mu.Lock()
	closed := vm.closed
	vm.joined = false
	vm.mu.Unlock()
	if closed {
		return
	}
	vm.notifier.Error("chat.disconnect", apperror.Wrap(err, apperror.ErrCodeNetwork, "соединение с чатом потеряно"))
}

// mergeLocked добавляет сообщение в конец списка. Подтверждение сервером
// заменяет соответствующее эхо на его месте, повторная доставка игнорируется.
// Неотправленное эхо никогда не считается подтверждённым.
func (vm *ViewModel) mergeLocked(msg entity.Message) {
	if msg.ID != "" {
		for _, m := range vm.messages {
			if m.ID == msg.ID {
				return
			}
		}
	}

	if msg.CorrelationID != "" {
		for i, m := range vm.messages {
			if m.CorrelationID != msg.CorrelationID || m.Failed {
				continue
			}
			if m.Pending && !msg.Pending {
				vm.messages[i] = confirmed(msg)
			}
			return
		}
	}

	// Сервер может не вернуть correlationId: сверяем автора, получателя, текст и время.
	if msg.Sender == vm.session.ActorID {
		for i, m := range vm.messages {
			if m.Failed || msg.Failed || m.Pending == msg.Pending || !sameText(m, msg) || !withinWindow(m.Timestamp, msg.Timestamp, vm.echoWindow) {
				continue
			}
			echo, server := m, msg
			if msg.Pending {
				echo, server = msg, m
			}
			if server.CorrelationID != "" && server.CorrelationID != echo.CorrelationID {
				continue
			}
			if m.Pending {
				vm.messages[i] = confirmed(msg)
				vm.messages[i].CorrelationID = m.CorrelationID
			}
			return
		}
	}

	vm.messages = append(vm.messages, msg)
}

func sameText(a, b entity.Message) bool {
	return a.Sender == b.Sender && a.Receiver == b.Receiver && a.Content == b.Content
}

func (vm *ViewModel) findConversation(counterpartID string) (entity.Conversation, bool) {
	for _, c := range vm.conversations {
		if c.CounterpartID() == counterpartID {
			return c, true
		}
	}
	return entity.Conversation{}, false
}

func confirmed(msg entity.Message) entity.Message {
	msg.Pending = false
	msg.Failed = false
	return msg
}

// withinWindow считает совпадением и сообщение без времени: его не с чем сравнить.
func withinWindow(a, b time.Time, window time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
