package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/notify"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-client/internal/usecase/chat"
	"github.com/ignatzorin/freelance-client/internal/usecase/order"
)

// ErrQuit возвращается командой quit.
var ErrQuit = errors.New("cli: выход")

var commandNames = []string{"help", "orders", "do", "review", "earnings", "chats", "open", "say", "messages", "notifications", "logout", "quit"}

// SessionClearer удаляет сохранённую сессию.
type SessionClearer interface {
	Clear() error
}

// Shell — текстовый интерфейс поверх view-model заказов и чата.
type Shell struct {
	orders   *order.ViewModel
	chat     *chat.ViewModel
	center   *notify.Center
	sessions SessionClearer
	out      io.Writer
}

func NewShell(orders *order.ViewModel, chatVM *chat.ViewModel, center *notify.Center, sessions SessionClearer, out io.Writer) *Shell {
	return &Shell{orders: orders, chat: chatVM, center: center, sessions: sessions, out: out}
}

// Execute выполняет одну введённую строку.
func (s *Shell) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		s.printHelp()
	case "quit", "exit":
		return ErrQuit
	case "logout":
		if err := s.sessions.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "сессия удалена")
		return ErrQuit
	case "orders":
		return s.listOrders(ctx, args)
	case "do":
		if len(args) != 2 {
			return usage("do <order-id> <action>")
		}
		if err := s.orders.Perform(ctx, args[0], valueobject.Action(strings.ToLower(args[1]))); err != nil {
			return err
		}
		s.printOrder(args[0])
	case "review":
		if len(args) < 2 {
			return usage("review <order-id> <1-5> [комментарий]")
		}
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return usage("review <order-id> <1-5> [комментарий]")
		}
		return s.orders.SubmitReview(ctx, args[0], repository.ReviewInput{
			Rating:  rating,
			Comment: strings.Join(args[2:], " "),
		})
	case "earnings":
		e := s.orders.Earnings()
		fmt.Fprintf(s.out, "завершено: %d на %.2f %s\n", e.CompletedCount, e.Completed.Amount, e.Completed.Currency)
		fmt.Fprintf(s.out, "в работе:  %d на %.2f %s\n", e.InWorkCount, e.InWork.Amount, e.InWork.Currency)
	case "chats":
		return s.listChats(ctx)
	case "open":
		if len(args) != 1 {
			return usage("open <user-id>")
		}
		return s.openChat(ctx, args[0])
	case "say":
		if len(args) == 0 {
			return usage("say <текст>")
		}
		// Текст берём из исходной строки, чтобы сохранить пробелы.
		content := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		msg, err := s.chat.Send(ctx, content)
		if err != nil {
			return err
		}
		s.printMessage(msg)
	case "messages":
		s.printMessages()
	case "notifications":
		for _, n := range s.center.Recent() {
			fmt.Fprintf(s.out, "%s [%s] %s: %s\n", n.CreatedAt.Format("15:04:05"), n.Level, n.Event, n.Message)
		}
	default:
		return fmt.Errorf("неизвестная команда %q, введите help", cmd)
	}
	return nil
}

func (s *Shell) listOrders(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "cached" {
		if err := s.orders.Load(ctx); err != nil {
			return err
		}
	}
	list := s.orders.Orders()
	if len(list) == 0 {
		fmt.Fprintln(s.out, "заказов нет")
		return nil
	}
	for _, o := range list {
		s.printOrder(o.ID)
	}
	return nil
}

func (s *Shell) printOrder(orderID string) {
	o, ok := s.orders.Order(orderID)
	if !ok {
		return
	}
	controls, err := s.orders.Controls(orderID)
	if err != nil {
		return
	}

	title := o.GigID
	if o.Gig != nil && o.Gig.Title != "" {
		title = o.Gig.Title
	}
	buttons := make([]string, 0, len(controls.Actions))
	for _, a := range controls.Actions {
		buttons = append(buttons, string(a))
	}
	hint := strings.Join(buttons, ", ")
	switch {
	case controls.ViewOnly:
		hint = "только просмотр"
	case controls.Busy:
		hint = "выполняется запрос"
	case hint == "":
		hint = "-"
	}
	fmt.Fprintf(s.out, "%-24s %-12s %8.2f %-4s %-30s [%s]\n", o.ID, o.Status, o.Price.Amount, o.Price.Currency, title, hint)
}

func (s *Shell) listChats(ctx context.Context) error {
	if err := s.chat.LoadConversations(ctx, ""); err != nil {
		return err
	}
	unread := s.chat.UnreadCounts()
	for _, c := range s.chat.Conversations() {
		mark := ""
		if n := unread[c.CounterpartID()]; n > 0 {
			mark = fmt.Sprintf(" (+%d)", n)
		}
		delete(unread, c.CounterpartID())
		fmt.Fprintf(s.out, "%-24s %s%s\n", c.CounterpartID(), c.Participant.Username, mark)
	}

	// Новые собеседники, которых ещё нет в списке бесед.
	rest := make([]string, 0, len(unread))
	for id, n := range unread {
		if n > 0 {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		fmt.Fprintf(s.out, "%-24s новая беседа (+%d)\n", id, unread[id])
	}
	return nil
}

func (s *Shell) openChat(ctx context.Context, counterpartID string) error {
	if err := s.chat.LoadConversations(ctx, counterpartID); err != nil {
		return err
	}
	if err := s.chat.Select(ctx, counterpartID); err != nil {
		return err
	}
	s.printMessages()
	return nil
}

func (s *Shell) printMessages() {
	conv, ok := s.chat.Selected()
	if !ok {
		fmt.Fprintln(s.out, "беседа не выбрана")
		return
	}
	name := conv.Participant.Username
	if name == "" {
		name = conv.CounterpartID()
	}
	fmt.Fprintf(s.out, "── %s ──\n", name)
	for _, m := range s.chat.Messages() {
		s.printMessage(m)
	}
}

func (s *Shell) printMessage(m entity.Message) {
	mark := ""
	switch {
	case m.Failed:
		mark = " (не отправлено)"
	case m.Pending:
		mark = " (отправка)"
	}
	fmt.Fprintf(s.out, "%s %s: %s%s\n", m.Timestamp.Format("15:04"), m.Sender, m.Content, mark)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `команды:
  orders [cached]                  список заказов
  do <order-id> <action>           accept, decline, cancel, start, deliver, complete, dispute
  review <order-id> <1-5> [текст]  оставить отзыв
  earnings                         сводка по суммам
  chats                            список бесед
  open <user-id>                   открыть беседу
  say <текст>                      отправить сообщение в открытую беседу
  messages                         показать открытую беседу
  notifications                    последние уведомления
  logout                           удалить сессию и выйти
  quit                             выход`)
}

// Run читает команды через liner до quit или Ctrl+D.
func (s *Shell) Run(ctx context.Context, historyPath string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		var out []string
		for _, name := range commandNames {
			if strings.HasPrefix(name, strings.ToLower(input)) {
				out = append(out, name)
			}
		}
		return out
	})

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(line, historyPath)
	}

	s.printHelp()
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("cli: ошибка чтения ввода: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if err := s.Execute(ctx, input); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "ошибка: %s\n", describe(err))
		}
	}
}

func (s *Shell) prompt() string {
	if conv, ok := s.chat.Selected(); ok {
		return fmt.Sprintf("%s@%s> ", s.orders.Role(), conv.CounterpartID())
	}
	return string(s.orders.Role()) + "> "
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Log.WithError(err).Warn("cli: не удалось создать каталог истории")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Log.WithError(err).Warn("cli: не удалось сохранить историю")
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

func usage(text string) error {
	return apperror.New(apperror.ErrCodeValidation, "использование: "+text)
}

func describe(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
