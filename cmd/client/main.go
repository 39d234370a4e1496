package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ignatzorin/freelance-client/internal/api"
	"github.com/ignatzorin/freelance-client/internal/cli"
	"github.com/ignatzorin/freelance-client/internal/config"
	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-client/internal/goroutine"
	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/notify"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-client/internal/session"
	"github.com/ignatzorin/freelance-client/internal/usecase/chat"
	"github.com/ignatzorin/freelance-client/internal/usecase/order"
	"github.com/ignatzorin/freelance-client/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logger.Init(cfg.LogLevel)
	if cfg.IsDevelopment() {
		logger.SetTextFormatter()
	}
	// Логи в терминале мешают вводу, поэтому по умолчанию пишем их в файл рядом с сессией.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(cfg.SessionPath), "client.log")
	}
	if f, err := openLogFile(logPath); err != nil {
		log.Printf("main: логи остаются в stderr: %v", err)
	} else {
		defer f.Close()
		logger.SetOutput(f)
	}

	// Сессия создаётся один раз и дальше передаётся явно.
	store := session.NewFileStore(cfg.SessionPath)
	sess, err := store.Load()
	storedActor := ""
	if err == nil {
		storedActor = sess.ActorID
		err = sess.Validate(time.Now())
	}
	if err != nil {
		if apperror.IsUnauthorized(err) {
			fmt.Fprintf(os.Stderr, "вход не выполнен: %s\nсохраните сессию в %s\n", apperror.UserMessage(err), cfg.SessionPath)
			os.Exit(1)
		}
		log.Fatalf("main: ошибка чтения сессии: %v", err)
	}

	// Идентификатор, найденный в токене, сохраняем, чтобы не разбирать токен каждый раз.
	if storedActor != sess.ActorID {
		if err := store.Save(sess); err != nil {
			logger.Log.WithError(err).Warn("main: не удалось обновить файл сессии")
		}
	}

	role, err := valueobject.NewRole(cfg.Role)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	center := notify.NewCenter(32)
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-center.Notifications():
				fmt.Fprintf(os.Stdout, "\n[%s] %s\n", n.Level, n.Message)
			}
		}
	})

	client := api.NewClient(cfg.APIBaseURL, sess,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithWriteRateLimit(cfg.RateLimitLimit, cfg.RateLimitPeriod),
	)

	prompter := order.ReviewPrompterFunc(func(o entity.Order) {
		fmt.Fprintf(os.Stdout, "\nзаказ %s завершён, оставьте отзыв: review %s <1-5> [текст]\n", o.ID, o.ID)
	})
	orders := order.NewViewModel(sess, role, client, center, prompter)

	// Канал подключается лениво: без него беседы и история работают через API,
	// а отправка сообщений завершается уведомлением об ошибке.
	channel := ws.NewConnector(cfg.WSURL, sess.Token)
	defer channel.Close()
	chatVM := chat.NewViewModel(sess, client, channel, center, chat.WithEchoWindow(cfg.EchoWindow))
	defer chatVM.Close()
	if err := chatVM.Open(ctx); err != nil {
		logger.Log.WithError(err).Warn("main: не удалось войти в комнату чата")
	}

	if err := orders.Load(ctx); err != nil {
		logger.Log.WithError(err).Warn("main: заказы не загружены")
	}

	shell := cli.NewShell(orders, chatVM, center, store, os.Stdout)
	historyPath := filepath.Join(filepath.Dir(cfg.SessionPath), "history")
	if err := shell.Run(ctx, historyPath); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("main: клиент завершился с ошибкой")
	}
	logger.Log.Info("main: клиент остановлен")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
