package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/freelance-client/internal/logger"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-client/internal/session"
)

const maxResponseBytes = 4 << 20

// Client — HTTP клиент JSON API маркетплейса.
type Client struct {
	baseURL     string
	session     *session.Session
	httpClient  *http.Client
	writeLimits *limiter.Limiter
}

// Option настраивает Client.
type Option func(*Client)

// WithTimeout задаёт таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithWriteRateLimit ограничивает частоту изменяющих запросов на стороне клиента,
// чтобы не упираться в серверный лимит.
func WithWriteRateLimit(limit int64, period time.Duration) Option {
	return func(c *Client) {
		if limit <= 0 || period <= 0 {
			return
		}
		c.writeLimits = limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})
	}
}

// NewClient создаёт клиента для baseURL от имени пользователя sess.
func NewClient(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sess,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope — формат ответа сервера {success, data, error}.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// write выполняет изменяющий запрос с учётом клиентского лимита.
func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	if c.writeLimits != nil {
		lctx, err := c.writeLimits.Get(ctx, "write:"+c.session.ActorID)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось проверить лимит запросов")
		}
		if lctx.Reached {
			return apperror.ErrRateLimited
		}
	}
	return c.do(ctx, method, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: не удалось сериализовать запрос: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil && c.session.Token != "" {
		req.Header.Set("Authorization", c.session.AuthorizationHeader())
	}

	log := logger.Log.WithFields(logrus.Fields{"method": method, "path": path})
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.WithError(err).Warn("api: запрос не выполнен")
		return apperror.Wrap(err, apperror.ErrCodeNetwork, "сервер недоступен, проверьте соединение")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNetwork, "соединение прервано при чтении ответа")
	}

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("api: ответ получен")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	payload := raw
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Success != nil {
		if !*env.Success {
			return decodeError(resp.StatusCode, raw)
		}
		payload = env.Data
	}
	if len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "некорректный ответ сервера")
	}
	return nil
}

// decodeError разбирает ошибку в любом из форматов:
// {"error":{"code","message"}}, {"error":"text"} или {"message":"text"}.
func decodeError(status int, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperror.FromResponse(status, "", strings.TrimSpace(string(raw)))
	}

	if len(env.Error) > 0 {
		var info errorInfo
		if err := json.Unmarshal(env.Error, &info); err == nil && (info.Code != "" || info.Message != "") {
			return apperror.FromResponse(status, info.Code, info.Message)
		}
		var text string
		if err := json.Unmarshal(env.Error, &text); err == nil && text != "" {
			return apperror.FromResponse(status, "", text)
		}
	}
	return apperror.FromResponse(status, "", env.Message)
}
