package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
)

// Session — личность пользователя, создаётся один раз при старте и передаётся во view-model.
type Session struct {
	ActorID  string `yaml:"actor_id"`
	Username string `yaml:"username,omitempty"`
	Token    string `yaml:"token"`
}

// AuthorizationHeader возвращает значение заголовка Authorization.
func (s *Session) AuthorizationHeader() string {
	return "Bearer " + s.Token
}

// Validate проверяет токен без проверки подписи (ключ известен только серверу):
// достаёт id пользователя, если он не сохранён, и отбрасывает просроченные токены.
func (s *Session) Validate(now time.Time) error {
	if s == nil || strings.TrimSpace(s.Token) == "" {
		return apperror.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		// Непрозрачный токен: доверяем сохранённому id.
		if s.ActorID == "" {
			return apperror.Wrap(err, apperror.ErrCodeUnauthorized, "не удалось определить пользователя по токену")
		}
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !exp.After(now) {
		return apperror.ErrSessionExpired
	}

	if s.ActorID == "" {
		s.ActorID = actorFromClaims(claims)
	}
	if s.ActorID == "" {
		return apperror.New(apperror.ErrCodeUnauthorized, "в токене нет идентификатора пользователя")
	}
	return nil
}

func actorFromClaims(claims jwt.MapClaims) string {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	for _, key := range []string{"user_id", "id", "_id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// FileStore хранит сессию в YAML файле.
type FileStore struct {
	path string
}

// NewFileStore создаёт хранилище сессии по пути path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает сессию. Отсутствие файла означает, что пользователь не вошёл.
func (s *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("session: не удалось прочитать %s: %w", s.path, err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: некорректный файл сессии: %w", err)
	}
	return &sess, nil
}

// Save атомарно записывает сессию с правами только для владельца.
func (s *FileStore) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: не удалось создать каталог: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: не удалось сериализовать: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("session: ошибка записи файла: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("session: не удалось сохранить файл: %w", err)
	}
	return nil
}

// Clear удаляет сохранённую сессию (выход).
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: не удалось удалить файл: %w", err)
	}
	return nil
}
