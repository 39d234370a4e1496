package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все параметры запуска клиента.
type Config struct {
	Env             string
	LogLevel        string
	LogFile         string
	APIBaseURL      string
	WSURL           string
	SessionPath     string
	Role            string
	RequestTimeout  time.Duration
	EchoWindow      time.Duration
	RateLimitLimit  int64
	RateLimitPeriod time.Duration
}

// Load читает переменные окружения и возвращает готовую конфигурацию.
func Load() (*Config, error) {
	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env не прочитан, используем переменные окружения: %v", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:         env,
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel(env)),
		LogFile:     getEnv("LOG_FILE", ""),
		APIBaseURL:  strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		SessionPath: getEnv("SESSION_PATH", defaultSessionPath()),
		Role:        getEnv("CLIENT_ROLE", "client"),
	}

	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("config: некорректный API_BASE_URL %q: %w", cfg.APIBaseURL, err)
	}

	wsURL := getEnv("WS_URL", "")
	if wsURL == "" {
		derived, err := deriveWSURL(cfg.APIBaseURL)
		if err != nil {
			return nil, err
		}
		wsURL = derived
	}
	cfg.WSURL = wsURL

	if cfg.Role != "client" && cfg.Role != "freelancer" {
		return nil, fmt.Errorf("config: CLIENT_ROLE должен быть client или freelancer, получено %q", cfg.Role)
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.EchoWindow, err = parseDuration("ECHO_WINDOW", "5s"); err != nil {
		return nil, err
	}

	// Ограничение частоты записи повторяет серверный лимит.
	if cfg.RateLimitLimit, err = parseInt64("RATE_LIMIT_LIMIT", "10"); err != nil {
		return nil, err
	}
	if cfg.RateLimitPeriod, err = parseDuration("RATE_LIMIT_PERIOD", "1m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment сообщает, что клиент запущен в режиме разработки.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnv возвращает значение переменной окружения или дефолт.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func defaultLogLevel(env string) string {
	if env == "development" {
		return "debug"
	}
	return "info"
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".freelance-session.yaml"
	}
	return dir + string(os.PathSeparator) + "freelance-client" + string(os.PathSeparator) + "session.yaml"
}

// deriveWSURL строит адрес канала из базового адреса API: http -> ws, https -> wss.
func deriveWSURL(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("config: не удалось разобрать API_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	return u.String(), nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	v := getEnv(key, fallback)
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: не удалось распарсить %s=%q: %w", key, v, err)
	}
	return dur, nil
}

func parseInt64(key, fallback string) (int64, error) {
	v := getEnv(key, fallback)
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: не удалось распарсить %s=%q: %w", key, v, err)
	}
	return num, nil
}
