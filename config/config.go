package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendONNX = "onnx"
	BackendGoCV = "gocv"
)

type Config struct {
	HTTPAddr      string
	TelegramToken string // если пусто, бот не запускается

	ModelPath       string
	ModelURL        string
	DownloadTimeout time.Duration
	ORTLibraryPath  string
	Backend         string
	InputName       string
	OutputName      string
	Layout          string
	Sigmoid         bool
	Threads         int

	ImageSize     int
	MaxUploadSize int64 // в байтах
	QualityGate   bool
	CatalogPath   string

	LogLevel slog.Level
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из произвольного источника переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		HTTPAddr:      p.str("HTTP_ADDR", ":8080"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),

		ModelPath:       p.str("MODEL_PATH", "models/tomato_disease_model.onnx"),
		ModelURL:        getenv("MODEL_URL"),
		DownloadTimeout: p.duration("DOWNLOAD_TIMEOUT", 10*time.Minute),
		ORTLibraryPath:  getenv("ORT_LIBRARY_PATH"),
		Backend:         strings.ToLower(p.str("CLASSIFIER_BACKEND", BackendONNX)),
		InputName:       getenv("MODEL_INPUT_NAME"),
		OutputName:      getenv("MODEL_OUTPUT_NAME"),
		Layout:          strings.ToLower(getenv("MODEL_LAYOUT")),
		Sigmoid:         p.boolean("MODEL_SIGMOID", false),
		Threads:         p.integer("MODEL_THREADS", 0),

		ImageSize:     p.integer("IMAGE_SIZE", 300),
		MaxUploadSize: int64(p.integer("MAX_UPLOAD_MB", 10)) << 20,
		QualityGate:   p.boolean("QUALITY_GATE", false),
		CatalogPath:   getenv("CATALOG_PATH"),

		LogLevel: p.level("LOG_LEVEL", slog.LevelInfo),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendONNX, BackendGoCV:
	default:
		return fmt.Errorf("CLASSIFIER_BACKEND: unknown backend %q", c.Backend)
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("IMAGE_SIZE: must be positive, got %d", c.ImageSize)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB: must be positive")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH: must not be empty")
	}
	return nil
}

// parser запоминает первую ошибку разбора.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return def
	}
	return l
}
