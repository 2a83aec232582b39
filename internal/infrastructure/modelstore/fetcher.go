// Package modelstore следит, чтобы файл модели был на диске, и скачивает его при первом запуске.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// ErrNoSource модели нет на диске, а ссылка для загрузки не задана.
var ErrNoSource = errors.New("model file is missing and no download URL is configured")

// Fetcher скачивает модель с файлового хостинга.
type Fetcher struct {
	client          *resty.Client
	logger          *slog.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// Option настраивает Fetcher.
type Option func(*Fetcher)

// WithRetries задаёт число повторов и первую паузу.
func WithRetries(maxRetries uint64, initialInterval time.Duration) Option {
	return func(f *Fetcher) {
		f.maxRetries = maxRetries
		f.initialInterval = initialInterval
	}
}

// WithTimeout задаёт таймаут одной попытки.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.client.SetTimeout(timeout)
	}
}

// NewFetcher создаёт Fetcher.
func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: resty.New().
			SetTimeout(10*time.Minute).
			SetHeader("User-Agent", "agroscan-model-fetcher"),
		logger:          logger,
		maxRetries:      5,
		initialInterval: time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ensure скачивает url в path, если файла ещё нет. Возвращает true, если загрузка была.
// Тело пишется во временный файл рядом и переименовывается, обрезанная модель на диске не остаётся.
func (f *Fetcher) Ensure(ctx context.Context, path, url string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat model: %w", err)
	}
	if url == "" {
		return false, fmt.Errorf("%w: %s", ErrNoSource, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create model dir: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, f.maxRetries), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := f.download(ctx, path, url)
		if err != nil {
			f.logger.Warn("model download failed",
				slog.Int("attempt", attempt),
				slog.String("url", url),
				slog.String("error", err.Error()))
		}
		return err
	}

	start := time.Now()
	if err := backoff.Retry(op, policy); err != nil {
		return false, fmt.Errorf("download model: %w", err)
	}

	f.logger.Info("model downloaded",
		slog.String("path", path),
		slog.Duration("elapsed", time.Since(start)))
	return true, nil
}

func (f *Fetcher) download(ctx context.Context, path, url string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
	case code >= 400 && code < 500 && code != http.StatusTooManyRequests:
		// Повтор не поможет: ссылка неверна или доступ закрыт.
		return backoff.Permanent(fmt.Errorf("unexpected status %d", code))
	default:
		return fmt.Errorf("unexpected status %d", code)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if n == 0 {
		return errors.New("empty response body")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return backoff.Permanent(fmt.Errorf("move model into place: %w", err))
	}
	return nil
}
