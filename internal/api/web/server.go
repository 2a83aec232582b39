// Package web отдаёт браузерный интерфейс и JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	app "agroscan/internal/application"
	"agroscan/internal/container"
	"agroscan/internal/infrastructure/catalog"
)

const (
	defaultMaxUpload = 10 << 20
	shutdownTimeout  = 10 * time.Second
)

// HTTPObserver получает сведения о каждом запросе (метрики).
type HTTPObserver interface {
	ObserveHTTP(route, method string, code int, elapsed time.Duration)
}

// Options настройки HTTP-сервера.
type Options struct {
	Addr          string
	MaxUploadSize int64
	Observer      HTTPObserver // необязательно
	Metrics       http.Handler // необязательно, отдаётся на /metrics
	Logger        *slog.Logger
}

// Server HTTP-фронтенд сервиса.
type Server struct {
	diagnosis    *app.DiagnosisService
	reports      *app.ReportService
	translations *catalog.Translations
	pages        *pages
	opts         Options
	logger       *slog.Logger
	router       chi.Router
}

// NewServer собирает роутер поверх сервисов контейнера.
func NewServer(c *container.Container, opts Options) (*Server, error) {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUpload
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	s := &Server{
		diagnosis:    c.DiagnosisService,
		reports:      c.ReportService,
		translations: c.Translations,
		pages:        p,
		opts:         opts,
		logger:       opts.Logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/diagnose", s.handleDiagnose)
	r.Post("/report", s.handleReport)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/diagnose", s.handleAPIDiagnose)
		r.Post("/report", s.handleAPIReport)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS()))))

	return r
}

// Handler возвращает корневой обработчик.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает адрес до отмены ctx, затем корректно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
