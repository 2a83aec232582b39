package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
)

// ReportService собирает PDF-отчёт по диагнозу.
type ReportService struct {
	renderer port.ReportRenderer
	logger   *slog.Logger
}

func NewReportService(renderer port.ReportRenderer, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{renderer: renderer, logger: logger}
}

// Build возвращает готовый PDF целиком.
func (s *ReportService) Build(ctx context.Context, diagnosis *entity.Diagnosis) ([]byte, error) {
	if s.renderer == nil {
		return nil, errors.New("report renderer is not configured")
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(ctx, diagnosis, &buf); err != nil {
		return nil, err
	}

	s.logger.Debug("report built",
		slog.Int("findings", len(diagnosis.Findings)),
		slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
