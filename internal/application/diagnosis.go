package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
)

// DiagnosisDeps зависимости сервиса анализа. Gate и Observer необязательны.
type DiagnosisDeps struct {
	Classifier port.LeafClassifier
	Describer  port.DiseaseDescriber
	Decoder    port.ImageDecoder
	Gate       port.QualityGate
	Observer   port.DiagnosisObserver
	Logger     *slog.Logger
}

// DiagnosisService превращает фото листа в диагноз.
type DiagnosisService struct {
	classifier port.LeafClassifier
	describer  port.DiseaseDescriber
	decoder    port.ImageDecoder
	gate       port.QualityGate
	observer   port.DiagnosisObserver
	logger     *slog.Logger
}

// NewDiagnosisService создаёт сервис анализа.
func NewDiagnosisService(deps DiagnosisDeps) *DiagnosisService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagnosisService{
		classifier: deps.Classifier,
		describer:  deps.Describer,
		decoder:    deps.Decoder,
		gate:       deps.Gate,
		observer:   deps.Observer,
		logger:     logger,
	}
}

// Diagnose декодирует фото, прогоняет его через модель и собирает диагноз.
// Если ни одна метка не прошла порог, диагноз пустой: растение здорово.
func (s *DiagnosisService) Diagnose(ctx context.Context, data []byte) (*entity.Diagnosis, error) {
	if s.classifier == nil || s.describer == nil || s.decoder == nil {
		return nil, ErrClassifierNotConfigured
	}

	img, format, err := s.decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()

	if s.gate != nil {
		if err := s.gate.Check(ctx, img); err != nil {
			// Отмена запроса не означает плохое фото.
			if errors.Is(err, entity.ErrQualityRejected) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", entity.ErrQualityRejected, err)
		}
	}

	start := time.Now()
	scores, err := s.classifier.Classify(ctx, img)
	elapsed := time.Since(start)
	if s.observer != nil {
		s.observer.ObserveInference(elapsed, err)
	}
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	preds, err := entity.SelectPredictions(s.describer.Labels(), scores, entity.DefaultThreshold)
	if err != nil {
		return nil, err
	}

	diagnosis, err := s.describe(preds)
	if err != nil {
		return nil, err
	}
	diagnosis.ImageWidth = bounds.Dx()
	diagnosis.ImageHeight = bounds.Dy()

	if s.observer != nil {
		s.observer.ObserveDiagnosis(diagnosis)
	}

	attrs := []any{
		slog.String("format", format),
		slog.Int("width", diagnosis.ImageWidth),
		slog.Int("height", diagnosis.ImageHeight),
		slog.Int("findings", len(diagnosis.Findings)),
		slog.Duration("inference", elapsed),
	}
	if primary, ok := diagnosis.Primary(); ok {
		attrs = append(attrs, slog.String("primary", primary.Label), slog.Float64("confidence", float64(primary.Confidence)))
	}
	s.logger.Info("leaf diagnosed", attrs...)

	return diagnosis, nil
}

// Restore собирает диагноз из пар метка/уверенность, которые клиент прислал обратно.
// Метки ниже порога отбрасываются, порядок восстанавливается по убыванию уверенности.
func (s *DiagnosisService) Restore(preds []entity.Prediction) (*entity.Diagnosis, error) {
	if s.describer == nil {
		return nil, ErrClassifierNotConfigured
	}

	seen := make(map[string]struct{}, len(preds))
	kept := make([]entity.Prediction, 0, len(preds))
	for _, p := range preds {
		if _, dup := seen[p.Label]; dup {
			return nil, fmt.Errorf("%w: %q", entity.ErrDuplicateLabel, p.Label)
		}
		seen[p.Label] = struct{}{}

		c := float64(p.Confidence)
		if math.IsNaN(c) || c < 0 || c > 1 {
			return nil, fmt.Errorf("%w: %s=%v", entity.ErrInvalidConfidence, p.Label, p.Confidence)
		}
		if c > entity.DefaultThreshold {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})

	return s.describe(kept)
}

func (s *DiagnosisService) describe(preds []entity.Prediction) (*entity.Diagnosis, error) {
	diagnosis := &entity.Diagnosis{
		Findings:  make([]entity.Finding, 0, len(preds)),
		Threshold: entity.DefaultThreshold,
	}
	for _, p := range preds {
		disease, ok := s.describer.Describe(p.Label)
		if !ok {
			return nil, fmt.Errorf("%w: %q", entity.ErrUnknownLabel, p.Label)
		}
		diagnosis.Findings = append(diagnosis.Findings, entity.Finding{Prediction: p, Disease: disease})
	}
	return diagnosis, nil
}
