package port

import (
	"context"
	"io"
	"time"

	"agroscan/internal/domain/entity"
)

// DiseaseDescriber интерфейс справочника болезней
type DiseaseDescriber interface {
	// Labels возвращает метки в порядке выходов модели
	Labels() []string

	// Describe возвращает описание, лечение и рекомендации по опрыскиванию
	Describe(label string) (entity.Disease, bool)
}

// ReportRenderer интерфейс генератора отчёта
type ReportRenderer interface {
	// Render записывает отчёт по диагнозу в w
	Render(ctx context.Context, diagnosis *entity.Diagnosis, w io.Writer) error
}

// DiagnosisObserver получает сведения о каждом анализе (метрики)
type DiagnosisObserver interface {
	ObserveInference(elapsed time.Duration, err error)
	ObserveDiagnosis(diagnosis *entity.Diagnosis)
}
