package entity

// ConfidenceLevel градация уверенности для подсветки в интерфейсе.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"   // больше 75%
	ConfidenceMedium ConfidenceLevel = "medium" // больше 50%
	ConfidenceLow    ConfidenceLevel = "low"    // остальное
)

// LevelOf возвращает градацию для значения уверенности.
func LevelOf(confidence float32) ConfidenceLevel {
	switch c := float64(confidence); {
	case c > 0.75:
		return ConfidenceHigh
	case c > 0.50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Disease справочная информация о болезни.
type Disease struct {
	Label     string `yaml:"label" json:"label"`
	Info      string `yaml:"info" json:"info"`
	Treatment string `yaml:"treatment" json:"treatment"`
	Spray     string `yaml:"spray" json:"spray"`
}

// Finding обнаруженная болезнь вместе с описанием.
type Finding struct {
	Prediction
	Disease Disease
}

// Level возвращает градацию уверенности находки.
func (f Finding) Level() ConfidenceLevel {
	return LevelOf(f.Confidence)
}

// Diagnosis хранит итог анализа фотографии листа.
type Diagnosis struct {
	Findings    []Finding // отсортированы по убыванию уверенности
	Threshold   float64   // порог, с которым отбирались метки
	ImageWidth  int       // ширина исходного изображения
	ImageHeight int       // высота исходного изображения
}

// Detected сообщает, найдена ли хотя бы одна метка выше порога.
func (d *Diagnosis) Detected() bool {
	return d != nil && len(d.Findings) > 0
}

// Primary возвращает основную болезнь.
func (d *Diagnosis) Primary() (Finding, bool) {
	if !d.Detected() {
		return Finding{}, false
	}
	return d.Findings[0], true
}

// Secondary возвращает остальные болезни выше порога.
func (d *Diagnosis) Secondary() []Finding {
	if !d.Detected() {
		return nil
	}
	return d.Findings[1:]
}

// Predictions возвращает пары метка/уверенность без описаний.
func (d *Diagnosis) Predictions() []Prediction {
	if d == nil {
		return nil
	}
	out := make([]Prediction, 0, len(d.Findings))
	for _, f := range d.Findings {
		out = append(out, f.Prediction)
	}
	return out
}
