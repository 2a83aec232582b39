package entity

import (
	"fmt"
	"sort"
)

// DefaultThreshold порог, выше которого метка считается обнаруженной.
const DefaultThreshold = 0.40

// Prediction оценка модели для одной метки.
type Prediction struct {
	Label      string  // название болезни, как в выходах модели
	Confidence float32 // вероятность в диапазоне 0..1
}

// Percent возвращает уверенность в процентах.
func (p Prediction) Percent() float64 {
	return float64(p.Confidence) * 100
}

// SelectPredictions оставляет метки со значением строго выше порога
// и сортирует их по убыванию уверенности.
func SelectPredictions(labels []string, scores []float32, threshold float64) ([]Prediction, error) {
	if len(labels) != len(scores) {
		return nil, fmt.Errorf("%w: %d labels, %d scores", ErrScoreCount, len(labels), len(scores))
	}

	selected := make([]Prediction, 0, len(scores))
	for i, score := range scores {
		// NaN не проходит сравнение и отбрасывается.
		if float64(score) > threshold {
			selected = append(selected, Prediction{Label: labels[i], Confidence: score})
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Confidence > selected[j].Confidence
	})

	return selected, nil
}
