package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/report"
)

func TestReportService_Build(t *testing.T) {
	svc := NewReportService(report.NewPDFRenderer(), nil)

	pdf, err := svc.Build(context.Background(), &entity.Diagnosis{Findings: []entity.Finding{
		{Prediction: entity.Prediction{Label: "Healthy", Confidence: 0.97}, Disease: entity.Disease{Label: "Healthy", Info: "ok", Treatment: "none", Spray: "none"}},
	}})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestReportService_NoRenderer(t *testing.T) {
	_, err := NewReportService(nil, nil).Build(context.Background(), &entity.Diagnosis{})
	require.Error(t, err)
}
