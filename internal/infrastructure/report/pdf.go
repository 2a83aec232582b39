// Package report верстает результат анализа в PDF.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
)

// FileName имя файла отчёта при скачивании.
const FileName = "Tomato_Disease_Report.pdf"

const (
	title      = "Tomato Disease Detection Report"
	pointsInch = 72.0
	margin     = pointsInch
)

// PDFRenderer реализует port.ReportRenderer на страницах US Letter.
type PDFRenderer struct {
	// Now время генерации, по умолчанию time.Now.
	Now func() time.Time
	// NewID идентификатор отчёта, по умолчанию случайный UUID.
	NewID func() string
}

// NewPDFRenderer создаёт рендерер с системными часами и случайными id.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Now: time.Now, NewID: uuid.NewString}
}

// Render пишет отчёт в w. У каждой находки заголовок с меткой, затем уверенность,
// описание, лечение и опрыскивание. Страницы переносятся автоматически.
func (r *PDFRenderer) Render(ctx context.Context, diagnosis *entity.Diagnosis, w io.Writer) error {
	if diagnosis == nil {
		return fmt.Errorf("nil diagnosis")
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	newID := uuid.NewString
	if r.NewID != nil {
		newID = r.NewID
	}
	generated := now()
	id := newID()

	pdf := fpdf.New("P", "pt", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("AgroScan AI", true)
	pdf.SetCreationDate(generated)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin / 2)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Report %s | %s | Page %d", id, generated.UTC().Format(time.RFC1123), pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 30, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(0.5 * pointsInch)

	if !diagnosis.Detected() {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 15, tr("No diseases detected. Plant appears healthy."), "", "L", false)
	}

	for _, f := range diagnosis.Findings {
		if err := ctx.Err(); err != nil {
			return err
		}

		pdf.SetFont("Helvetica", "B", 15)
		pdf.MultiCell(0, 20, tr("Disease: "+f.Label), "", "L", false)

		pdf.SetFont("Helvetica", "", 11)
		paragraph(pdf, tr, fmt.Sprintf("Confidence: %.2f%%", f.Percent()))
		paragraph(pdf, tr, "Info: "+f.Disease.Info)
		paragraph(pdf, tr, "Treatment: "+f.Disease.Treatment)
		paragraph(pdf, tr, "Spray Suggestion: "+f.Disease.Spray)
		pdf.Ln(0.3 * pointsInch)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("layout report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func paragraph(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.MultiCell(0, 15, tr(text), "", "L", false)
	pdf.Ln(4)
}

var _ port.ReportRenderer = (*PDFRenderer)(nil)
