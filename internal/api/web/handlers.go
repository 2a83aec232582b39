package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	app "agroscan/internal/application"
	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/report"
)

const imageField = "image"

var (
	errMissingImage = errors.New("missing image upload")
	errBadUpload    = errors.New("malformed upload")
	errTooLarge     = errors.New("upload too large")
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	lang, theme := s.preferences(w, r)
	s.render(w, s.pages.index, http.StatusOK, s.newPage(lang, theme))
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	data, uploadErr := s.readUpload(w, r)
	lang, theme := s.preferences(w, r)
	page := s.newPage(lang, theme)

	if uploadErr != nil {
		page.Error = s.userMessage(page.T, uploadErr)
		s.render(w, s.pages.index, statusOf(uploadErr), page)
		return
	}

	diagnosis, err := s.diagnosis.Diagnose(r.Context(), data)
	if err != nil {
		s.logFailure(r, "diagnose", err)
		page.Error = s.userMessage(page.T, err)
		s.render(w, s.pages.index, statusOf(err), page)
		return
	}

	page.Diagnosis = diagnosis
	if primary, ok := diagnosis.Primary(); ok {
		page.Primary = &primary
	}
	page.Secondary = diagnosis.Secondary()
	page.ImageURI = dataURI(data)
	s.render(w, s.pages.result, http.StatusOK, page)
}

// handleReport строит PDF по парам label/confidence, которые страница результата отправляет обратно.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	if err := r.ParseForm(); err != nil {
		err = uploadError(err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	preds, err := parsePredictions(r.PostForm["label"], r.PostForm["confidence"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	diagnosis, err := s.diagnosis.Restore(preds)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	s.writeReport(w, r, diagnosis)
}

func (s *Server) handleAPIDiagnose(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	diagnosis, err := s.diagnosis.Diagnose(r.Context(), data)
	if err != nil {
		s.logFailure(r, "diagnose", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newDiagnosisResponse(diagnosis))
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	diagnosis, err := s.diagnosis.Diagnose(r.Context(), data)
	if err != nil {
		s.logFailure(r, "diagnose", err)
		writeError(w, err)
		return
	}

	s.writeReport(w, r, diagnosis)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, diagnosis *entity.Diagnosis) {
	pdf, err := s.reports.Build(r.Context(), diagnosis)
	if err != nil {
		s.logFailure(r, "build report", err)
		http.Error(w, "could not build report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// readUpload читает фото из multipart-поля image или из тела запроса целиком.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, uploadError(err)
		}
		if len(data) == 0 {
			return nil, errMissingImage
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(s.opts.MaxUploadSize); err != nil {
		return nil, uploadError(err)
	}
	file, _, err := r.FormFile(imageField)
	if err != nil {
		return nil, errMissingImage
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err)
	}
	if len(data) == 0 {
		return nil, entity.ErrEmptyImage
	}
	return data, nil
}

// uploadError сводит ошибки чтения тела к errTooLarge или errBadUpload.
func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	// multipart не везде оборачивает ошибку через %w
	if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %v", errTooLarge, err)
	}
	return fmt.Errorf("%w: %v", errBadUpload, err)
}

func parsePredictions(labels, confidences []string) ([]entity.Prediction, error) {
	if len(labels) == 0 {
		return nil, app.ErrNoPredictions
	}
	if len(labels) != len(confidences) {
		return nil, fmt.Errorf("%d labels but %d confidences", len(labels), len(confidences))
	}

	preds := make([]entity.Prediction, 0, len(labels))
	for i, label := range labels {
		c, err := strconv.ParseFloat(confidences[i], 32)
		if err != nil {
			return nil, fmt.Errorf("confidence for %q: %w", label, err)
		}
		preds = append(preds, entity.Prediction{Label: label, Confidence: float32(c)})
	}
	return preds, nil
}

// statusOf отображает ошибку на HTTP-статус.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, entity.ErrQualityRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrUnsupportedImage),
		errors.Is(err, entity.ErrEmptyImage),
		errors.Is(err, entity.ErrUnknownLabel),
		errors.Is(err, entity.ErrInvalidConfidence),
		errors.Is(err, entity.ErrDuplicateLabel),
		errors.Is(err, app.ErrNoPredictions),
		errors.Is(err, errMissingImage),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusUnprocessableEntity:
		return "quality_rejected"
	default:
		return "internal"
	}
}

func (s *Server) userMessage(t func(string) string, err error) string {
	switch statusOf(err) {
	case http.StatusRequestEntityTooLarge:
		return t("bot_too_large")
	case http.StatusUnprocessableEntity:
		return t("bot_quality")
	case http.StatusBadRequest:
		return t("bot_bad_image")
	default:
		return t("error")
	}
}

func (s *Server) logFailure(r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if statusOf(err) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, op+" failed", slog.String("error", err.Error()))
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "inference failed"
	}
	writeJSON(w, status, errorResponse{Error: errorCode(status), Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type findingResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Percent    float64 `json:"percent"`
	Level      string  `json:"level"`
	Info       string  `json:"info"`
	Treatment  string  `json:"treatment"`
	Spray      string  `json:"spray"`
}

type imageResponse struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type diagnosisResponse struct {
	Detected  bool              `json:"detected"`
	Threshold float64           `json:"threshold"`
	Image     imageResponse     `json:"image"`
	Primary   *findingResponse  `json:"primary"`
	Secondary []findingResponse `json:"secondary"`
}

func newFindingResponse(f entity.Finding) findingResponse {
	return findingResponse{
		Label:      f.Label,
		Confidence: float64(f.Confidence),
		Percent:    f.Percent(),
		Level:      string(f.Level()),
		Info:       f.Disease.Info,
		Treatment:  f.Disease.Treatment,
		Spray:      f.Disease.Spray,
	}
}

func newDiagnosisResponse(d *entity.Diagnosis) diagnosisResponse {
	resp := diagnosisResponse{
		Detected:  d.Detected(),
		Threshold: d.Threshold,
		Image:     imageResponse{Width: d.ImageWidth, Height: d.ImageHeight},
		Secondary: []findingResponse{},
	}
	if primary, ok := d.Primary(); ok {
		p := newFindingResponse(primary)
		resp.Primary = &p
	}
	for _, f := range d.Secondary() {
		resp.Secondary = append(resp.Secondary, newFindingResponse(f))
	}
	return resp
}
