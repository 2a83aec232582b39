package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroscan/internal/container"
	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/catalog"
	"agroscan/internal/infrastructure/metrics"
	"agroscan/internal/infrastructure/preprocess"
	"agroscan/internal/infrastructure/report"
	"agroscan/internal/infrastructure/storage"
)

// Early blight, Healthy, Late blight, Leaf Miner, Mg, N, K, Spotted Wilt
var sickScores = []float32{0.62, 0.01, 0.93, 0.1, 0.05, 0.02, 0.3, 0.2}

type stubClassifier struct {
	scores []float32
	err    error
}

func (c stubClassifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	return c.scores, c.err
}

func (stubClassifier) Close() error { return nil }

type stubGate struct{ err error }

func (g stubGate) Check(ctx context.Context, img image.Image) error { return g.err }

type testEnv struct {
	server  *Server
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, cls stubClassifier, gate *stubGate, maxUpload int64) testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	deps := container.Deps{
		Users:      storage.NewMemoryUserRepository(),
		Classifier: cls,
		Describer:  catalog.Default(),
		Decoder:    preprocess.Decoder{},
		Observer:   m,
		Renderer:   report.NewPDFRenderer(),
		Logger:     logger,
	}
	if gate != nil {
		deps.Gate = gate
	}

	s, err := NewServer(container.New(deps), Options{
		MaxUploadSize: maxUpload,
		Observer:      m,
		Metrics:       m.Handler(),
		Logger:        logger,
	})
	require.NoError(t, err)
	return testEnv{server: s, metrics: m}
}

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(3, 3, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(field, "leaf.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload Tomato Leaf Image")
	assert.Contains(t, rec.Body.String(), "AgroScan AI © 2026")
	assert.Contains(t, rec.Body.String(), `class="theme-dark"`)
}

func TestIndex_LanguageAndThemeFromQuery(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/?lang=hi&theme=light", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "टमाटर पत्ती की तस्वीर अपलोड करें")
	assert.Contains(t, rec.Body.String(), `class="theme-light"`)

	names := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = c.Value
	}
	assert.Equal(t, "hi", names[cookieLang])
	assert.Equal(t, "light", names[cookieTheme])

	// Повторный запрос берёт выбор из cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieLang, Value: "hi"})
	rec = env.do(req)
	assert.Contains(t, rec.Body.String(), "विश्लेषण करें")
}

func TestDiagnose_RendersFindings(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	body, ct := multipartBody(t, imageField, leafPNG(t), map[string]string{"lang": "en"})
	req := httptest.NewRequest(http.MethodPost, "/diagnose", body)
	req.Header.Set("Content-Type", ct)

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	html := rec.Body.String()
	assert.Contains(t, html, "Late blight")
	assert.Contains(t, html, "93.00% Confidence")
	assert.Contains(t, html, `class="level-high"`)
	assert.Contains(t, html, "Early blight")
	assert.Contains(t, html, `class="level-medium"`)
	assert.Contains(t, html, "Use Metalaxyl &#43; Mancozeb spray.")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, `name="confidence" value="0.93"`)
	assert.NotContains(t, html, "Pottassium Deficiency")
}

func TestDiagnose_Healthy(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: make([]float32, 8)}, nil, 0)

	body, ct := multipartBody(t, imageField, leafPNG(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/diagnose", body)
	req.Header.Set("Content-Type", ct)

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Plant appears healthy.")
	assert.NotContains(t, rec.Body.String(), `action="/report"`)
}

func TestDiagnose_Errors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)
		body, ct := multipartBody(t, imageField, []byte("GIF89a....."), nil)
		req := httptest.NewRequest(http.MethodPost, "/diagnose", body)
		req.Header.Set("Content-Type", ct)
		assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
	})

	t.Run("missing field", func(t *testing.T) {
		env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)
		body, ct := multipartBody(t, "photo", leafPNG(t), nil)
		req := httptest.NewRequest(http.MethodPost, "/diagnose", body)
		req.Header.Set("Content-Type", ct)
		assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
	})

	t.Run("quality gate", func(t *testing.T) {
		gate := &stubGate{err: entity.ErrQualityRejected}
		env := newTestEnv(t, stubClassifier{scores: sickScores}, gate, 0)
		body, ct := multipartBody(t, imageField, leafPNG(t), nil)
		req := httptest.NewRequest(http.MethodPost, "/diagnose", body)
		req.Header.Set("Content-Type", ct)
		rec := env.do(req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "not clear enough")
	})
}

func TestAPIDiagnose(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnose", bytes.NewReader(leafPNG(t)))
	req.Header.Set("Content-Type", "image/png")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp diagnosisResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Detected)
	assert.Equal(t, entity.DefaultThreshold, resp.Threshold)
	assert.Equal(t, 32, resp.Image.Width)
	require.NotNil(t, resp.Primary)
	assert.Equal(t, "Late blight", resp.Primary.Label)
	assert.Equal(t, "high", resp.Primary.Level)
	require.Len(t, resp.Secondary, 1)
	assert.Equal(t, "Early blight", resp.Secondary[0].Label)
}

func TestAPIDiagnose_Errors(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 64)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnose", bytes.NewReader(make([]byte, 1024)))
		rec := env.do(req)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

		var resp errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "too_large", resp.Error)
	})

	t.Run("inference failure", func(t *testing.T) {
		env := newTestEnv(t, stubClassifier{err: errors.New("onnx exploded")}, nil, 0)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnose", bytes.NewReader(leafPNG(t)))
		rec := env.do(req)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "internal", resp.Error)
		assert.NotContains(t, resp.Message, "onnx")
	})

	t.Run("empty body", func(t *testing.T) {
		env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/diagnose", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReport_FromForm(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	form := url.Values{}
	form.Add("label", "Early blight")
	form.Add("confidence", "0.62")
	form.Add("label", "Late blight")
	form.Add("confidence", "0.93")

	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), report.FileName)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestReport_RejectsBadForm(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	cases := map[string]url.Values{
		"empty":         {},
		"unknown label": {"label": {"Powdery mildew"}, "confidence": {"0.9"}},
		"out of range":  {"label": {"Healthy"}, "confidence": {"1.7"}},
		"not a number":  {"label": {"Healthy"}, "confidence": {"high"}},
		"mismatch":      {"label": {"Healthy", "Leaf Miner"}, "confidence": {"0.9"}},
		"duplicate":     {"label": {"Late blight", "Late blight"}, "confidence": {"0.9", "0.8"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
		})
	}
}

func TestAPIReport(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: make([]float32, 8)}, nil, 0)

	body, ct := multipartBody(t, imageField, leafPNG(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", body)
	req.Header.Set("Content-Type", ct)
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestHealthStaticAndMetrics(t *testing.T) {
	env := newTestEnv(t, stubClassifier{scores: sickScores}, nil, 0)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/static/styles.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".glass-card")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnose", bytes.NewReader(leafPNG(t)))
	require.Equal(t, http.StatusOK, env.do(req).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agroscan_diagnoses_total{primary="Late blight"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/diagnose"`)
}
