// Package classifier запускает обученную модель листьев томата через ONNX Runtime.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"agroscan/internal/domain/port"
	"agroscan/internal/infrastructure/preprocess"
)

// ErrClosed возвращается из Classify после Close.
var ErrClosed = errors.New("classifier is closed")

// Config описывает файл модели и её тензоры.
type Config struct {
	// ModelPath путь к файлу модели.
	ModelPath string
	// LibraryPath путь к библиотеке onnxruntime.
	LibraryPath string
	// InputName имя входа. Пустое берётся из модели.
	InputName string
	// OutputName имя выхода. Пустое берётся из модели.
	OutputName string
	// InputSize сторона квадратного входа.
	InputSize int
	// Layout раскладка входного тензора.
	Layout preprocess.Layout
	// ClassCount число меток на выходе.
	ClassCount int
	// Sigmoid нужен, если граф отдаёт логиты.
	Sigmoid bool
	// Threads ограничивает intra-op потоки, 0 оставляет выбор onnxruntime.
	Threads int
}

// Validate проверяет конфигурацию.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.ClassCount <= 0 {
		return fmt.Errorf("class count must be positive, got %d", c.ClassCount)
	}
	if _, err := preprocess.ParseLayout(string(c.Layout)); err != nil {
		return err
	}
	return nil
}

// ONNXClassifier реализует port.LeafClassifier на сессии onnxruntime.
// Тензоры общие для всех вызовов, поэтому запуски идут по очереди.
type ONNXClassifier struct {
	cfg     Config
	logger  *slog.Logger
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment загружает библиотеку один раз на процесс.
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// ShutdownRuntime освобождает окружение onnxruntime.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// NewONNXClassifier загружает модель и выделяет тензоры.
func NewONNXClassifier(cfg Config, logger *slog.Logger) (*ONNXClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Layout == "" {
		cfg.Layout = preprocess.LayoutNHWC
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = DefaultLibraryPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, fmt.Errorf("onnxruntime library not found at %s: %w", libPath, err)
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, fmt.Errorf("error initializing ORT environment: %w", err)
	}

	if cfg.InputName == "" || cfg.OutputName == "" {
		if err := discoverNames(&cfg); err != nil {
			return nil, err
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.Layout.Shape(cfg.InputSize)...))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.ClassCount)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()

	if cfg.Threads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.Threads); err != nil {
			input.Destroy()
			output.Destroy()
			return nil, fmt.Errorf("error setting intra-op threads: %w", err)
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error setting graph optimization level: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	logger.Info("onnx classifier ready",
		slog.String("model", cfg.ModelPath),
		slog.String("input", cfg.InputName),
		slog.String("output", cfg.OutputName),
		slog.Int("classes", cfg.ClassCount),
		slog.String("layout", string(cfg.Layout)))

	return &ONNXClassifier{
		cfg:     cfg,
		logger:  logger,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// discoverNames дописывает имена тензоров из метаданных и сверяет число классов.
func discoverNames(cfg *Config) error {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("error reading model inputs and outputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("model %s has no inputs or outputs", cfg.ModelPath)
	}
	if cfg.InputName == "" {
		cfg.InputName = inputs[0].Name
	}
	if cfg.OutputName == "" {
		cfg.OutputName = outputs[0].Name
	}

	dims := outputs[0].Dimensions
	if n := len(dims); n > 0 && dims[n-1] > 0 && int(dims[n-1]) != cfg.ClassCount {
		return fmt.Errorf("model scores %d classes, catalog has %d labels", dims[n-1], cfg.ClassCount)
	}
	return nil
}

// Classify готовит вход, запускает сессию и возвращает по оценке на метку.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrClosed
	}

	if err := preprocess.Fill(img, c.cfg.InputSize, c.cfg.Layout, c.input.GetData()); err != nil {
		return nil, fmt.Errorf("prepare input: %w", err)
	}
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	raw := c.output.GetData()
	scores := make([]float32, len(raw))
	copy(scores, raw)
	if c.cfg.Sigmoid {
		ApplySigmoid(scores)
	}

	return scores, nil
}

// Close освобождает сессию и тензоры.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("error destroying ORT session: %w", err))
		}
		c.session = nil
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
		c.input = nil
	}
	if c.output != nil {
		errs = append(errs, c.output.Destroy())
		c.output = nil
	}

	return errors.Join(errs...)
}

var _ port.LeafClassifier = (*ONNXClassifier)(nil)
