package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"agroscan/config"
	"agroscan/internal/api/telegram"
	"agroscan/internal/api/web"
	"agroscan/internal/container"
	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
	"agroscan/internal/infrastructure/catalog"
	"agroscan/internal/infrastructure/classifier"
	"agroscan/internal/infrastructure/metrics"
	"agroscan/internal/infrastructure/modelstore"
	"agroscan/internal/infrastructure/preprocess"
	"agroscan/internal/infrastructure/report"
	"agroscan/internal/infrastructure/storage"
	"agroscan/internal/infrastructure/vision"
)

const usage = `usage:
  agroscan                 run the web server (and the Telegram bot when TELEGRAM_TOKEN is set)
  agroscan predict <image> diagnose a single photo and exit`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// parseArgs разбирает командную строку: пусто для сервера или путь к фото для predict.
func parseArgs(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	if args[0] != "predict" || len(args) != 2 || args[1] == "" {
		return "", errors.New(usage)
	}
	return args[1], nil
}

func run(args []string) error {
	predictPath, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Справочник болезней задаёт порядок выходов модели
	diseases, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	// Скачиваем модель при первом запуске
	fetcher := modelstore.NewFetcher(logger, modelstore.WithTimeout(cfg.DownloadTimeout))
	if _, err := fetcher.Ensure(ctx, cfg.ModelPath, cfg.ModelURL); err != nil {
		return err
	}

	leafClassifier, err := newClassifier(cfg, len(diseases.Labels()), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := leafClassifier.Close(); err != nil {
			logger.Warn("close classifier", slog.String("error", err.Error()))
		}
		if err := classifier.ShutdownRuntime(); err != nil {
			logger.Warn("shutdown onnxruntime", slog.String("error", err.Error()))
		}
	}()

	m := metrics.New()
	deps := container.Deps{
		Users:      storage.NewMemoryUserRepository(),
		Classifier: leafClassifier,
		Describer:  diseases,
		Decoder:    preprocess.Decoder{},
		Observer:   m,
		Renderer:   report.NewPDFRenderer(),
		Logger:     logger,
	}
	if cfg.QualityGate {
		gate, err := vision.NewQualityGate(vision.DefaultQualityThresholds())
		switch {
		case errors.Is(err, vision.ErrNotEnabled):
			logger.Warn("quality gate requested but the binary is built without gocv")
		case err != nil:
			return fmt.Errorf("quality gate: %w", err)
		default:
			deps.Gate = gate
		}
	}
	appContainer := container.New(deps)

	if predictPath != "" {
		return predict(ctx, appContainer, predictPath)
	}

	return serve(ctx, cfg, appContainer, m, logger)
}

func newClassifier(cfg *config.Config, classCount int, logger *slog.Logger) (port.LeafClassifier, error) {
	layout, err := preprocess.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}
	clsCfg := classifier.Config{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.ORTLibraryPath,
		InputName:   cfg.InputName,
		OutputName:  cfg.OutputName,
		InputSize:   cfg.ImageSize,
		Layout:      layout,
		ClassCount:  classCount,
		Sigmoid:     cfg.Sigmoid,
		Threads:     cfg.Threads,
	}

	switch cfg.Backend {
	case config.BackendGoCV:
		c, err := vision.NewGoCVClassifier(clsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("opencv classifier: %w", err)
		}
		return c, nil
	default:
		c, err := classifier.NewONNXClassifier(clsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("onnx classifier: %w", err)
		}
		return c, nil
	}
}

// serve запускает веб-сервер и, если задан токен, Telegram-бота.
func serve(ctx context.Context, cfg *config.Config, c *container.Container, m *metrics.Metrics, logger *slog.Logger) error {
	server, err := web.NewServer(c, web.Options{
		Addr:          cfg.HTTPAddr,
		MaxUploadSize: cfg.MaxUploadSize,
		Observer:      m,
		Metrics:       m.Handler(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, c, telegram.Options{
			MaxFileSize: cfg.MaxUploadSize,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(ctx); err != nil {
				logger.Error("telegram bot stopped", slog.String("error", err.Error()))
				cancel()
			}
		}()
	} else {
		logger.Info("TELEGRAM_TOKEN is not set, bot disabled")
	}

	err = server.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// predict ставит диагноз одному файлу и печатает результат.
func predict(ctx context.Context, c *container.Container, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	diagnosis, err := c.DiagnosisService.Diagnose(ctx, data)
	if err != nil {
		return err
	}

	fmt.Println(telegram.FormatDiagnosis(diagnosis, c.Translations.For(entity.LanguageEnglish)))
	return nil
}
