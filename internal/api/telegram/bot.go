package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "agroscan/internal/application"
	"agroscan/internal/container"
	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/catalog"
	"agroscan/internal/infrastructure/report"
)

const defaultMaxFileSize = 10 << 20

var errFileTooLarge = errors.New("file is too large")

// Options настройки бота.
type Options struct {
	MaxFileSize int64
	Logger      *slog.Logger
}

// Bot представляет Telegram-бота
type Bot struct {
	api          *tgbotapi.BotAPI
	users        *app.UserService
	diagnosis    *app.DiagnosisService
	reports      *app.ReportService
	translations *catalog.Translations
	files        *resty.Client
	maxFileSize  int64
	logger       *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, opts Options) (*Bot, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	_ = tgbotapi.SetLogger(slog.NewLogLogger(opts.Logger.Handler(), slog.LevelDebug))

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("telegram bot authorized", slog.String("account", api.Self.UserName))

	return &Bot{
		api:          api,
		users:        c.UserService,
		diagnosis:    c.DiagnosisService,
		reports:      c.ReportService,
		translations: c.Translations,
		files:        resty.New().SetTimeout(time.Minute),
		maxFileSize:  opts.MaxFileSize,
		logger:       opts.Logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("get user", slog.Int64("user_id", msg.From.ID), slog.String("error", err.Error()))
		return
	}
	t := b.translations.For(user.Language)

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото или картинки, присланной файлом
	if img, ok := imageOf(msg); ok {
		b.handleImage(ctx, msg, user, img)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, t("bot_send_photo"))
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	t := b.translations.For(user.Language)

	switch msg.Command() {
	case "start":
		b.setState(ctx, msg, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, t("bot_start"))

	case "help":
		b.sendMessage(msg.Chat.ID, t("bot_help"))

	case "check":
		if _, err := b.users.BeginCheck(ctx, msg.From.ID, msg.Chat.ID); err != nil {
			b.logger.Error("begin check", slog.String("error", err.Error()))
			b.sendMessage(msg.Chat.ID, t("error"))
			return
		}
		b.sendMessage(msg.Chat.ID, t("bot_awaiting_photo"))

	case "cancel":
		if _, err := b.users.Cancel(ctx, msg.From.ID, msg.Chat.ID); err != nil {
			b.logger.Error("cancel check", slog.String("error", err.Error()))
		}
		b.sendMessage(msg.Chat.ID, t("bot_cancelled"))

	case "language":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg == "" {
			b.sendMessage(msg.Chat.ID, languagePrompt(b.translations))
			return
		}
		lang := entity.ParseLanguage(arg)
		if _, err := b.users.SetLanguage(ctx, msg.From.ID, msg.Chat.ID, lang); err != nil {
			b.logger.Error("set language", slog.String("error", err.Error()))
			return
		}
		b.sendMessage(msg.Chat.ID, b.translations.Text(lang, "bot_language_set"))

	default:
		b.sendMessage(msg.Chat.ID, t("bot_unknown_command"))
	}
}

// handleImage скачивает фото, ставит диагноз и отправляет текст и PDF-отчёт
func (b *Bot) handleImage(ctx context.Context, msg *tgbotapi.Message, user *entity.User, img imageRef) {
	t := b.translations.For(user.Language)
	chatID := msg.Chat.ID

	// Устанавливаем состояние "обработка"
	b.setState(ctx, msg, entity.StateProcessing)
	defer b.setState(ctx, msg, entity.StateMainMenu)

	b.sendMessage(chatID, t("analyzing"))

	data, err := b.downloadFile(ctx, img)
	if err != nil {
		b.logger.Warn("download photo", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
		if errors.Is(err, errFileTooLarge) {
			b.sendMessage(chatID, t("bot_too_large"))
		} else {
			b.sendMessage(chatID, t("error"))
		}
		return
	}

	diagnosis, err := b.diagnosis.Diagnose(ctx, data)
	if err != nil {
		b.logger.Warn("diagnose photo", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
		b.sendMessage(chatID, failureMessage(t, err))
		return
	}

	b.sendMessage(chatID, FormatDiagnosis(diagnosis, t))

	pdf, err := b.reports.Build(ctx, diagnosis)
	if err != nil {
		b.logger.Error("build report", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: report.FileName, Bytes: pdf})
	doc.Caption = t("download")
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("send report", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

func (b *Bot) setState(ctx context.Context, msg *tgbotapi.Message, state entity.UserState) {
	if _, err := b.users.SetState(ctx, msg.From.ID, msg.Chat.ID, state); err != nil {
		b.logger.Error("set user state", slog.String("state", string(state)), slog.String("error", err.Error()))
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, img imageRef) ([]byte, error) {
	if img.Size > 0 && int64(img.Size) > b.maxFileSize {
		return nil, errFileTooLarge
	}

	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: img.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	resp, err := b.files.R().SetContext(ctx).Get(file.Link(b.api.Token))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode())
	}
	if int64(len(resp.Body())) > b.maxFileSize {
		return nil, errFileTooLarge
	}

	return resp.Body(), nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}
