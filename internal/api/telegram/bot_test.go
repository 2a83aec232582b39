package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	app "agroscan/internal/application"
	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/catalog"
	"agroscan/internal/infrastructure/storage"
)

// testBot поднимает фейковый Bot API, который на любой метод отвечает успехом.
func testBot(t *testing.T) (*Bot, *atomic.Int32) {
	t.Helper()

	var sent atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sent.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"message_id":1,"username":"agroscan_bot","chat":{"id":10}}}`)
	}))
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient("token", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	sent.Store(0)

	return &Bot{
		api:          api,
		users:        app.NewUserService(storage.NewMemoryUserRepository()),
		translations: catalog.DefaultTranslations(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &sent
}

func commandMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: 1},
		Chat:     &tgbotapi.Chat{ID: 10},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestHandleCommand_CheckAndCancel(t *testing.T) {
	b, sent := testBot(t)
	ctx := context.Background()

	user, err := b.users.Get(ctx, 1, 10)
	require.NoError(t, err)

	b.handleCommand(ctx, commandMessage("/check"), user)
	user, err = b.users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)

	b.handleCommand(ctx, commandMessage("/cancel"), user)
	user, err = b.users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	require.Equal(t, int32(2), sent.Load())
}
