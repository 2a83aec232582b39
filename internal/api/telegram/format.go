package telegram

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/catalog"
)

// imageRef ссылка на картинку внутри сообщения.
type imageRef struct {
	FileID string
	Size   int
}

// imageOf достаёт самое крупное фото или документ с картинкой.
func imageOf(msg *tgbotapi.Message) (imageRef, bool) {
	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		return imageRef{FileID: photo.FileID, Size: photo.FileSize}, true
	}
	if doc := msg.Document; doc != nil && strings.HasPrefix(doc.MimeType, "image/") {
		return imageRef{FileID: doc.FileID, Size: doc.FileSize}, true
	}
	return imageRef{}, false
}

// FormatDiagnosis собирает текст ответа: основная болезнь и остальные находки,
// у каждой описание, лечение и опрыскивание.
func FormatDiagnosis(d *entity.Diagnosis, t func(string) string) string {
	primary, ok := d.Primary()
	if !ok {
		return t("healthy")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s: %.2f%% %s\n\n", t("primary"), primary.Label, primary.Percent(), t("confidence"))
	writeAdvice(&sb, primary.Disease, t, "")

	if secondary := d.Secondary(); len(secondary) > 0 {
		fmt.Fprintf(&sb, "\n\n%s", t("secondary"))
		for _, f := range secondary {
			fmt.Fprintf(&sb, "\n\n• %s: %.2f%% %s\n", f.Label, f.Percent(), t("confidence"))
			writeAdvice(&sb, f.Disease, t, "  ")
		}
	}

	return sb.String()
}

// writeAdvice пишет описание, лечение и опрыскивание с отступом indent.
func writeAdvice(sb *strings.Builder, info entity.Disease, t func(string) string, indent string) {
	fmt.Fprintf(sb, "%s%s\n%s%s\n", indent, t("description"), indent, info.Info)
	fmt.Fprintf(sb, "%s%s\n%s%s\n", indent, t("treatment"), indent, info.Treatment)
	fmt.Fprintf(sb, "%s%s\n%s%s", indent, t("spray"), indent, info.Spray)
}

func failureMessage(t func(string) string, err error) string {
	switch {
	case errors.Is(err, entity.ErrUnsupportedImage), errors.Is(err, entity.ErrEmptyImage):
		return t("bot_bad_image")
	case errors.Is(err, entity.ErrQualityRejected):
		return t("bot_quality")
	default:
		return t("error")
	}
}

func languagePrompt(tr *catalog.Translations) string {
	var sb strings.Builder
	sb.WriteString(tr.Text(entity.LanguageEnglish, "select_language"))
	for _, l := range entity.Languages {
		fmt.Fprintf(&sb, "\n/language %s — %s", l, tr.Text(l, "language_name"))
	}
	return sb.String()
}
