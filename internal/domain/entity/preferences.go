package entity

import "strings"

// Language язык интерфейса.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// Languages перечисляет поддерживаемые языки в порядке показа.
var Languages = []Language{LanguageEnglish, LanguageHindi}

// ParseLanguage разбирает код или название языка, по умолчанию английский.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hi", "hindi", "हिन्दी", "हिंदी":
		return LanguageHindi
	default:
		return LanguageEnglish
	}
}

// Theme цветовая тема веб-интерфейса.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme разбирает тему, по умолчанию тёмная.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeLight)) {
		return ThemeLight
	}
	return ThemeDark
}
