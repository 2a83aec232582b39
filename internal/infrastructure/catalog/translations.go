package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"agroscan/internal/domain/entity"
)

//go:embed translations.yaml
var defaultTranslations []byte

// Texts строки интерфейса одного языка.
type Texts map[string]string

// Translations строки интерфейса по языкам; недостающие берутся из английского.
type Translations struct {
	langs map[entity.Language]Texts
}

// DefaultTranslations возвращает встроенные английские и хинди строки.
func DefaultTranslations() *Translations {
	t, err := ParseTranslations(defaultTranslations)
	if err != nil {
		panic(fmt.Sprintf("embedded translations: %v", err))
	}
	return t
}

// ParseTranslations разбирает YAML вида язык → ключ → строка.
func ParseTranslations(data []byte) (*Translations, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}
	if _, ok := raw[string(entity.LanguageEnglish)]; !ok {
		return nil, fmt.Errorf("translations must contain %q", entity.LanguageEnglish)
	}

	t := &Translations{langs: make(map[entity.Language]Texts, len(raw))}
	for code, texts := range raw {
		t.langs[entity.Language(code)] = texts
	}
	return t, nil
}

// Text возвращает строку для языка, затем английскую, затем сам ключ.
func (t *Translations) Text(lang entity.Language, key string) string {
	if s, ok := t.langs[lang][key]; ok {
		return s
	}
	if s, ok := t.langs[entity.LanguageEnglish][key]; ok {
		return s
	}
	return key
}

// For возвращает функцию перевода для одного языка.
func (t *Translations) For(lang entity.Language) func(key string) string {
	return func(key string) string {
		return t.Text(lang, key)
	}
}
