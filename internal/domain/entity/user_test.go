package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultState(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, StateMainMenu, u.State)
	require.Equal(t, LanguageEnglish, u.Language)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
}

func TestUser_SetLanguage(t *testing.T) {
	u := NewUser(1, 10)
	u.SetLanguage(LanguageHindi)
	require.Equal(t, LanguageHindi, u.Language)
}

func TestParseLanguage(t *testing.T) {
	require.Equal(t, LanguageHindi, ParseLanguage("hi"))
	require.Equal(t, LanguageHindi, ParseLanguage(" Hindi "))
	require.Equal(t, LanguageEnglish, ParseLanguage("English"))
	require.Equal(t, LanguageEnglish, ParseLanguage("fr"))
	require.Equal(t, LanguageEnglish, ParseLanguage(""))
}

func TestParseTheme(t *testing.T) {
	require.Equal(t, ThemeLight, ParseTheme("LIGHT"))
	require.Equal(t, ThemeDark, ParseTheme("dark"))
	require.Equal(t, ThemeDark, ParseTheme("neon"))
}
