package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"agroscan/internal/domain/entity"
	"agroscan/internal/infrastructure/preprocess"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticDir embed.FS

const (
	cookieLang  = "agroscan_lang"
	cookieTheme = "agroscan_theme"
)

func staticFS() fs.FS {
	sub, err := fs.Sub(staticDir, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var templateFuncs = template.FuncMap{
	"percent": func(c float32) string {
		return strconv.FormatFloat(float64(c)*100, 'f', 2, 64)
	},
	// confidence кодирует float32 без потерь для повторной отправки формы.
	"confidence": func(c float32) string {
		return strconv.FormatFloat(float64(c), 'g', -1, 32)
	},
	"details": func(t func(string) string, f entity.Finding) detailsData {
		return detailsData{T: t, Finding: f}
	},
}

type detailsData struct {
	T       func(string) string
	Finding entity.Finding
}

// pages хранит отдельный набор шаблонов на каждую страницу.
type pages struct {
	index  *template.Template
	result *template.Template
}

func loadPages() (*pages, error) {
	parse := func(page string) (*template.Template, error) {
		return template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	}

	index, err := parse("index.html")
	if err != nil {
		return nil, err
	}
	result, err := parse("result.html")
	if err != nil {
		return nil, err
	}
	return &pages{index: index, result: result}, nil
}

type languageOption struct {
	Code     entity.Language
	Name     string
	Selected bool
}

type pageData struct {
	Lang      entity.Language
	Theme     entity.Theme
	Languages []languageOption
	T         func(string) string
	Error     string

	Diagnosis *entity.Diagnosis
	Primary   *entity.Finding
	Secondary []entity.Finding
	ImageURI  template.URL
}

// preferences берёт язык и тему из формы или запроса, иначе из cookie,
// и запоминает выбор в cookie.
func (s *Server) preferences(w http.ResponseWriter, r *http.Request) (entity.Language, entity.Theme) {
	lang := entity.LanguageEnglish
	theme := entity.ThemeDark

	if c, err := r.Cookie(cookieLang); err == nil {
		lang = entity.ParseLanguage(c.Value)
	}
	if c, err := r.Cookie(cookieTheme); err == nil {
		theme = entity.ParseTheme(c.Value)
	}

	if v := r.FormValue("lang"); v != "" {
		lang = entity.ParseLanguage(v)
		http.SetCookie(w, &http.Cookie{Name: cookieLang, Value: string(lang), Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	}
	if v := r.FormValue("theme"); v != "" {
		theme = entity.ParseTheme(v)
		http.SetCookie(w, &http.Cookie{Name: cookieTheme, Value: string(theme), Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	}
	return lang, theme
}

func (s *Server) newPage(lang entity.Language, theme entity.Theme) pageData {
	options := make([]languageOption, 0, len(entity.Languages))
	for _, l := range entity.Languages {
		options = append(options, languageOption{
			Code:     l,
			Name:     s.translations.Text(l, "language_name"),
			Selected: l == lang,
		})
	}
	return pageData{
		Lang:      lang,
		Theme:     theme,
		Languages: options,
		T:         s.translations.For(lang),
	}
}

// render исполняет шаблон в буфер, чтобы ошибка не оставила полстраницы.
func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, status int, data pageData) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("render template", "template", tmpl.Name(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func dataURI(data []byte) template.URL {
	ct := preprocess.ContentType(preprocess.DetectFormat(data))
	return template.URL("data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data))
}
