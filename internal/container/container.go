package container

import (
	"log/slog"

	app "agroscan/internal/application"
	"agroscan/internal/domain/port"
	"agroscan/internal/infrastructure/catalog"
)

// Deps инфраструктура, собранная в main.
type Deps struct {
	Users        port.UserRepository
	Classifier   port.LeafClassifier
	Describer    port.DiseaseDescriber
	Decoder      port.ImageDecoder
	Gate         port.QualityGate
	Observer     port.DiagnosisObserver
	Renderer     port.ReportRenderer
	Translations *catalog.Translations
	Logger       *slog.Logger
}

type Container struct {
	UserService      *app.UserService
	DiagnosisService *app.DiagnosisService
	ReportService    *app.ReportService
	Translations     *catalog.Translations
}

func New(deps Deps) *Container {
	translations := deps.Translations
	if translations == nil {
		translations = catalog.DefaultTranslations()
	}

	return &Container{
		UserService: app.NewUserService(deps.Users),
		DiagnosisService: app.NewDiagnosisService(app.DiagnosisDeps{
			Classifier: deps.Classifier,
			Describer:  deps.Describer,
			Decoder:    deps.Decoder,
			Gate:       deps.Gate,
			Observer:   deps.Observer,
			Logger:     deps.Logger,
		}),
		ReportService: app.NewReportService(deps.Renderer, deps.Logger),
		Translations:  translations,
	}
}
