package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"logomotion/internal/http/handlers"
	"logomotion/internal/infra"
	"logomotion/internal/metrics"
	"logomotion/internal/middleware"
)

type Options struct {
	Logger          *infra.Logger
	Metrics         *metrics.Recorder
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	locale := opts.DefaultLocale
	if locale == "" {
		locale = "en"
	}
	var observer middleware.RequestObserver
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(*logger, observer),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(locale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(stdhttp.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/v1/credential", func(r chi.Router) {
		r.Get("/", app.CredentialStatus)
		r.Post("/", app.CredentialSelect)
	})

	generate := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.SessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.SessionGet)
			r.Delete("/", app.SessionDelete)

			r.With(generate).Post("/logo", app.LogoGenerate)
			r.Delete("/logo", app.LogoDiscard)
			r.Get("/logo/download", app.LogoDownload)

			r.With(generate).Post("/animation", app.AnimationStart)
			r.Get("/video", app.VideoDownload)
			r.Delete("/video", app.VideoDiscard)

			r.Get("/bundle", app.Bundle)
		})
	})

	return r
}
