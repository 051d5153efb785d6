package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"feedplanner/internal/http/handlers"
	"feedplanner/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	Logger          zerolog.Logger
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	// Provider callbacks authenticate with the webhook token, not a JWT.
	r.Post("/v1/webhooks/predictions", app.PredictionWebhook)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
			middleware.AuthJWT(app.JWTSecret),
		)
		r.Route("/v1/feeds", func(r chi.Router) {
			r.Post("/", app.FeedsCreate)
			r.Get("/{feedID}", app.FeedsGet)
			r.Post("/{feedID}/queue", app.FeedsQueue)
		})
		r.Route("/v1/rotation", func(r chi.Router) {
			r.Get("/", app.RotationGet)
			r.Post("/reset", app.RotationReset)
		})
	})

	return r
}
