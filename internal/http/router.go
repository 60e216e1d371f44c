package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chunkrelay/internal/handlers"
	"chunkrelay/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ConvertService service.ConvertService
	Converter      handlers.Pinger // nil for the in-process engine
	ConverterName  string
	Gatherer       prometheus.Gatherer // nil serves the default registry
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	convertHandler := handlers.NewConvertHandler(deps.ConvertService)
	healthHandler := handlers.NewHealthHandler(deps.Converter, deps.ConverterName)

	r.Method(http.MethodPost, "/convert/", convertHandler)
	r.Method(http.MethodPost, "/convert", convertHandler)
	r.Method(http.MethodGet, "/health", healthHandler)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
