package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Routes wires the API surface. metricsHandler serves the prometheus
// exposition (pending gauge + worker counters); nil disables the endpoint in
// tests.
func Routes(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.CreateJob)
		r.Get("/{id}", h.GetJob)
		r.Get("/{id}/documents", h.ListJobDocuments)
	})

	r.Get("/queue/stats", h.QueueStats)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}
