package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
)

// NewRouter registers every route together with the middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	r.Get("/health", h.health)
	r.Get("/uploads/{filename}", h.serveImage)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/me", h.me)
			r.Put("/profile", h.updateProfile)
			r.Put("/password", h.changePassword)
		})
	})

	r.Route("/ml", func(r chi.Router) {
		r.Get("/health", h.mlHealth)
		r.With(h.OptionalAuth).Get("/formats", h.formats)
		r.With(h.RequireAuth).Post("/predict", h.predict)
	})

	r.Route("/history", func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/", h.listHistory)
		r.Get("/stats", h.stats)
		r.Delete("/clear-all", h.clearHistory)
		r.Get("/{id}", h.getPrediction)
		r.Delete("/{id}", h.deletePrediction)
	})

	return r
}
