package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		accessLog,
		middleware.Recoverer,
	)

	r.Get("/healthz", app.Health)
	r.Get("/api/previews/{id}", app.Preview)

	r.Group(func(r chi.Router) {
		r.Use(app.withSession)

		r.Get("/", app.Index)
		r.Post("/api/uploads/{slot}", app.Upload)
		r.Post("/api/generate", app.Generate)
		r.Get("/api/state", app.State)
		r.Get("/api/result/download", app.Download)
		r.Get("/api/credentials", app.GetCredentials)
		r.Post("/api/credentials", app.SetCredentials)
	})

	return r
}
