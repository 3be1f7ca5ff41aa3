package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbolis/sparta-forms/app"
	"github.com/mbolis/sparta-forms/httpx"
	"github.com/mbolis/sparta-forms/log"
	"github.com/mbolis/sparta-forms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer, middlewares.Metrics)

	root.Handle("/metrics", promhttp.Handler())

	root.Get("/*", ServeSurvey(app))
	root.Post("/*", SubmitSurvey(app))
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogStatus(w, http.StatusMethodNotAllowed, log.DebugLevel, "request.method")
	})

	return root
}
