package routes

import (
	"net/http"

	"github.com/cadasta/questionnaires/app"
	"github.com/cadasta/questionnaires/routes/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/projects/{id}/questionnaires/current", GetCurrentQuestionnaire(app))
	api.Get("/questionnaires/{id}", GetQuestionnaireById(app))
	api.Get("/questionnaires/{id}/xform", GetXFormById(app))
	api.Post("/questionnaires/validate", ValidateQuestionnaire(app))
	api.Post("/questionnaires/xform", RenderXForm(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Post("/projects", CreateProject(app))
		r.Get("/projects", ListProjects(app))
		r.Post("/projects/{id}/questionnaires", CreateQuestionnaire(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
