package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/cadasta/questionnaires/app"
	"github.com/cadasta/questionnaires/httpx"
	"github.com/cadasta/questionnaires/log"
	"github.com/cadasta/questionnaires/questionnaire"
	"github.com/cadasta/questionnaires/xform"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func CreateQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		project, err := questionnaire.GetProject(r.Context(), app.DB, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "get_project", projectID)
			} else {
				httpx.LogInternalError(w, "db.get_project", err)
			}
			return
		}

		form, err := xlsform.Parse(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		filename := r.URL.Query().Get("filename")
		if filename == "" {
			filename = form.IDString
		}

		q, err := questionnaire.CreateFromForm(r.Context(), app.DB, app.FormCfg, form, filename, project)
		if err != nil {
			var ferr *xlsform.Error
			if errors.As(err, &ferr) {
				log.Debug("questionnaire.create:", ferr)
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, map[string]any{"errors": ferr.Errors})
				return
			}
			httpx.LogInternalError(w, "db.create_questionnaire", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, q)
	}
}

func GetQuestionnaireById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionnaireID := chi.URLParam(r, "id")

		tree, err := questionnaire.LoadTree(r.Context(), app.DB, questionnaireID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "get_questionnaire", questionnaireID)
			} else {
				httpx.LogInternalError(w, "db.get_questionnaire", err)
			}
			return
		}

		render.JSON(w, r, tree)
	}
}

func GetCurrentQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		current, err := questionnaire.CurrentForProject(r.Context(), app.DB, projectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "get_current_questionnaire", projectID)
			} else {
				httpx.LogInternalError(w, "db.get_current_questionnaire", err)
			}
			return
		}

		tree, err := questionnaire.LoadTree(r.Context(), app.DB, current.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_questionnaire", err)
			return
		}

		render.JSON(w, r, tree)
	}
}

// GetXFormById renders a live XForm definition from the stored rows.
func GetXFormById(app app.App) http.HandlerFunc {
	renderer := xform.NewRenderer(app.FormCfg)

	return func(w http.ResponseWriter, r *http.Request) {
		questionnaireID := chi.URLParam(r, "id")

		tree, err := questionnaire.LoadTree(r.Context(), app.DB, questionnaireID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "get_xform", questionnaireID)
			} else {
				httpx.LogInternalError(w, "db.get_xform", err)
			}
			return
		}

		payload := xform.Payload{
			IDString:       tree.IDString,
			Version:        strconv.FormatInt(tree.Version, 10),
			Questions:      tree.Questions,
			QuestionGroups: tree.QuestionGroups,
		}
		xml, err := renderer.Render(payload)
		if err != nil {
			httpx.LogInternalError(w, "xform.render", err)
			return
		}

		w.Header().Set("content-type", "application/xml; charset=utf-8")
		w.Write(xml)
	}
}

// RenderXForm renders a payload assembled by the caller instead of the
// database, the API-driven path for form previews.
func RenderXForm(app app.App) http.HandlerFunc {
	renderer := xform.NewRenderer(app.FormCfg)

	return func(w http.ResponseWriter, r *http.Request) {
		payload := xform.Payload{}
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(payload); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate_body", "%s", err)
			return
		}

		xml, err := renderer.Render(payload)
		if err != nil {
			var ferr *xlsform.Error
			if errors.As(err, &ferr) {
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, map[string]any{"errors": ferr.Errors})
				return
			}
			httpx.LogInternalError(w, "xform.render", err)
			return
		}

		w.Header().Set("content-type", "application/xml; charset=utf-8")
		w.Write(xml)
	}
}

// ValidateQuestionnaire is the pre-flight check over a raw questionnaire
// document, run before attempting a full API-driven creation.
func ValidateQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{}
		if err := render.DecodeJSON(r.Body, &doc); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if errs := xlsform.ValidateQuestionnaire(doc, app.FormCfg); errs != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, errs)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
