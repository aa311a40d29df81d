package routes

import (
	"net/http"

	"github.com/cadasta/questionnaires/app"
	"github.com/cadasta/questionnaires/httpx"
	"github.com/cadasta/questionnaires/log"
	"github.com/cadasta/questionnaires/model"
	"github.com/gofrs/uuid"

	"github.com/go-chi/render"
)

func CreateProject(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project := model.Project{}
		err := render.DecodeJSON(r.Body, &project)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if project.OrganizationID == "" || project.Slug == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel,
				"request.validate_body", "organization_id and slug are required")
			return
		}

		project.ID = uuid.Must(uuid.NewV4()).String()
		_, err = app.ExecContext(r.Context(), `
			INSERT INTO project (id, organization_id, slug) VALUES (?, ?, ?)`,
			project.ID,
			project.OrganizationID,
			project.Slug,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_project", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": project.ID,
		})
	}
}

func ListProjects(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
		SELECT p.id, p.organization_id, p.slug, p.current_questionnaire
		FROM project p`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_projects", err)
			return
		}
		defer rows.Close()

		projects := []model.Project{}
		for rows.Next() {
			p := model.Project{}
			err = rows.Scan(&p.ID, &p.OrganizationID, &p.Slug, &p.CurrentQuestionnaire)
			if err != nil {
				httpx.LogInternalError(w, "db.get_projects.scan", err)
				return
			}

			projects = append(projects, p)
		}

		render.JSON(w, r, map[string]any{
			"projects": projects,
		})
	}
}
