package questionnaire

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cadasta/questionnaires/model"
	"github.com/pkg/errors"
)

// Tree is a questionnaire with its fully reconstructed question and group
// hierarchy, as served by the API and fed to the XForm renderer.
type Tree struct {
	model.Questionnaire
	Questions      []model.Question      `json:"questions"`
	QuestionGroups []model.QuestionGroup `json:"question_groups"`
}

func GetProject(ctx context.Context, db *sql.DB, id string) (*model.Project, error) {
	p := model.Project{}
	err := db.QueryRowContext(ctx, `
		SELECT id, organization_id, slug, current_questionnaire
		FROM project WHERE id = ?`, id,
	).Scan(&p.ID, &p.OrganizationID, &p.Slug, &p.CurrentQuestionnaire)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func Get(ctx context.Context, db *sql.DB, id string) (*model.Questionnaire, error) {
	q := model.Questionnaire{}
	err := db.QueryRowContext(ctx, `
		SELECT id, project_id, filename, title, id_string, default_language,
		       version, md5_hash, xml_form
		FROM questionnaire WHERE id = ?`, id,
	).Scan(&q.ID, &q.ProjectID, &q.Filename, &q.Title, &q.IDString,
		&q.DefaultLanguage, &q.Version, &q.Md5Hash, &q.XMLForm)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CurrentForProject resolves the project's current-questionnaire pointer.
func CurrentForProject(ctx context.Context, db *sql.DB, projectID string) (*model.Questionnaire, error) {
	p, err := GetProject(ctx, db, projectID)
	if err != nil {
		return nil, err
	}
	if p.CurrentQuestionnaire == "" {
		return nil, sql.ErrNoRows
	}
	return Get(ctx, db, p.CurrentQuestionnaire)
}

// LoadTree reconstructs the full question/group hierarchy for a
// questionnaire.
func LoadTree(ctx context.Context, db *sql.DB, id string) (*Tree, error) {
	q, err := Get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	tree := Tree{Questionnaire: *q}

	groups, groupsByID, err := loadGroups(ctx, db, id)
	if err != nil {
		return nil, err
	}

	questions, err := loadQuestions(ctx, db, id)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		question := questions[i]
		if question.GroupID != "" {
			if g, ok := groupsByID[question.GroupID]; ok {
				g.Questions = append(g.Questions, question)
				continue
			}
		}
		tree.Questions = append(tree.Questions, question)
	}

	// nest child groups under their parents, keep roots at the top level;
	// children are materialized depth-first so copies are complete
	children := map[string][]*model.QuestionGroup{}
	var roots []*model.QuestionGroup
	for _, g := range groups {
		if g.ParentID != "" && groupsByID[g.ParentID] != nil {
			children[g.ParentID] = append(children[g.ParentID], g)
			continue
		}
		roots = append(roots, g)
	}
	var materialize func(g *model.QuestionGroup) model.QuestionGroup
	materialize = func(g *model.QuestionGroup) model.QuestionGroup {
		out := *g
		for _, child := range children[g.ID] {
			out.QuestionGroups = append(out.QuestionGroups, materialize(child))
		}
		return out
	}
	for _, root := range roots {
		tree.QuestionGroups = append(tree.QuestionGroups, materialize(root))
	}

	return &tree, nil
}

func loadGroups(ctx context.Context, db *sql.DB, questionnaireID string) ([]*model.QuestionGroup, map[string]*model.QuestionGroup, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(parent_id, ''), name, label, type, relevant, idx
		FROM question_group
		WHERE questionnaire_id = ?
		ORDER BY idx`, questionnaireID,
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load question groups")
	}
	defer rows.Close()

	var groups []*model.QuestionGroup
	byID := map[string]*model.QuestionGroup{}
	for rows.Next() {
		g := model.QuestionGroup{QuestionnaireID: questionnaireID}
		var label string
		err = rows.Scan(&g.ID, &g.ParentID, &g.Name, &label, &g.Type, &g.Relevant, &g.Index)
		if err != nil {
			return nil, nil, errors.Wrap(err, "scan question group")
		}
		if err := parseLabel(label, &g.Label); err != nil {
			return nil, nil, err
		}
		groups = append(groups, &g)
		byID[g.ID] = &g
	}
	return groups, byID, rows.Err()
}

func loadQuestions(ctx context.Context, db *sql.DB, questionnaireID string) ([]model.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(group_id, ''), name, label, type, required,
		       default_value, hint, relevant, constraint_expr, gps_accuracy, idx
		FROM question
		WHERE questionnaire_id = ?
		ORDER BY idx`, questionnaireID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q := model.Question{QuestionnaireID: questionnaireID}
		var label string
		err = rows.Scan(&q.ID, &q.GroupID, &q.Name, &label, &q.Type, &q.Required,
			&q.Default, &q.Hint, &q.Relevant, &q.Constraint, &q.GPSAccuracy, &q.Index)
		if err != nil {
			return nil, errors.Wrap(err, "scan question")
		}
		if err := parseLabel(label, &q.Label); err != nil {
			return nil, err
		}
		if q.HasOptions() {
			if q.Options, err = loadOptions(ctx, db, q.ID); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func loadOptions(ctx context.Context, db *sql.DB, questionID string) ([]model.QuestionOption, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, label, idx
		FROM question_option
		WHERE question_id = ?
		ORDER BY idx`, questionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load question options")
	}
	defer rows.Close()

	var options []model.QuestionOption
	for rows.Next() {
		opt := model.QuestionOption{QuestionID: questionID}
		var label string
		if err := rows.Scan(&opt.ID, &opt.Name, &label, &opt.Index); err != nil {
			return nil, errors.Wrap(err, "scan question option")
		}
		if err := parseLabel(label, &opt.Label); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func parseLabel(raw string, label *model.Label) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), label); err != nil {
		return errors.Wrap(err, "parse stored label")
	}
	return nil
}
