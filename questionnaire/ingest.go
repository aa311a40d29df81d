// Package questionnaire ingests parsed spreadsheet forms into versioned
// questionnaire trees and reads them back for the API and XForm layers.
package questionnaire

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cadasta/questionnaires/attrs"
	"github.com/cadasta/questionnaires/log"
	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xform"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// walkContext carries the ambient state threaded through the recursive
// group and question creation.
type walkContext struct {
	tx              *sql.Tx
	cfg             *xlsform.Config
	project         *model.Project
	questionnaireID string
	defaultLanguage string
	typeIDs         map[string]int64
}

// CreateFromForm ingests a parsed form as a new questionnaire version for
// the project. The whole operation is one transaction: a failure at any
// step leaves no questionnaire, group, question, option or attribute rows
// behind. On success the project's current-questionnaire pointer moves to
// the new version.
func CreateFromForm(ctx context.Context, db *sql.DB, cfg *xlsform.Config, form *xlsform.Form, filename string, project *model.Project) (*model.Questionnaire, error) {
	if xlsform.HasWhitespace(form.IDString) {
		return nil, xlsform.NewError("'id_string' cannot be blank or contain whitespace.")
	}

	if err := xlsform.ValidateRequired(form.Children); err != nil {
		return nil, err
	}

	if err := xlsform.SanitizeForm(form); err != nil {
		return nil, err
	}

	if _, _, err := xlsform.CheckLanguages(form, cfg); err != nil {
		return nil, err
	}

	defaultLanguage := form.DefaultLanguage
	if defaultLanguage == model.DefaultLanguage {
		defaultLanguage = ""
	}

	version := time.Now().UnixMicro()

	xml, err := xform.NewRenderer(cfg).RenderForm(form, version)
	if err != nil {
		return nil, xlsform.AsError(err)
	}

	q := model.Questionnaire{
		ID:              uuid.Must(uuid.NewV4()).String(),
		ProjectID:       project.ID,
		Filename:        filename,
		Title:           form.Title,
		IDString:        form.IDString,
		DefaultLanguage: defaultLanguage,
		Version:         version,
		Md5Hash:         contentHash(form, version),
		XMLForm:         string(xml),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin ingestion")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO questionnaire
			(id, project_id, filename, title, id_string, default_language,
			 version, md5_hash, xml_form)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ProjectID, q.Filename, q.Title, q.IDString, q.DefaultLanguage,
		q.Version, q.Md5Hash, q.XMLForm,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert questionnaire")
	}

	typeIDs, err := attrs.LoadTypeIDs(ctx, tx)
	if err != nil {
		return nil, err
	}

	wc := &walkContext{
		tx:              tx,
		cfg:             cfg,
		project:         project,
		questionnaireID: q.ID,
		defaultLanguage: defaultLanguage,
		typeIDs:         typeIDs,
	}
	if err := createChildren(ctx, wc, form.Children, ""); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE project SET current_questionnaire = ? WHERE id = ?`,
		q.ID, project.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "update project pointer")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit ingestion")
	}
	project.CurrentQuestionnaire = q.ID

	log.Debugf("questionnaire.create: %s version %d for project %s", q.IDString, q.Version, project.ID)
	return &q, nil
}

func createChildren(ctx context.Context, wc *walkContext, fields []xlsform.Field, parentGroupID string) error {
	for index, field := range fields {
		if field.IsGroup() {
			if err := createGroup(ctx, wc, field, index, parentGroupID); err != nil {
				return err
			}
			continue
		}
		if err := createQuestion(ctx, wc, field, index, parentGroupID); err != nil {
			return err
		}
	}
	return nil
}

func createGroup(ctx context.Context, wc *walkContext, field xlsform.Field, index int, parentGroupID string) error {
	groupID := uuid.Must(uuid.NewV4()).String()
	label, err := labelJSON(field.Label)
	if err != nil {
		return err
	}

	_, err = wc.tx.ExecContext(ctx, `
		INSERT INTO question_group
			(id, questionnaire_id, parent_id, name, label, type, relevant, idx)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		groupID, wc.questionnaireID, nullable(parentGroupID),
		field.Name, label, field.Type, field.Bind.Relevant, index,
	)
	if err != nil {
		return errors.Wrapf(err, "insert question group %q", field.Name)
	}

	if contentType, ok := wc.cfg.ContentTypeFor(field.Name); ok {
		err = attrs.CreateSchema(ctx, wc.tx, wc.project, wc.questionnaireID,
			field, wc.typeIDs, contentType, wc.defaultLanguage)
		if err != nil {
			return err
		}
	}

	return createChildren(ctx, wc, field.Children, groupID)
}

func createQuestion(ctx context.Context, wc *walkContext, field xlsform.Field, index int, groupID string) error {
	ft, ok := model.FieldTypeByName(field.Type)
	if !ok {
		return xlsform.NewError(fmt.Sprintf("Unknown question type '%s'.", field.Type))
	}

	var accuracy *float64
	if field.GPSAccuracy != nil {
		if !xlsform.ValidateAccuracy(field.GPSAccuracy) || !ft.IsGeometry {
			return xlsform.NewError(fmt.Sprintf(
				"Invalid gps_accuracy on field '%s': please provide a positive number.", field.Name))
		}
		acc, err := toFloat(field.GPSAccuracy)
		if err != nil {
			return xlsform.NewError(fmt.Sprintf(
				"Invalid gps_accuracy on field '%s': please provide a positive number.", field.Name))
		}
		accuracy = &acc
	}

	questionID := uuid.Must(uuid.NewV4()).String()
	label, err := labelJSON(field.Label)
	if err != nil {
		return err
	}

	_, err = wc.tx.ExecContext(ctx, `
		INSERT INTO question
			(id, questionnaire_id, group_id, name, label, type, required,
			 default_value, hint, relevant, constraint_expr, gps_accuracy, idx)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		questionID, wc.questionnaireID, nullable(groupID),
		field.Name, label, ft.Code, field.IsRequired(),
		field.Default, field.Hint, field.Bind.Relevant, field.Bind.Constraint,
		accuracy, index,
	)
	if err != nil {
		return errors.Wrapf(err, "insert question %q", field.Name)
	}

	if !ft.HasOptions {
		return nil
	}
	for i, choice := range field.Choices {
		optLabel, err := labelJSON(choice.Label)
		if err != nil {
			return err
		}
		_, err = wc.tx.ExecContext(ctx, `
			INSERT INTO question_option (id, question_id, name, label, idx)
			VALUES (?, ?, ?, ?, ?)`,
			uuid.Must(uuid.NewV4()).String(), questionID, choice.Name, optLabel, i,
		)
		if err != nil {
			return errors.Wrapf(err, "insert option %q", choice.Name)
		}
	}
	return nil
}

func contentHash(form *xlsform.Form, version int64) string {
	content, _ := json.Marshal(form)
	sum := md5.Sum(append(content, []byte(strconv.FormatInt(version, 10))...))
	return hex.EncodeToString(sum[:])
}

func labelJSON(label model.Label) (string, error) {
	if len(label) == 0 {
		return "", nil
	}
	data, err := json.Marshal(label)
	if err != nil {
		return "", errors.Wrap(err, "encode label")
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, errors.Errorf("not a number: %v", v)
}
