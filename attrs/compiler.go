// Package attrs derives dynamic attribute schemas from attribute-group
// nodes of a questionnaire. Schemas are addressed by a selector tuple
// (organization, project, questionnaire, optional discriminant) so one
// entity type can carry different attribute sets per questionnaire version
// and per conditional branch.
package attrs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/gofrs/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// MissingRelevantMsg is the single fixed message for a selector collision.
// It cannot distinguish a genuine duplicate upload from a forgotten
// 'relevant' clause; the calling context cannot tell the two apart either.
const MissingRelevantMsg = "Attribute schema selector already exists; check for a missing 'relevant' clause on the attribute group."

// Selector is the ordered key addressing one attribute schema.
type Selector []string

func (s Selector) String() string {
	return strings.Join(s, ",")
}

// NewSelector builds the selector tuple for a group. A 'relevant'
// expression of the form field='value' contributes its literal value,
// quotes stripped, as the conditional discriminant.
func NewSelector(orgID, projectID, questionnaireID, relevant string) Selector {
	sel := Selector{orgID, projectID, questionnaireID}
	if relevant != "" {
		parts := strings.SplitN(relevant, "=", 2)
		discriminant := strings.Trim(parts[len(parts)-1], `'"`)
		sel = append(sel, discriminant)
	}
	return sel
}

// Names reserved for resource-attachment widgets; never attributes.
var reservedNames = map[string]bool{
	"party_resource":    true,
	"location_resource": true,
	"tenure_resource":   true,
}

// AttrType derives the attribute backing type from a spreadsheet field
// type. "select all that apply" maps to select_multiple; any other
// multi-word name has its spaces replaced by underscores, undoing the
// renaming the spreadsheet parser applies to such types.
func AttrType(fieldType string) string {
	if fieldType == "select all that apply" {
		return "select_multiple"
	}
	return strings.ReplaceAll(fieldType, " ", "_")
}

// LoadTypeIDs reads the attribute-type lookup table.
func LoadTypeIDs(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM attribute_type`)
	if err != nil {
		return nil, errors.Wrap(err, "load attribute types")
	}
	defer rows.Close()

	ids := map[string]int64{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, errors.Wrap(err, "scan attribute type")
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// CreateSchema creates one attribute schema plus its attribute rows for an
// attribute group, inside the caller's transaction. Attribute creation
// follows 1-based declaration order and stops at the first unsupported
// type; the surrounding transaction guarantees no partial rows survive.
func CreateSchema(
	ctx context.Context,
	tx *sql.Tx,
	project *model.Project,
	questionnaireID string,
	group xlsform.Field,
	typeIDs map[string]int64,
	contentType xlsform.ContentType,
	defaultLanguage string,
) error {
	schema := model.AttributeSchema{
		ID:              uuid.Must(uuid.NewV4()).String(),
		ContentType:     contentType.String(),
		Selector:        NewSelector(project.OrganizationID, project.ID, questionnaireID, group.Bind.Relevant).String(),
		DefaultLanguage: defaultLanguage,
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO attribute_schema (id, content_type, selector, default_language)
		VALUES (?, ?, ?, ?)`,
		schema.ID, schema.ContentType, schema.Selector, schema.DefaultLanguage,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return xlsform.NewError(MissingRelevantMsg)
		}
		return errors.Wrap(err, "insert attribute schema")
	}

	index := 0
	for _, field := range group.Children {
		if reservedNames[field.Name] {
			continue
		}
		index++

		attrType := AttrType(field.Type)
		typeID, ok := typeIDs[attrType]
		if !ok {
			return xlsform.NewError(fmt.Sprintf(
				"Unsupported attribute type '%s' on field '%s'.", attrType, field.Name))
		}

		var choices, choiceLabels []string
		for _, c := range field.Choices {
			choices = append(choices, c.Name)
			choiceLabels = append(choiceLabels, c.Label.In(defaultLanguage))
		}

		choicesJSON, err := json.Marshal(choices)
		if err != nil {
			return errors.Wrap(err, "encode choices")
		}
		labelsJSON, err := json.Marshal(choiceLabels)
		if err != nil {
			return errors.Wrap(err, "encode choice labels")
		}

		attr := model.Attribute{
			ID:           uuid.Must(uuid.NewV4()).String(),
			SchemaID:     schema.ID,
			Name:         field.Name,
			LongName:     field.Label.In(defaultLanguage),
			TypeID:       typeID,
			Choices:      string(choicesJSON),
			ChoiceLabels: string(labelsJSON),
			Default:      field.Default,
			Required:     field.IsRequired(),
			Omit:         field.Omit == "yes",
			Index:        index,
		}
		if attr.LongName == "" {
			attr.LongName = field.Name
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO attribute
				(id, schema_id, name, long_name, type_id, choices, choice_labels,
				 default_value, required, omit, idx)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			attr.ID, attr.SchemaID, attr.Name, attr.LongName, attr.TypeID,
			attr.Choices, attr.ChoiceLabels, attr.Default, attr.Required,
			attr.Omit, attr.Index,
		)
		if err != nil {
			return errors.Wrapf(err, "insert attribute %q", field.Name)
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
