package attrs

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/cadasta/questionnaires/config"
	"github.com/cadasta/questionnaires/database"
	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelector(t *testing.T) {
	sel := NewSelector("org1", "prj1", "qst1", "")
	assert.Equal(t, Selector{"org1", "prj1", "qst1"}, sel)

	sel = NewSelector("org1", "prj1", "qst1", "${party_type}='IN'")
	assert.Equal(t, Selector{"org1", "prj1", "qst1", "IN"}, sel)
	assert.Equal(t, "org1,prj1,qst1,IN", sel.String())

	sel = NewSelector("org1", "prj1", "qst1", `${party_type}="GR"`)
	assert.Equal(t, "GR", sel[3])
}

func TestAttrType(t *testing.T) {
	assert.Equal(t, "select_multiple", AttrType("select all that apply"))
	assert.Equal(t, "select_one", AttrType("select one"))
	assert.Equal(t, "text", AttrType("text"))
}

func TestCreateSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	project := testProject(t, db)

	group := xlsform.Field{
		Name: "party_attributes",
		Type: xlsform.TypeGroup,
		Children: []xlsform.Field{
			{Name: "notes", Type: "text", Label: model.Label{"default": "Notes"}},
			{
				Name: "quality", Type: "select one",
				Bind: xlsform.Bind{Required: "yes"},
				Choices: []xlsform.Choice{
					{Name: "good", Label: model.Label{"default": "Good"}},
					{Name: "bad", Label: model.Label{"default": "Bad"}},
				},
			},
			{Name: "party_resource", Type: "text"},
		},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		typeIDs, err := LoadTypeIDs(ctx, tx)
		require.NoError(t, err)

		err = CreateSchema(ctx, tx, project, "qst1", group, typeIDs,
			xlsform.ContentType{AppLabel: "party", Model: "party"}, "")
		require.NoError(t, err)
		return nil
	})

	var selector string
	err := db.QueryRow(`SELECT selector FROM attribute_schema WHERE content_type = 'party.party'`).
		Scan(&selector)
	require.NoError(t, err)
	assert.Equal(t, project.OrganizationID+","+project.ID+",qst1", selector)

	// the reserved *_resource field is skipped
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM attribute`).Scan(&count))
	assert.Equal(t, 2, count)

	var choices string
	var required bool
	var idx int
	err = db.QueryRow(`SELECT choices, required, idx FROM attribute WHERE name = 'quality'`).
		Scan(&choices, &required, &idx)
	require.NoError(t, err)
	assert.Equal(t, `["good","bad"]`, choices)
	assert.True(t, required)
	assert.Equal(t, 2, idx)
}

func TestCreateSchemaConditionalSelector(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	project := testProject(t, db)

	group := xlsform.Field{
		Name: "party_attributes_gr",
		Type: xlsform.TypeGroup,
		Bind: xlsform.Bind{Relevant: "${party_type}='GR'"},
		Children: []xlsform.Field{
			{Name: "number_of_members", Type: "integer"},
		},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		typeIDs, err := LoadTypeIDs(ctx, tx)
		require.NoError(t, err)
		return CreateSchema(ctx, tx, project, "qst1", group, typeIDs,
			xlsform.ContentType{AppLabel: "party", Model: "party"}, "")
	})

	var selector string
	err := db.QueryRow(`SELECT selector FROM attribute_schema`).Scan(&selector)
	require.NoError(t, err)
	assert.Equal(t, project.OrganizationID+","+project.ID+",qst1,GR", selector)
}

func TestCreateSchemaDuplicateSelector(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	project := testProject(t, db)

	group := xlsform.Field{Name: "party_attributes", Type: xlsform.TypeGroup}
	contentType := xlsform.ContentType{AppLabel: "party", Model: "party"}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	typeIDs, err := LoadTypeIDs(ctx, tx)
	require.NoError(t, err)

	require.NoError(t, CreateSchema(ctx, tx, project, "qst1", group, typeIDs, contentType, ""))

	err = CreateSchema(ctx, tx, project, "qst1", group, typeIDs, contentType, "")
	require.Error(t, err)
	ferr := err.(*xlsform.Error)
	assert.Equal(t, []string{MissingRelevantMsg}, ferr.Errors)
}

func TestCreateSchemaUnsupportedType(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	project := testProject(t, db)

	group := xlsform.Field{
		Name: "party_attributes",
		Type: xlsform.TypeGroup,
		Children: []xlsform.Field{
			{Name: "notes", Type: "text"},
			{Name: "sketch", Type: "geoshape"},
			{Name: "more_notes", Type: "text"},
		},
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	typeIDs, err := LoadTypeIDs(ctx, tx)
	require.NoError(t, err)

	err = CreateSchema(ctx, tx, project, "qst1", group, typeIDs,
		xlsform.ContentType{AppLabel: "party", Model: "party"}, "")
	require.Error(t, err)
	ferr := err.(*xlsform.Error)
	require.Len(t, ferr.Errors, 1)
	assert.Contains(t, ferr.Errors[0], "'geoshape'")
	assert.Contains(t, ferr.Errors[0], "'sketch'")

	// rolling back the failed transaction leaves no attribute rows behind
	require.NoError(t, tx.Rollback())
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM attribute`).Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM attribute_schema`).Scan(&count))
	assert.Zero(t, count)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(config.Config{
		DBUrl: filepath.Join(t.TempDir(), "test.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testProject(t *testing.T, db *sql.DB) *model.Project {
	t.Helper()
	project := model.Project{ID: "prj1", OrganizationID: "org1", Slug: "test-project"}
	_, err := db.Exec(`INSERT INTO project (id, organization_id, slug) VALUES (?, ?, ?)`,
		project.ID, project.OrganizationID, project.Slug)
	require.NoError(t, err)
	return &project
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, fn(tx))
	require.NoError(t, tx.Commit())
}
