package xlsform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchemaRequired(t *testing.T) {
	schema := map[string]Rule{
		"name": {Type: "string", Required: true},
	}

	errs := ValidateSchema(schema, map[string]any{})
	assert.Equal(t, []string{"This field is required."}, errs["name"])

	errs = ValidateSchema(schema, map[string]any{"name": "ok"})
	assert.Empty(t, errs)
}

func TestValidateSchemaTypes(t *testing.T) {
	cases := []struct {
		typeName string
		good     any
		bad      any
	}{
		{"string", "text", 12},
		{"number", 1.5, "1.5"},
		{"integer", 3, 3.5},
		{"boolean", true, "true"},
		{"array", []any{1, 2}, "list"},
	}

	for _, c := range cases {
		t.Run(c.typeName, func(t *testing.T) {
			schema := map[string]Rule{"field": {Type: c.typeName}}

			errs := ValidateSchema(schema, map[string]any{"field": c.good})
			assert.Empty(t, errs)

			errs = ValidateSchema(schema, map[string]any{"field": c.bad})
			require.Len(t, errs["field"], 1)
			assert.Contains(t, errs["field"][0], c.typeName)
		})
	}
}

func TestValidateSchemaBoolIsNotNumber(t *testing.T) {
	schema := map[string]Rule{"field": {Type: "number"}}
	errs := ValidateSchema(schema, map[string]any{"field": true})
	assert.NotEmpty(t, errs["field"])

	schema = map[string]Rule{"field": {Type: "integer"}}
	errs = ValidateSchema(schema, map[string]any{"field": false})
	assert.NotEmpty(t, errs["field"])
}

func TestValidateSchemaEnum(t *testing.T) {
	schema := map[string]Rule{
		"type": {Type: "string", Enum: []any{"group", "repeat"}},
	}

	errs := ValidateSchema(schema, map[string]any{"type": "group"})
	assert.Empty(t, errs)

	errs = ValidateSchema(schema, map[string]any{"type": "chart"})
	require.Len(t, errs["type"], 1)
	assert.Contains(t, errs["type"][0], "chart")
}

func TestValidateSchemaCheckFunction(t *testing.T) {
	schema := map[string]Rule{
		"accuracy": {Check: ValidateAccuracy, Message: "Please provide a positive number."},
	}

	errs := ValidateSchema(schema, map[string]any{"accuracy": "-3"})
	assert.Equal(t, []string{"Please provide a positive number."}, errs["accuracy"])

	// without a custom message the generic one names the validator
	schema = map[string]Rule{"accuracy": {Check: ValidateAccuracy}}
	errs = ValidateSchema(schema, map[string]any{"accuracy": "-3"})
	require.Len(t, errs["accuracy"], 1)
	assert.Contains(t, errs["accuracy"][0], "did not validate")
	assert.Contains(t, errs["accuracy"][0], "ValidateAccuracy")
}

func TestValidateSchemaRelevantSkips(t *testing.T) {
	schema := map[string]Rule{
		"gps_accuracy": {
			Check:    ValidateAccuracy,
			Relevant: func(doc map[string]any) bool { return doc["type"] == "GP" },
		},
	}

	// not relevant: even an invalid value passes
	errs := ValidateSchema(schema, map[string]any{"type": "TX", "gps_accuracy": "bogus"})
	assert.Empty(t, errs)

	errs = ValidateSchema(schema, map[string]any{"type": "GP", "gps_accuracy": "bogus"})
	assert.NotEmpty(t, errs["gps_accuracy"])
}

func TestValidateSchemaSanitize(t *testing.T) {
	schema := map[string]Rule{"name": {Type: "string"}}

	errs := ValidateSchema(schema, map[string]any{"name": "<script>"})
	assert.Equal(t, []string{SanitizeMsg}, errs["name"])

	// sanitize failures stack on top of other violations
	schema = map[string]Rule{"name": {Type: "integer"}}
	errs = ValidateSchema(schema, map[string]any{"name": "<script>"})
	require.Len(t, errs["name"], 2)
	assert.Equal(t, SanitizeMsg, errs["name"][1])
}

func TestValidateSchemaIdempotent(t *testing.T) {
	schema := map[string]Rule{
		"name": {Type: "string", Required: true},
		"type": {Type: "string", Enum: []any{"TX"}},
	}
	doc := map[string]any{"type": "S1"}

	first := ValidateSchema(schema, doc)
	second := ValidateSchema(schema, doc)
	assert.Equal(t, first, second)
}

func TestValidateAccuracy(t *testing.T) {
	assert.True(t, ValidateAccuracy(1.5))
	assert.True(t, ValidateAccuracy(3))
	assert.True(t, ValidateAccuracy("2.5"))

	assert.False(t, ValidateAccuracy(0))
	assert.False(t, ValidateAccuracy(-1))
	assert.False(t, ValidateAccuracy("0"))
	assert.False(t, ValidateAccuracy("-2"))
	assert.False(t, ValidateAccuracy(true))
	assert.False(t, ValidateAccuracy("almost"))
	assert.False(t, ValidateAccuracy(nil))
}

func TestValidateQuestions(t *testing.T) {
	questions := []any{
		map[string]any{"name": "age", "type": "IN"},
		map[string]any{"type": "XX"},
	}

	errs, dirty := ValidateQuestions(questions)
	require.True(t, dirty)
	assert.Nil(t, errs[0])
	assert.Equal(t, []string{"This field is required."}, errs[1]["name"])
	assert.NotEmpty(t, errs[1]["type"])
}

func TestValidateQuestionsNestsOptionErrors(t *testing.T) {
	questions := []any{
		map[string]any{
			"name": "color", "type": "S1",
			"options": []any{
				map[string]any{"name": "red", "label": "Red"},
				map[string]any{"label": "No name"},
			},
		},
	}

	errs, dirty := ValidateQuestions(questions)
	require.True(t, dirty)
	optErrs, ok := errs[0]["options"].([]map[string]any)
	require.True(t, ok)
	assert.Nil(t, optErrs[0])
	assert.NotEmpty(t, optErrs[1]["name"])
}

func TestValidateItemsNonObject(t *testing.T) {
	qErrs, dirty := ValidateQuestions([]any{"nope"})
	require.True(t, dirty)
	assert.Equal(t, []string{"Question must be an object."}, qErrs[0]["item"])

	oErrs, dirty := ValidateQuestionOptions([]any{42})
	require.True(t, dirty)
	assert.Equal(t, []string{"Option must be an object."}, oErrs[0]["item"])

	gErrs, dirty := ValidateQuestionGroups([]any{nil})
	require.True(t, dirty)
	assert.Equal(t, []string{"Question group must be an object."}, gErrs[0]["item"])
}

func TestValidateQuestionGroupsRecurses(t *testing.T) {
	groups := []any{
		map[string]any{
			"name": "outer", "type": "group",
			"question_groups": []any{
				map[string]any{"type": "repeat"},
			},
		},
	}

	errs, dirty := ValidateQuestionGroups(groups)
	require.True(t, dirty)
	nested, ok := errs[0]["question_groups"].([]map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, nested[0]["name"])
}

func TestValidateQuestionnaire(t *testing.T) {
	cfg := testConfig(t)

	doc := map[string]any{
		"title":     "Form",
		"id_string": "my_form",
		"questions": []any{
			map[string]any{"name": "age", "type": "IN"},
		},
	}
	assert.Nil(t, ValidateQuestionnaire(doc, cfg))
}

func TestValidateQuestionnaireIDString(t *testing.T) {
	cfg := testConfig(t)

	doc := map[string]any{"title": "Form", "id_string": "my form"}
	errs := ValidateQuestionnaire(doc, cfg)
	require.NotNil(t, errs)
	msgs, ok := errs["id_string"].([]string)
	require.True(t, ok)
	assert.Contains(t, msgs[0], "whitespace")
}

func TestValidateQuestionnaireDefaultLanguage(t *testing.T) {
	cfg := testConfig(t)

	doc := map[string]any{"title": "Form", "id_string": "f", "default_language": "xx"}
	errs := ValidateQuestionnaire(doc, cfg)
	require.NotNil(t, errs)
	assert.NotEmpty(t, errs["default_language"])

	doc["default_language"] = "en"
	assert.Nil(t, ValidateQuestionnaire(doc, cfg))
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	return cfg
}
