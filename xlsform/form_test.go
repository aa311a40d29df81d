package xlsform

import (
	"strings"
	"testing"

	"github.com/cadasta/questionnaires/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonolingualLabel(t *testing.T) {
	form, err := Parse(strings.NewReader(`{
		"id_string": "parcels",
		"title": "Parcels",
		"children": [
			{"name": "notes", "type": "text", "label": "Notes"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, model.Label{"default": "Notes"}, form.Children[0].Label)
}

func TestParseMultilingualLabel(t *testing.T) {
	form, err := Parse(strings.NewReader(`{
		"id_string": "parcels",
		"title": "Parcels",
		"children": [
			{"name": "notes", "type": "text", "label": {"en": "Notes", "fr": "Remarques"}}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, model.Label{"en": "Notes", "fr": "Remarques"}, form.Children[0].Label)
	assert.True(t, form.Children[0].Label.Multilingual())
}

func TestParseNestedChildren(t *testing.T) {
	form, err := Parse(strings.NewReader(`{
		"id_string": "parcels",
		"children": [{
			"name": "details", "type": "group",
			"bind": {"relevant": "${party_type}='IN'"},
			"children": [
				{"name": "age", "type": "integer", "bind": {"required": "yes"}}
			]
		}]
	}`))
	require.NoError(t, err)
	group := form.Children[0]
	assert.True(t, group.IsGroup())
	assert.Equal(t, "${party_type}='IN'", group.Bind.Relevant)
	require.Len(t, group.Children, 1)
	assert.True(t, group.Children[0].IsRequired())
}

func TestHasWhitespace(t *testing.T) {
	assert.False(t, HasWhitespace("parcel_form"))
	assert.True(t, HasWhitespace("parcel form"))
	assert.True(t, HasWhitespace("parcel\tform"))
	assert.True(t, HasWhitespace(""))
	assert.True(t, HasWhitespace("   "))
}
