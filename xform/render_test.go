package xform

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	doc := render(t, Payload{
		IDString: "parcels",
		Version:  "20260901",
		Questions: []model.Question{
			{
				Name: "party_type", Type: "S1", Index: 0, Required: true,
				Label: model.Label{"default": "Party type"},
				Options: []model.QuestionOption{
					{Name: "IN", Label: model.Label{"default": "Individual"}},
					{Name: "GR", Label: model.Label{"default": "Group"}},
				},
			},
			{Name: "notes", Type: "TX", Index: 1},
		},
	})

	assert.Equal(t, "parcels", doc.FindElement("./h:html/h:head/h:title").Text())

	// the instance root carries the form id and the injected version
	root := doc.FindElement("./h:html/h:head/model/instance/parcels")
	require.NotNil(t, root)
	assert.Equal(t, "parcels", root.SelectAttrValue("id", ""))
	assert.Equal(t, "20260901", root.SelectAttrValue("version", ""))

	// a required question binds required="yes" verbatim
	bind := findBind(t, doc, "/parcels/party_type")
	assert.Equal(t, "select1", bind.SelectAttrValue("type", ""))
	assert.Equal(t, "yes", bind.SelectAttrValue("required", ""))

	// an optional question carries no required attribute at all
	bind = findBind(t, doc, "/parcels/notes")
	assert.Equal(t, "string", bind.SelectAttrValue("type", ""))
	assert.Nil(t, bind.SelectAttr("required"))

	// the select widget lists its items in order
	widget := doc.FindElement("./h:html/h:body/select1")
	require.NotNil(t, widget)
	assert.Equal(t, "/parcels/party_type", widget.SelectAttrValue("ref", ""))
	items := widget.FindElements("./item")
	require.Len(t, items, 2)
	assert.Equal(t, "Individual", items[0].FindElement("./label").Text())
	assert.Equal(t, "IN", items[0].FindElement("./value").Text())
	assert.Equal(t, "GR", items[1].FindElement("./value").Text())
}

func TestRenderInjectsInstanceID(t *testing.T) {
	doc := render(t, Payload{
		IDString:  "parcels",
		Version:   "1",
		Questions: []model.Question{{Name: "notes", Type: "TX"}},
	})

	bind := findBind(t, doc, "/parcels/meta/instanceID")
	assert.Equal(t, "string", bind.SelectAttrValue("type", ""))
	assert.Equal(t, "true()", bind.SelectAttrValue("readonly", ""))
	assert.Equal(t, "concat('uuid:', uuid())", bind.SelectAttrValue("calculate", ""))

	assert.NotNil(t,
		doc.FindElement("./h:html/h:head/model/instance/parcels/meta/instanceID"))
}

func TestRenderGroupsAndRepeats(t *testing.T) {
	doc := render(t, Payload{
		IDString: "parcels",
		Version:  "1",
		QuestionGroups: []model.QuestionGroup{
			{
				Name: "details", Index: 0,
				Relevant:  "${party_type}='IN'",
				Questions: []model.Question{{Name: "age", Type: "IN", Index: 0}},
			},
		},
	})

	// conditional groups get a relevant-only bind
	bind := findBind(t, doc, "/parcels/details")
	assert.Equal(t, "${party_type}='IN'", bind.SelectAttrValue("relevant", ""))
	assert.Nil(t, bind.SelectAttr("type"))

	group := doc.FindElement("./h:html/h:body/group")
	require.NotNil(t, group)
	assert.Equal(t, "/parcels/details", group.SelectAttrValue("ref", ""))
	assert.NotNil(t, group.FindElement("./input"))

	// instance nodes nest under their group
	assert.NotNil(t,
		doc.FindElement("./h:html/h:head/model/instance/parcels/details/age"))
}

func TestRenderFormMultilingual(t *testing.T) {
	cfg := testConfig(t)
	form := &xlsform.Form{
		IDString:        "parcels",
		Title:           "Parcels",
		DefaultLanguage: "English",
		Children: []xlsform.Field{
			{
				Name: "notes", Type: "text",
				Label: model.Label{"English": "Notes", "Swahili": "Maelezo"},
			},
		},
	}

	xml, err := NewRenderer(cfg).RenderForm(form, 1725000000000000)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(xml))

	root := doc.FindElement("./h:html/h:head/model/instance/parcels")
	require.NotNil(t, root)
	assert.Equal(t, "1725000000000000", root.SelectAttrValue("version", ""))

	// full language names are rewritten to codes; the default language is
	// flagged
	translations := doc.FindElements("./h:html/h:head/model/itext/translation")
	require.Len(t, translations, 2)
	assert.Equal(t, "en", translations[0].SelectAttrValue("lang", ""))
	assert.Equal(t, "true()", translations[0].SelectAttrValue("default", ""))
	assert.Equal(t, "sw", translations[1].SelectAttrValue("lang", ""))

	// the widget label references the itext entry instead of inlining text
	label := doc.FindElement("./h:html/h:body/input/label")
	require.NotNil(t, label)
	assert.Equal(t, "jr:itext('/parcels/notes:label')", label.SelectAttrValue("ref", ""))
}

func TestRenderFormRepeat(t *testing.T) {
	cfg := testConfig(t)
	form := &xlsform.Form{
		IDString: "parcels",
		Title:    "Parcels",
		Children: []xlsform.Field{
			{
				Name: "people", Type: xlsform.TypeRepeat,
				Label: model.Label{"default": "People"},
				Children: []xlsform.Field{
					{Name: "party_name", Type: "text", Bind: xlsform.Bind{Required: "yes"}},
				},
			},
		},
	}

	xml, err := NewRenderer(cfg).RenderForm(form, 1)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(xml))

	repeat := doc.FindElement("./h:html/h:body/group/repeat")
	require.NotNil(t, repeat)
	assert.Equal(t, "/parcels/people", repeat.SelectAttrValue("nodeset", ""))
	assert.NotNil(t, repeat.FindElement("./input"))

	bind := findBind(t, doc, "/parcels/people/party_name")
	assert.Equal(t, "yes", bind.SelectAttrValue("required", ""))
}

func TestRenderMissingIDString(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewRenderer(cfg).Render(Payload{Version: "1"})
	require.Error(t, err)
	assert.NotNil(t, xlsform.AsError(err))
}

func render(t *testing.T, payload Payload) *etree.Document {
	t.Helper()
	xml, err := NewRenderer(testConfig(t)).Render(payload)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(xml))
	return doc
}

func findBind(t *testing.T, doc *etree.Document, nodeset string) *etree.Element {
	t.Helper()
	for _, bind := range doc.FindElements("./h:html/h:head/model/bind") {
		if bind.SelectAttrValue("nodeset", "") == nodeset {
			return bind
		}
	}
	t.Fatalf("no bind for nodeset %s", nodeset)
	return nil
}

func testConfig(t *testing.T) *xlsform.Config {
	t.Helper()
	cfg, err := xlsform.LoadConfig("")
	require.NoError(t, err)
	return cfg
}
