package xform

import (
	"strconv"

	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xlsform"
	"github.com/pkg/errors"
)

// Renderer turns the internal questionnaire representation into XForm XML.
type Renderer struct {
	cfg  *xlsform.Config
	post PostProcessor
}

func NewRenderer(cfg *xlsform.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render produces the XForm XML bytes for a payload: transform to the
// survey envelope, build the document, fix language tags, then inject the
// version attribute and the instanceID bind.
func (r *Renderer) Render(payload Payload) ([]byte, error) {
	survey, err := TransformToXFormJSON(payload)
	if err != nil {
		return nil, err
	}

	doc, err := BuildSurvey(survey)
	if err != nil {
		return nil, err
	}

	r.post.FixLanguages(doc, r.cfg)
	if err := r.post.InsertVersion(doc, payload.IDString, payload.Version); err != nil {
		return nil, err
	}
	if err := r.post.InsertUUIDBind(doc, payload.IDString); err != nil {
		return nil, err
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "serialize xform")
	}
	return out, nil
}

// RenderForm renders a parsed spreadsheet form, used by the ingestion
// pipeline to produce the stored XML representation.
func (r *Renderer) RenderForm(form *xlsform.Form, version int64) ([]byte, error) {
	children := make([]map[string]any, 0, len(form.Children))
	for i, f := range form.Children {
		children = append(children, fromField(f, i))
	}

	survey := map[string]any{
		"default_language": defaultLanguageOr(form.DefaultLanguage),
		"name":             form.IDString,
		"sms_keyword":      form.IDString,
		"id_string":        form.IDString,
		"title":            form.Title,
		"type":             "survey",
		"children":         children,
	}

	doc, err := BuildSurvey(survey)
	if err != nil {
		return nil, err
	}

	r.post.FixLanguages(doc, r.cfg)
	if err := r.post.InsertVersion(doc, form.IDString, strconv.FormatInt(version, 10)); err != nil {
		return nil, err
	}
	if err := r.post.InsertUUIDBind(doc, form.IDString); err != nil {
		return nil, err
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "serialize xform")
	}
	return out, nil
}

// fromField maps a parsed spreadsheet field onto a survey-JSON node.
func fromField(f xlsform.Field, index int) map[string]any {
	node := map[string]any{
		"name":  f.Name,
		"type":  f.Type,
		"index": index,
	}
	if len(f.Label) > 0 {
		node["label"] = f.Label
	}
	if f.Default != "" {
		node["default"] = f.Default
	}
	if f.Hint != "" {
		node["hint"] = f.Hint
	}

	bind := map[string]string{}
	if f.Bind.Required != "" {
		bind["required"] = f.Bind.Required
	}
	if f.Bind.Relevant != "" {
		bind["relevant"] = f.Bind.Relevant
	}
	if f.Bind.Constraint != "" {
		bind["constraint"] = f.Bind.Constraint
	}
	if f.Bind.Calculate != "" {
		bind["calculate"] = f.Bind.Calculate
	}
	if len(bind) > 0 {
		node["bind"] = bind
	}

	if len(f.Choices) > 0 {
		choices := make([]map[string]any, len(f.Choices))
		for i, c := range f.Choices {
			choice := map[string]any{"name": c.Name}
			if len(c.Label) > 0 {
				choice["label"] = c.Label
			}
			choices[i] = choice
		}
		node["choices"] = choices
	}

	if len(f.Children) > 0 {
		children := make([]map[string]any, 0, len(f.Children))
		for i, child := range f.Children {
			children = append(children, fromField(child, i))
		}
		node["children"] = children
	}

	return node
}

func defaultLanguageOr(lang string) string {
	if lang == "" {
		return model.DefaultLanguage
	}
	return lang
}
