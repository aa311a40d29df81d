// Package xform renders the internal questionnaire representation into an
// XForm XML definition consumable by field-data-collection clients.
package xform

import (
	"fmt"
	"sort"

	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xlsform"
)

// Payload is the flat renderer input, assembled from database rows or an
// API document.
type Payload struct {
	IDString       string                `json:"id_string" validate:"required"`
	Version        string                `json:"version" validate:"required"`
	Questions      []model.Question      `json:"questions"`
	QuestionGroups []model.QuestionGroup `json:"question_groups"`
}

// TransformQuestions maps questions into survey-JSON nodes: the short type
// code becomes the spreadsheet type name, a nil label is dropped, options
// become "choices", and a bind dict appears only when the question is
// required or carries a relevant expression.
func TransformQuestions(questions []model.Question) ([]map[string]any, error) {
	nodes := make([]map[string]any, 0, len(questions))
	for _, q := range questions {
		ft, ok := model.FieldTypeByCode(q.Type)
		if !ok {
			return nil, xlsform.NewError(fmt.Sprintf("Unknown question type '%s'.", q.Type))
		}

		node := map[string]any{
			"name":  q.Name,
			"type":  ft.Name,
			"index": q.Index,
		}
		if q.Label != nil {
			node["label"] = q.Label
		}
		if q.Default != "" {
			node["default"] = q.Default
		}
		if q.Hint != "" {
			node["hint"] = q.Hint
		}
		if len(q.Options) > 0 {
			choices := make([]map[string]any, len(q.Options))
			for i, opt := range q.Options {
				choice := map[string]any{"name": opt.Name}
				if opt.Label != nil {
					choice["label"] = opt.Label
				}
				choices[i] = choice
			}
			node["choices"] = choices
		}

		bind := map[string]string{}
		if q.Required {
			bind["required"] = "yes"
		}
		if q.Relevant != "" {
			bind["relevant"] = q.Relevant
		}
		if q.Constraint != "" {
			bind["constraint"] = q.Constraint
		}
		if len(bind) > 0 {
			node["bind"] = bind
		}

		nodes = append(nodes, node)
	}
	return nodes, nil
}

// TransformGroups wraps each group's transformed questions as children of
// a "group" node, carrying the group's bind.relevant when present.
func TransformGroups(groups []model.QuestionGroup) ([]map[string]any, error) {
	nodes := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		children, err := TransformQuestions(g.Questions)
		if err != nil {
			return nil, err
		}
		nested, err := TransformGroups(g.QuestionGroups)
		if err != nil {
			return nil, err
		}
		children = append(children, nested...)
		sortByIndex(children)

		node := map[string]any{
			"name":     g.Name,
			"type":     "group",
			"index":    g.Index,
			"children": children,
		}
		if g.Label != nil {
			node["label"] = g.Label
		}
		if g.Relevant != "" {
			node["bind"] = map[string]string{"relevant": g.Relevant}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// TransformToXFormJSON assembles the survey-level envelope. The survey
// name, keyword and title all take the form identifier; children are the
// merged questions and groups ordered by index.
func TransformToXFormJSON(payload Payload) (map[string]any, error) {
	questions, err := TransformQuestions(payload.Questions)
	if err != nil {
		return nil, err
	}
	groups, err := TransformGroups(payload.QuestionGroups)
	if err != nil {
		return nil, err
	}

	children := append(questions, groups...)
	sortByIndex(children)

	return map[string]any{
		"default_language": model.DefaultLanguage,
		"name":             payload.IDString,
		"sms_keyword":      payload.IDString,
		"id_string":        payload.IDString,
		"title":            payload.IDString,
		"type":             "survey",
		"children":         children,
	}, nil
}

func sortByIndex(nodes []map[string]any) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, _ := nodes[i]["index"].(int)
		b, _ := nodes[j]["index"].(int)
		return a < b
	})
}
