package model

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Label is a multilingual label keyed by language code. Monolingual labels
// live under the "default" key. In JSON a monolingual label is a plain
// string, a multilingual one a map of language code to text.
type Label map[string]string

const DefaultLanguage = "default"

func (l Label) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	if len(l) == 1 {
		if s, ok := l[DefaultLanguage]; ok {
			return json.Marshal(s)
		}
	}
	return json.Marshal(map[string]string(l))
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label{DefaultLanguage: s}
		return nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "label must be a string or a language map")
	}
	*l = Label(m)
	return nil
}

// Multilingual reports whether the label carries any language other than
// the "default" sentinel.
func (l Label) Multilingual() bool {
	for lang := range l {
		if lang != DefaultLanguage {
			return true
		}
	}
	return false
}

// In returns the text for the given language, falling back to the
// "default" entry, then to any entry at all.
func (l Label) In(lang string) string {
	if s, ok := l[lang]; ok {
		return s
	}
	if s, ok := l[DefaultLanguage]; ok {
		return s
	}
	for _, s := range l {
		return s
	}
	return ""
}

type Project struct {
	ID                   string `json:"id"`
	OrganizationID       string `json:"organization_id"`
	Slug                 string `json:"slug"`
	CurrentQuestionnaire string `json:"current_questionnaire,omitempty"`
}

// Questionnaire is one uploaded form version. Rows are immutable after
// creation; only the owning project's current-questionnaire pointer moves.
type Questionnaire struct {
	ID              string `json:"id"`
	ProjectID       string `json:"project_id"`
	Filename        string `json:"filename"`
	Title           string `json:"title"`
	IDString        string `json:"id_string"`
	DefaultLanguage string `json:"default_language,omitempty"`
	Version         int64  `json:"version"`
	Md5Hash         string `json:"md5_hash"`
	XMLForm         string `json:"-"`
}

type QuestionGroup struct {
	ID              string `json:"id"`
	QuestionnaireID string `json:"-"`
	ParentID        string `json:"-"`
	Name            string `json:"name"`
	Label           Label  `json:"label,omitempty"`
	Type            string `json:"type"`
	Relevant        string `json:"relevant,omitempty"`
	Index           int    `json:"index"`

	Questions      []Question      `json:"questions,omitempty"`
	QuestionGroups []QuestionGroup `json:"question_groups,omitempty"`
}

type Question struct {
	ID              string   `json:"id"`
	QuestionnaireID string   `json:"-"`
	GroupID         string   `json:"-"`
	Name            string   `json:"name"`
	Label           Label    `json:"label,omitempty"`
	Type            string   `json:"type"`
	Required        bool     `json:"required"`
	Default         string   `json:"default,omitempty"`
	Hint            string   `json:"hint,omitempty"`
	Relevant        string   `json:"relevant,omitempty"`
	Constraint      string   `json:"constraint,omitempty"`
	GPSAccuracy     *float64 `json:"gps_accuracy,omitempty"`
	Index           int      `json:"index"`

	Options []QuestionOption `json:"options,omitempty"`
}

// HasOptions reports whether the question's type carries a choice list.
func (q Question) HasOptions() bool {
	ft, ok := FieldTypeByCode(q.Type)
	return ok && ft.HasOptions
}

// AttributeSchema is one derived attribute set for an entity type,
// addressed by its selector tuple.
type AttributeSchema struct {
	ID              string `json:"id"`
	ContentType     string `json:"content_type"`
	Selector        string `json:"selector"`
	DefaultLanguage string `json:"default_language,omitempty"`
}

type Attribute struct {
	ID           string `json:"id"`
	SchemaID     string `json:"-"`
	Name         string `json:"name"`
	LongName     string `json:"long_name"`
	TypeID       int64  `json:"-"`
	Choices      string `json:"choices,omitempty"`
	ChoiceLabels string `json:"choice_labels,omitempty"`
	Default      string `json:"default,omitempty"`
	Required     bool   `json:"required"`
	Omit         bool   `json:"omit"`
	Index        int    `json:"index"`
}

type QuestionOption struct {
	ID         string `json:"id"`
	QuestionID string `json:"-"`
	Name       string `json:"name"`
	Label      Label  `json:"label,omitempty"`
	Index      int    `json:"index"`
}
