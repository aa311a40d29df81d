package xlsform

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/cadasta/questionnaires/model"
	"github.com/pkg/errors"
)

// Form is the parsed spreadsheet-form tree, the JSON a spreadsheet parser
// produces from an uploaded XLSForm.
type Form struct {
	IDString        string  `json:"id_string"`
	Name            string  `json:"name"`
	Title           string  `json:"title"`
	DefaultLanguage string  `json:"default_language,omitempty"`
	Children        []Field `json:"children"`
}

// Field is one node of the form tree: a question, or a "group"/"repeat"
// node with nested children.
type Field struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Label       model.Label `json:"label,omitempty"`
	Hint        string      `json:"hint,omitempty"`
	Default     string      `json:"default,omitempty"`
	Omit        string      `json:"omit,omitempty"`
	GPSAccuracy any         `json:"gps_accuracy,omitempty"`
	Bind        Bind        `json:"bind,omitempty"`
	Choices     []Choice    `json:"choices,omitempty"`
	Children    []Field     `json:"children,omitempty"`
}

type Bind struct {
	Required   string `json:"required,omitempty"`
	Relevant   string `json:"relevant,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Calculate  string `json:"calculate,omitempty"`
}

type Choice struct {
	Name  string      `json:"name"`
	Label model.Label `json:"label,omitempty"`
}

const (
	TypeGroup  = "group"
	TypeRepeat = "repeat"
)

// IsGroup reports whether the field is a structural node rather than a
// question.
func (f Field) IsGroup() bool {
	return f.Type == TypeGroup || f.Type == TypeRepeat
}

// IsRequired reports the spreadsheet convention for required binds.
func (f Field) IsRequired() bool {
	return f.Bind.Required == "yes"
}

// Parse decodes an uploaded form-definition JSON document into a Form.
func Parse(r io.Reader) (*Form, error) {
	form := Form{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&form); err != nil {
		return nil, errors.Wrap(err, "parse form definition")
	}
	return &form, nil
}

// HasWhitespace reports whether the form identifier contains blanks or
// whitespace; such identifiers are rejected outright.
func HasWhitespace(idString string) bool {
	return idString == "" || strings.ContainsAny(idString, " \t\n\r")
}
