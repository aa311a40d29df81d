package xlsform

import (
	"regexp"

	"github.com/cadasta/questionnaires/model"
)

// SanitizeMsg is appended verbatim whenever a value fails the sanitize
// check, regardless of any other rule outcome for that field.
const SanitizeMsg = "Input contains unsafe characters."

var reUnsafe = regexp.MustCompile("[<>\x00-\x08\x0b\x0c\x0e-\x1f]")

// SanitizeString reports whether a string is free of embedded markup and
// control sequences.
func SanitizeString(s string) bool {
	return !reUnsafe.MatchString(s)
}

// Sanitize checks any scalar value; non-string scalars are always safe.
func Sanitize(v any) bool {
	if s, ok := v.(string); ok {
		return SanitizeString(s)
	}
	return true
}

// SanitizeForm walks every scalar value in the form tree. The first unsafe
// value aborts the walk; ingestion fails immediately on it.
func SanitizeForm(form *Form) error {
	for _, s := range []string{form.IDString, form.Name, form.Title, form.DefaultLanguage} {
		if !SanitizeString(s) {
			return NewError(SanitizeMsg)
		}
	}
	return sanitizeFields(form.Children)
}

func sanitizeFields(fields []Field) error {
	for _, f := range fields {
		for _, s := range []string{f.Name, f.Type, f.Hint, f.Default, f.Omit,
			f.Bind.Required, f.Bind.Relevant, f.Bind.Constraint, f.Bind.Calculate} {
			if !SanitizeString(s) {
				return NewError(SanitizeMsg)
			}
		}
		if err := sanitizeLabel(f.Label); err != nil {
			return err
		}
		for _, c := range f.Choices {
			if !SanitizeString(c.Name) {
				return NewError(SanitizeMsg)
			}
			if err := sanitizeLabel(c.Label); err != nil {
				return err
			}
		}
		if err := sanitizeFields(f.Children); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeLabel(label model.Label) error {
	for lang, text := range label {
		if !SanitizeString(lang) || !SanitizeString(text) {
			return NewError(SanitizeMsg)
		}
	}
	return nil
}

// SanitizeDocument walks a raw decoded JSON document, used by the
// standalone validation path where no typed tree exists yet.
func SanitizeDocument(doc any) error {
	switch v := doc.(type) {
	case string:
		if !SanitizeString(v) {
			return NewError(SanitizeMsg)
		}
	case map[string]any:
		for _, item := range v {
			if err := SanitizeDocument(item); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if err := SanitizeDocument(item); err != nil {
				return err
			}
		}
	}
	return nil
}
