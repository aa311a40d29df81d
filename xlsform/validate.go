package xlsform

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"

	"github.com/cadasta/questionnaires/model"
)

// Rule is one declarative field rule of a validation schema.
type Rule struct {
	// Type names the expected JSON type: "string", "number", "integer",
	// "boolean" or "array". Empty skips the type check.
	Type     string
	Required bool
	// Enum restricts the value to a fixed set.
	Enum []any
	// Check is a custom validator; a false return fails the field.
	Check func(any) bool
	// Message overrides the generic message for a failed Check.
	Message string
	// Relevant gates the whole rule: when it returns false against the
	// full document, every check for this field is skipped.
	Relevant func(doc map[string]any) bool
}

const requiredMsg = "This field is required."

// ValidateSchema checks a declarative schema against a JSON-like document
// and returns the per-field violations. An empty map means valid. The
// function is pure: running it twice yields the same result.
func ValidateSchema(schema map[string]Rule, doc map[string]any) map[string][]string {
	errs := map[string][]string{}

	for field, rule := range schema {
		if rule.Relevant != nil && !rule.Relevant(doc) {
			continue
		}

		value, present := doc[field]
		if !present || value == nil {
			if rule.Required {
				errs[field] = append(errs[field], requiredMsg)
			}
			continue
		}

		if rule.Type != "" && !typeMatches(rule.Type, value) {
			errs[field] = append(errs[field], fmt.Sprintf("Value must be of type %s.", rule.Type))
		}

		if len(rule.Enum) > 0 && !enumContains(rule.Enum, value) {
			errs[field] = append(errs[field], fmt.Sprintf("%v is not an accepted value.", value))
		}

		if rule.Check != nil && !rule.Check(value) {
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("Validator %s did not validate.", funcName(rule.Check))
			}
			errs[field] = append(errs[field], msg)
		}

		if !Sanitize(value) {
			errs[field] = append(errs[field], SanitizeMsg)
		}
	}

	return errs
}

func typeMatches(typeName string, v any) bool {
	switch typeName {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case int, int64, float64, float32:
			return true
		}
		return false
	case "integer":
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			// JSON numbers decode as float64
			return n == float64(int64(n))
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		if v == nil {
			return false
		}
		return reflect.TypeOf(v).Kind() == reflect.Slice
	}
	return false
}

func enumContains(enum []any, v any) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}

func funcName(f func(any) bool) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}

// ValidateAccuracy accepts positive numbers and positive numeric strings.
// Booleans, zero, negatives and non-numeric strings are rejected.
func ValidateAccuracy(v any) bool {
	switch n := v.(type) {
	case bool:
		return false
	case int:
		return n > 0
	case int64:
		return n > 0
	case float32:
		return n > 0
	case float64:
		return n > 0
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return err == nil && f > 0
	}
	return false
}

func isGeometryType(doc map[string]any) bool {
	code, _ := doc["type"].(string)
	ft, ok := model.FieldTypeByCode(code)
	return ok && ft.IsGeometry
}

func typeCodeEnum() []any {
	var enum []any
	for _, name := range model.FieldTypeNames() {
		ft, _ := model.FieldTypeByName(name)
		enum = append(enum, ft.Code)
	}
	return enum
}

func questionSchema() map[string]Rule {
	return map[string]Rule{
		"name":       {Type: "string", Required: true},
		"label":      {},
		"type":       {Type: "string", Required: true, Enum: typeCodeEnum()},
		"required":   {Type: "boolean"},
		"constraint": {Type: "string"},
		"default":    {Type: "string"},
		"hint":       {Type: "string"},
		"relevant":   {Type: "string"},
		"index":      {Type: "integer"},
		"gps_accuracy": {
			Check:    ValidateAccuracy,
			Message:  "Please provide a positive number.",
			Relevant: isGeometryType,
		},
	}
}

func questionOptionSchema() map[string]Rule {
	return map[string]Rule{
		"name":  {Type: "string", Required: true},
		"label": {Required: true},
		"index": {Type: "integer"},
	}
}

func questionGroupSchema() map[string]Rule {
	return map[string]Rule{
		"name":     {Type: "string", Required: true},
		"label":    {},
		"type":     {Type: "string", Enum: []any{TypeGroup, TypeRepeat}},
		"relevant": {Type: "string"},
		"index":    {Type: "integer"},
	}
}

// ValidateQuestionOptions checks each option document; the returned slice
// is index-aligned with the input, holding nil for clean entries.
func ValidateQuestionOptions(options []any) ([]map[string]any, bool) {
	return validateItems(options, "Option", func(doc map[string]any) map[string]any {
		return liftErrors(ValidateSchema(questionOptionSchema(), doc))
	})
}

// ValidateQuestions checks each question document, nesting option errors
// under "options" only when any option produced one.
func ValidateQuestions(questions []any) ([]map[string]any, bool) {
	return validateItems(questions, "Question", func(doc map[string]any) map[string]any {
		errs := liftErrors(ValidateSchema(questionSchema(), doc))
		if options, ok := doc["options"].([]any); ok {
			if optErrs, dirty := ValidateQuestionOptions(options); dirty {
				if errs == nil {
					errs = map[string]any{}
				}
				errs["options"] = optErrs
			}
		}
		return errs
	})
}

// ValidateQuestionGroups checks each group document, recursing into nested
// questions and question groups.
func ValidateQuestionGroups(groups []any) ([]map[string]any, bool) {
	return validateItems(groups, "Question group", func(doc map[string]any) map[string]any {
		errs := liftErrors(ValidateSchema(questionGroupSchema(), doc))
		if questions, ok := doc["questions"].([]any); ok {
			if qErrs, dirty := ValidateQuestions(questions); dirty {
				if errs == nil {
					errs = map[string]any{}
				}
				errs["questions"] = qErrs
			}
		}
		if nested, ok := doc["question_groups"].([]any); ok {
			if gErrs, dirty := ValidateQuestionGroups(nested); dirty {
				if errs == nil {
					errs = map[string]any{}
				}
				errs["question_groups"] = gErrs
			}
		}
		return errs
	})
}

func validateItems(items []any, noun string, check func(map[string]any) map[string]any) ([]map[string]any, bool) {
	errs := make([]map[string]any, len(items))
	dirty := false
	for i, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			errs[i] = map[string]any{"item": []string{noun + " must be an object."}}
			dirty = true
			continue
		}
		if itemErrs := check(doc); itemErrs != nil {
			errs[i] = itemErrs
			dirty = true
		}
	}
	return errs, dirty
}

func liftErrors(errs map[string][]string) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	lifted := make(map[string]any, len(errs))
	for k, v := range errs {
		lifted[k] = v
	}
	return lifted
}

// ValidateQuestionnaire runs the pre-flight check over a raw questionnaire
// document: top-level schema, id_string shape, and the full question and
// group trees. Returns nil when the document is clean.
func ValidateQuestionnaire(doc map[string]any, cfg *Config) map[string]any {
	languages := []any{model.DefaultLanguage}
	for code := range cfg.Languages {
		languages = append(languages, code)
	}

	schema := map[string]Rule{
		"title":            {Type: "string", Required: true},
		"id_string":        {Type: "string", Required: true},
		"default_language": {Type: "string", Enum: languages},
	}

	errs := liftErrors(ValidateSchema(schema, doc))

	if id, ok := doc["id_string"].(string); ok && HasWhitespace(id) {
		if errs == nil {
			errs = map[string]any{}
		}
		msgs, _ := errs["id_string"].([]string)
		errs["id_string"] = append(msgs, "'id_string' cannot be blank or contain whitespace.")
	}

	if questions, ok := doc["questions"].([]any); ok {
		if qErrs, dirty := ValidateQuestions(questions); dirty {
			if errs == nil {
				errs = map[string]any{}
			}
			errs["questions"] = qErrs
		}
	}
	if groups, ok := doc["question_groups"].([]any); ok {
		if gErrs, dirty := ValidateQuestionGroups(groups); dirty {
			if errs == nil {
				errs = map[string]any{}
			}
			errs["question_groups"] = gErrs
		}
	}

	return errs
}
