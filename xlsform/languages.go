package xlsform

import (
	"fmt"
	"sort"

	"github.com/cadasta/questionnaires/model"
	"github.com/hashicorp/go-multierror"
)

// CheckLanguages scans every label in the form, including choice labels,
// and reports whether any is multilingual along with every language code
// seen. The traversal deliberately never stops once multilingual is known:
// every code in the tree still gets validated against the allowed set.
func CheckLanguages(form *Form, cfg *Config) (multilingual bool, langs []string, err error) {
	seen := map[string]bool{}
	multilingual = scanFields(form.Children, seen)

	var errs *multierror.Error
	for _, code := range sortedKeys(seen) {
		if code == model.DefaultLanguage {
			continue
		}
		if !cfg.LanguageAllowed(code) {
			errs = multierror.Append(errs, fmt.Errorf(
				"Label language code '%s' unknown or not accepted.", code))
		}
		langs = append(langs, code)
	}

	if multilingual && !hasDefaultLanguage(form) {
		errs = multierror.Append(errs, fmt.Errorf(
			"Multilingual labels require an explicit default_language."))
	}
	if hasDefaultLanguage(form) && !cfg.LanguageAllowed(form.DefaultLanguage) {
		errs = multierror.Append(errs, fmt.Errorf(
			"Default language code '%s' unknown or not accepted.", form.DefaultLanguage))
	}

	if ferr := FromMultierror(errs); ferr != nil {
		return multilingual, langs, ferr
	}
	return multilingual, langs, nil
}

func hasDefaultLanguage(form *Form) bool {
	return form.DefaultLanguage != "" && form.DefaultLanguage != model.DefaultLanguage
}

func scanFields(fields []Field, seen map[string]bool) bool {
	multilingual := false
	for _, f := range fields {
		if scanLabel(f.Label, seen) {
			multilingual = true
		}
		for _, c := range f.Choices {
			if scanLabel(c.Label, seen) {
				multilingual = true
			}
		}
		if scanFields(f.Children, seen) {
			multilingual = true
		}
	}
	return multilingual
}

func scanLabel(label model.Label, seen map[string]bool) bool {
	for lang := range label {
		seen[lang] = true
	}
	return label.Multilingual()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
