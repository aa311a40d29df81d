package xlsform

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// The well-known fields every questionnaire must carry, with the
// spreadsheet type each must declare.
var requiredFieldTypes = []struct {
	name string
	typ  string
}{
	{"location_type", "select one"},
	{"party_name", "text"},
	{"party_type", "select one"},
	{"tenure_type", "select one"},
}

// The well-known geometry fields. Only the ones present are checked, but
// at least one must appear. location_geometry accepts any geometry type.
var geometryFieldTypes = map[string][]string{
	"location_geoshape": {"geoshape"},
	"location_geotrace": {"geotrace"},
	"location_geometry": {"geopoint", "geotrace", "geoshape"},
}

var geometryFieldOrder = []string{"location_geoshape", "location_geotrace", "location_geometry"}

type fieldInfo struct {
	typ      string
	required bool
}

// ValidateRequired checks that the well-known fields are present, of the
// correct type and marked required. Fields nested one level inside
// "repeat" groups count as top-level; deeper repeat nesting is not
// flattened. All violations are collected before failing.
func ValidateRequired(fields []Field) error {
	flat := flattenRepeats(fields)

	found := map[string]fieldInfo{}
	for _, f := range flat {
		if isWellKnown(f.Name) {
			found[f.Name] = fieldInfo{typ: f.Type, required: f.IsRequired()}
		}
	}

	var errs *multierror.Error

	for _, want := range requiredFieldTypes {
		info, ok := found[want.name]
		switch {
		case !ok:
			errs = multierror.Append(errs, fmt.Errorf(
				"'%s' is a required field.", want.name))
		case info.typ != want.typ:
			errs = multierror.Append(errs, fmt.Errorf(
				"'%s' must be of type '%s'.", want.name, want.typ))
		case !info.required:
			errs = multierror.Append(errs, fmt.Errorf(
				"'%s' must be a required field.", want.name))
		}
	}

	anyGeometry := false
	for _, name := range geometryFieldOrder {
		info, ok := found[name]
		if !ok {
			continue
		}
		anyGeometry = true
		if !typeIn(info.typ, geometryFieldTypes[name]) {
			errs = multierror.Append(errs, fmt.Errorf(
				"'%s' must be of type '%s'.", name, geometryFieldTypes[name][0]))
			continue
		}
		if !info.required {
			errs = multierror.Append(errs, fmt.Errorf(
				"'%s' must be a required field.", name))
		}
	}
	if !anyGeometry {
		errs = multierror.Append(errs, fmt.Errorf(
			"Please provide at least one geometry field."))
	}

	if ferr := FromMultierror(errs); ferr != nil {
		return ferr
	}
	return nil
}

// flattenRepeats concatenates the children of every top-level "repeat"
// group into the field list. One level only: repeats nested inside
// repeats stay unflattened.
func flattenRepeats(fields []Field) []Field {
	flat := make([]Field, len(fields))
	copy(flat, fields)
	for _, f := range fields {
		if f.Type == TypeRepeat {
			flat = append(flat, f.Children...)
		}
	}
	return flat
}

func isWellKnown(name string) bool {
	for _, want := range requiredFieldTypes {
		if name == want.name {
			return true
		}
	}
	_, ok := geometryFieldTypes[name]
	return ok
}

func typeIn(typ string, accepted []string) bool {
	for _, t := range accepted {
		if typ == t {
			return true
		}
	}
	return false
}
