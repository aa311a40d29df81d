package xlsform

import (
	_ "embed"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

//go:embed formconfig.json
var defaultConfig []byte

// ContentType identifies the entity model an attribute group targets.
type ContentType struct {
	AppLabel string `koanf:"app_label"`
	Model    string `koanf:"model"`
}

func (ct ContentType) String() string {
	return ct.AppLabel + "." + ct.Model
}

// Config is the static form configuration: which group-name prefixes map to
// attribute schemas of which entity, and the allowed label language codes.
type Config struct {
	AttributeGroups map[string]ContentType `koanf:"attribute_groups"`
	Languages       map[string]string      `koanf:"languages"`
}

// LoadConfig reads the embedded defaults and, if path is non-empty, merges
// overrides from a JSON file on top.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultConfig), json.Parser()); err != nil {
		return nil, errors.Wrap(err, "load embedded form config")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load form config %q", path)
		}
	}

	cfg := Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal form config")
	}
	return &cfg, nil
}

// LanguageAllowed reports whether a label language code belongs to the
// allowed set. The "default" sentinel is always allowed.
func (c *Config) LanguageAllowed(code string) bool {
	if code == "default" {
		return true
	}
	_, ok := c.Languages[code]
	return ok
}

// LanguageCode resolves a language tag to its canonical code. Generated
// XForm markup tags translations with full language names; those are
// rewritten back to codes. A tag that already is a code resolves to itself.
func (c *Config) LanguageCode(tag string) (string, bool) {
	if _, ok := c.Languages[tag]; ok {
		return tag, true
	}
	for code, name := range c.Languages {
		if strings.EqualFold(name, tag) {
			return code, true
		}
	}
	return "", false
}

// ContentTypeFor matches a group name against the configured attribute-group
// prefixes. Conditional groups carry suffixes, e.g. "party_attributes_in".
func (c *Config) ContentTypeFor(groupName string) (ContentType, bool) {
	for prefix, ct := range c.AttributeGroups {
		if strings.HasPrefix(groupName, prefix) {
			return ct, true
		}
	}
	return ContentType{}, false
}
