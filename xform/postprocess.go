package xform

import (
	"github.com/beevik/etree"
	"github.com/cadasta/questionnaires/xlsform"
)

// PostProcessor mutates a generated XForm document directly. The survey
// builder has no notion of form versions or submission UUIDs, so both are
// injected into the document tree after generation. Keeping this behind
// its own type lets the builder be swapped without touching the injection
// logic.
type PostProcessor struct{}

const instancePath = "./h:html/h:head/model/instance"

// InsertVersion sets the version attribute on the root instance node named
// after the form identifier.
func (PostProcessor) InsertVersion(doc *etree.Document, idString, version string) error {
	root := doc.FindElement(instancePath + "/" + idString)
	if root == nil {
		return xlsform.NewError("Generated XForm has no instance root node.")
	}
	root.CreateAttr("version", version)
	return nil
}

// InsertUUIDBind adds the synthetic bind computing meta/instanceID as
// concat('uuid:', uuid()), read-only and typed string.
func (PostProcessor) InsertUUIDBind(doc *etree.Document, idString string) error {
	modelEl := doc.FindElement("./h:html/h:head/model")
	if modelEl == nil {
		return xlsform.NewError("Generated XForm has no model node.")
	}

	bind := modelEl.CreateElement("bind")
	bind.CreateAttr("nodeset", "/"+idString+"/meta/instanceID")
	bind.CreateAttr("type", "string")
	bind.CreateAttr("readonly", "true()")
	bind.CreateAttr("calculate", "concat('uuid:', uuid())")

	// the bind is useless without its instance node
	root := doc.FindElement(instancePath + "/" + idString)
	if root != nil && root.FindElement("./meta/instanceID") == nil {
		meta := root.FindElement("./meta")
		if meta == nil {
			meta = root.CreateElement("meta")
		}
		meta.CreateElement("instanceID")
	}
	return nil
}

// FixLanguages rewrites translation language tags to canonical codes. The
// builder tags translations with whatever the labels carried; full
// language names are mapped back to their codes, unknown tags are left
// untouched.
func (PostProcessor) FixLanguages(doc *etree.Document, cfg *xlsform.Config) {
	for _, translation := range doc.FindElements("./h:html/h:head/model/itext/translation") {
		attr := translation.SelectAttr("lang")
		if attr == nil {
			continue
		}
		if code, ok := cfg.LanguageCode(attr.Value); ok {
			attr.Value = code
		}
	}
}
