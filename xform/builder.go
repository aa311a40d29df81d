package xform

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
	"github.com/cadasta/questionnaires/model"
	"github.com/cadasta/questionnaires/xlsform"
)

const (
	nsXForms   = "http://www.w3.org/2002/xforms"
	nsXHTML    = "http://www.w3.org/1999/xhtml"
	nsEvents   = "http://www.w3.org/2001/xml-events"
	nsSchema   = "http://www.w3.org/2001/XMLSchema"
	nsJavaRosa = "http://openrosa.org/javarosa"
)

// builder turns a survey-JSON envelope into an XForm document.
type builder struct {
	model    *etree.Element
	body     *etree.Element
	itext    map[string]map[string]string // lang -> itext id -> text
	language string
}

// BuildSurvey produces the namespace-correct XForm document for a survey
// envelope as assembled by TransformToXFormJSON or FromForm.
func BuildSurvey(survey map[string]any) (*etree.Document, error) {
	idString, _ := survey["id_string"].(string)
	if idString == "" {
		return nil, xlsform.NewError("Survey is missing its id_string.")
	}
	title, _ := survey["title"].(string)
	if title == "" {
		title = idString
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	html := doc.CreateElement("h:html")
	html.CreateAttr("xmlns", nsXForms)
	html.CreateAttr("xmlns:h", nsXHTML)
	html.CreateAttr("xmlns:ev", nsEvents)
	html.CreateAttr("xmlns:xsd", nsSchema)
	html.CreateAttr("xmlns:jr", nsJavaRosa)

	head := html.CreateElement("h:head")
	head.CreateElement("h:title").SetText(title)
	modelEl := head.CreateElement("model")

	instance := modelEl.CreateElement("instance")
	root := instance.CreateElement(idString)
	root.CreateAttr("id", idString)

	body := html.CreateElement("h:body")

	b := &builder{
		model:    modelEl,
		body:     body,
		itext:    map[string]map[string]string{},
		language: stringOr(survey["default_language"], model.DefaultLanguage),
	}

	children, _ := survey["children"].([]map[string]any)
	for _, child := range children {
		if err := b.buildNode(root, body, "/"+idString, child); err != nil {
			return nil, err
		}
	}

	meta := root.CreateElement("meta")
	meta.CreateElement("instanceID")

	b.buildItext()
	return doc, nil
}

func (b *builder) buildNode(instance, body *etree.Element, path string, node map[string]any) error {
	name, _ := node["name"].(string)
	typeName, _ := node["type"].(string)
	if name == "" || typeName == "" {
		return xlsform.NewError("Survey node is missing its name or type.")
	}
	nodePath := path + "/" + name

	if typeName == "group" || typeName == "repeat" {
		return b.buildGroup(instance, body, path, nodePath, node, typeName)
	}

	ft, ok := model.FieldTypeByName(typeName)
	if !ok {
		return xlsform.NewError(fmt.Sprintf("Unknown question type '%s'.", typeName))
	}

	el := instance.CreateElement(name)
	if def, ok := node["default"].(string); ok {
		el.SetText(def)
	}

	bindEl := b.model.CreateElement("bind")
	bindEl.CreateAttr("nodeset", nodePath)
	bindEl.CreateAttr("type", ft.BindType)
	if ft.ReadOnly {
		bindEl.CreateAttr("readonly", "true()")
	}
	if ft.Preload != "" {
		bindEl.CreateAttr("jr:preload", ft.Preload)
		bindEl.CreateAttr("jr:preloadParams", ft.PreloadPar)
	}
	if bind := bindMap(node["bind"]); bind != nil {
		for _, key := range []string{"required", "relevant", "constraint", "calculate"} {
			if v := bind[key]; v != "" {
				bindEl.CreateAttr(key, v)
			}
		}
	}

	if ft.BodyTag == "" {
		return nil
	}

	widget := body.CreateElement(ft.BodyTag)
	widget.CreateAttr("ref", nodePath)
	if ft.MediaType != "" {
		widget.CreateAttr("mediatype", ft.MediaType)
	}
	b.buildLabel(widget, node["label"], nodePath+":label")
	if hint, ok := node["hint"].(string); ok && hint != "" {
		widget.CreateElement("hint").SetText(hint)
	}

	if ft.HasOptions {
		choices, _ := node["choices"].([]map[string]any)
		for i, choice := range choices {
			item := widget.CreateElement("item")
			choiceName, _ := choice["name"].(string)
			b.buildLabel(item, choice["label"], fmt.Sprintf("%s:option%d", nodePath, i))
			item.CreateElement("value").SetText(choiceName)
		}
	}

	return nil
}

func (b *builder) buildGroup(instance, body *etree.Element, parentPath, nodePath string, node map[string]any, typeName string) error {
	name, _ := node["name"].(string)

	groupInstance := instance.CreateElement(name)

	if bind := bindMap(node["bind"]); bind != nil && bind["relevant"] != "" {
		bindEl := b.model.CreateElement("bind")
		bindEl.CreateAttr("nodeset", nodePath)
		bindEl.CreateAttr("relevant", bind["relevant"])
	}

	groupBody := body.CreateElement("group")
	groupBody.CreateAttr("ref", nodePath)
	b.buildLabel(groupBody, node["label"], nodePath+":label")

	childBody := groupBody
	if typeName == "repeat" {
		childBody = groupBody.CreateElement("repeat")
		childBody.CreateAttr("nodeset", nodePath)
	}

	children, _ := node["children"].([]map[string]any)
	for _, child := range children {
		if err := b.buildNode(groupInstance, childBody, nodePath, child); err != nil {
			return err
		}
	}
	return nil
}

// buildLabel writes either a plain label or, for multilingual labels, an
// itext reference with per-language entries recorded for the itext block.
func (b *builder) buildLabel(parent *etree.Element, label any, itextID string) {
	lbl, ok := label.(model.Label)
	if !ok || len(lbl) == 0 {
		return
	}
	if !lbl.Multilingual() {
		parent.CreateElement("label").SetText(lbl.In(b.language))
		return
	}

	el := parent.CreateElement("label")
	el.CreateAttr("ref", fmt.Sprintf("jr:itext('%s')", itextID))
	for lang, text := range lbl {
		if b.itext[lang] == nil {
			b.itext[lang] = map[string]string{}
		}
		b.itext[lang][itextID] = text
	}
}

// buildItext emits the collected translations ahead of the instance, the
// position field clients expect.
func (b *builder) buildItext() {
	if len(b.itext) == 0 {
		return
	}
	itextEl := etree.NewElement("itext")
	for _, lang := range sortedLangs(b.itext) {
		translation := itextEl.CreateElement("translation")
		translation.CreateAttr("lang", lang)
		if lang == b.language {
			translation.CreateAttr("default", "true()")
		}
		entries := b.itext[lang]
		for _, id := range sortedIDs(entries) {
			text := translation.CreateElement("text")
			text.CreateAttr("id", id)
			text.CreateElement("value").SetText(entries[id])
		}
	}
	b.model.InsertChildAt(0, itextEl)
}

func sortedLangs(itext map[string]map[string]string) []string {
	langs := make([]string, 0, len(itext))
	for lang := range itext {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func sortedIDs(entries map[string]string) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func bindMap(v any) map[string]string {
	switch bind := v.(type) {
	case map[string]string:
		return bind
	case map[string]any:
		out := map[string]string{}
		for k, item := range bind {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
