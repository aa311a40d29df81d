package model

// FieldType is one entry of the closed enumeration of supported question
// types. Code is the two-letter storage code, Name the spreadsheet-form
// type name, AttrType the backing type used for derived attribute schemas.
type FieldType struct {
	Code       string
	Name       string
	AttrType   string
	BindType   string // XForm bind @type
	BodyTag    string // XForm body element, empty for bind-only types
	MediaType  string // @mediatype for upload elements
	Preload    string // jr:preload for metadata types
	PreloadPar string // jr:preloadParams for metadata types
	HasOptions bool
	IsGeometry bool
	ReadOnly   bool
}

var fieldTypes = []FieldType{
	{Code: "IN", Name: "integer", AttrType: "integer", BindType: "int", BodyTag: "input"},
	{Code: "DE", Name: "decimal", AttrType: "decimal", BindType: "decimal", BodyTag: "input"},
	{Code: "TX", Name: "text", AttrType: "text", BindType: "string", BodyTag: "input"},
	{Code: "S1", Name: "select one", AttrType: "select_one", BindType: "select1", BodyTag: "select1", HasOptions: true},
	{Code: "SM", Name: "select all that apply", AttrType: "select_multiple", BindType: "select", BodyTag: "select", HasOptions: true},
	{Code: "NO", Name: "note", AttrType: "note", BindType: "string", BodyTag: "input", ReadOnly: true},
	{Code: "GP", Name: "geopoint", AttrType: "geopoint", BindType: "geopoint", BodyTag: "input", IsGeometry: true},
	{Code: "GT", Name: "geotrace", AttrType: "geotrace", BindType: "geotrace", BodyTag: "input", IsGeometry: true},
	{Code: "GS", Name: "geoshape", AttrType: "geoshape", BindType: "geoshape", BodyTag: "input", IsGeometry: true},
	{Code: "DA", Name: "date", AttrType: "date", BindType: "date", BodyTag: "input"},
	{Code: "TI", Name: "time", AttrType: "time", BindType: "time", BodyTag: "input"},
	{Code: "DT", Name: "dateTime", AttrType: "dateTime", BindType: "dateTime", BodyTag: "input"},
	{Code: "CA", Name: "calculate", AttrType: "calculate", BindType: "string"},
	{Code: "AC", Name: "acknowledge", AttrType: "acknowledge", BindType: "string", BodyTag: "trigger"},
	{Code: "PH", Name: "photo", AttrType: "photo", BindType: "binary", BodyTag: "upload", MediaType: "image/*"},
	{Code: "AU", Name: "audio", AttrType: "audio", BindType: "binary", BodyTag: "upload", MediaType: "audio/*"},
	{Code: "VI", Name: "video", AttrType: "video", BindType: "binary", BodyTag: "upload", MediaType: "video/*"},
	{Code: "BC", Name: "barcode", AttrType: "barcode", BindType: "barcode", BodyTag: "input"},
	{Code: "ST", Name: "start", AttrType: "start", BindType: "dateTime", Preload: "timestamp", PreloadPar: "start"},
	{Code: "EN", Name: "end", AttrType: "end", BindType: "dateTime", Preload: "timestamp", PreloadPar: "end"},
	{Code: "TD", Name: "today", AttrType: "today", BindType: "date", Preload: "date", PreloadPar: "today"},
	{Code: "DI", Name: "deviceid", AttrType: "deviceid", BindType: "string", Preload: "property", PreloadPar: "deviceid"},
	{Code: "SI", Name: "subscriberid", AttrType: "subscriberid", BindType: "string", Preload: "property", PreloadPar: "subscriberid"},
	{Code: "SS", Name: "simserial", AttrType: "simserial", BindType: "string", Preload: "property", PreloadPar: "simserial"},
	{Code: "PN", Name: "phonenumber", AttrType: "phonenumber", BindType: "string", Preload: "property", PreloadPar: "phonenumber"},
}

var (
	fieldTypesByCode = map[string]FieldType{}
	fieldTypesByName = map[string]FieldType{}
)

func init() {
	for _, ft := range fieldTypes {
		fieldTypesByCode[ft.Code] = ft
		fieldTypesByName[ft.Name] = ft
	}
}

func FieldTypeByCode(code string) (FieldType, bool) {
	ft, ok := fieldTypesByCode[code]
	return ft, ok
}

func FieldTypeByName(name string) (FieldType, bool) {
	ft, ok := fieldTypesByName[name]
	return ft, ok
}

// FieldTypeNames lists every spreadsheet-form type name, for enum checks.
func FieldTypeNames() []string {
	names := make([]string, len(fieldTypes))
	for i, ft := range fieldTypes {
		names[i] = ft.Name
	}
	return names
}
