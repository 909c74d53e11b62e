package domain

// Source identifies the ingestion path a draft arrived through. The two
// paths carry different defaulting conventions ("N/A" for spreadsheet rows,
// empty string for webhook payloads) and those must survive mapping.
type Source string

const (
	SourceSheet   Source = "sheet"
	SourceWebhook Source = "webhook"
)

// SheetUnset is the sentinel a spreadsheet-origin draft carries for a field
// that has not been read from the sheet. Downstream consumers key off it,
// so it is never collapsed into the webhook path's empty string.
const SheetUnset = "N/A"

// Draft is a normalized lead candidate produced by the row mapper. Every
// canonical field is populated (with the path's default when the source was
// blank); unrecognized source fields are preserved in Extra so additional
// form columns never break ingestion.
type Draft struct {
	Source Source

	// SheetRow is the origin row number in the spreadsheet (header offset
	// already applied), or nil for webhook submissions without a
	// correlation row id.
	SheetRow *int

	Timestamp         string
	Builder           string
	FullName          string
	PhoneNumber       string
	Address           string
	WorkRequired      string
	Details           string
	Budget            string
	City              string
	StartDate         string
	Email             string
	ContactPreference string

	// Stage is an optional starting stage for manual entry; empty means
	// the lifecycle default.
	Stage string

	Extra map[string]string
}

// FieldSet reports whether a mapped value carries real content, i.e. is
// neither blank nor the path's unset sentinel.
func (d Draft) FieldSet(value string) bool {
	return value != "" && value != SheetUnset
}
