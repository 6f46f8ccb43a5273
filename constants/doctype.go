package constants

// DocTypeOther is the sentinel every unrecognized classification collapses to.
// It must exist in every registry, including the embedded fallback.
const DocTypeOther = "other"

// Registry categories used to group document types in classification prompts.
const (
	CategoryFinancial  = "financial"
	CategoryCommercial = "commercial"
	CategoryTransport  = "transport"
	CategoryInsurance  = "insurance"
	CategoryUnknown    = "unknown"
)

// Field semantic types understood by the dynamic extractor.
const (
	FieldTypeString   = "string"
	FieldTypeNumber   = "number"
	FieldTypeCurrency = "currency"
	FieldTypeDate     = "date"
)
