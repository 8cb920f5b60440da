// Package leads holds the lead-scoring domain records: the offer being sold,
// raw and validated lead rows, and the scored output rows.
package leads

// Required lead columns, in upload order.
const (
	FieldName        = "name"
	FieldRole        = "role"
	FieldCompany     = "company"
	FieldIndustry    = "industry"
	FieldLocation    = "location"
	FieldLinkedInBio = "linkedin_bio"
)

// RequiredFields lists every column a lead record must carry.
var RequiredFields = []string{
	FieldName,
	FieldRole,
	FieldCompany,
	FieldIndustry,
	FieldLocation,
	FieldLinkedInBio,
}

// Offer describes the product being sold. It is supplied once and reused for
// every lead in a scoring run.
type Offer struct {
	Name          string   `json:"name" mapstructure:"name" validate:"required"`
	ValueProps    []string `json:"value_props" mapstructure:"value_props" validate:"required"`
	IdealUseCases []string `json:"ideal_use_cases" mapstructure:"ideal_use_cases" validate:"required"`
}

// RawRecord is one uploaded row: column name to raw value. Values may be
// absent, nil or of a non-string type.
type RawRecord map[string]any

// Lead is a typed lead profile. A nil field means the value was absent, null
// or not a string in the raw record.
type Lead struct {
	Name        *string `json:"name" mapstructure:"name" validate:"required"`
	Role        *string `json:"role" mapstructure:"role" validate:"required"`
	Company     *string `json:"company" mapstructure:"company" validate:"required"`
	Industry    *string `json:"industry" mapstructure:"industry" validate:"required"`
	Location    *string `json:"location" mapstructure:"location" validate:"required"`
	LinkedInBio *string `json:"linkedin_bio" mapstructure:"linkedin_bio" validate:"required"`
}

// DefectiveLead is a row that failed validation, kept with the number of
// fields that failed.
type DefectiveLead struct {
	Row               int       `json:"row"`
	Raw               RawRecord `json:"raw"`
	Lead              Lead      `json:"-"`
	MissingValueCount int       `json:"missing_value_count"`
}

// Batch is the result of validating an upload. Both slices keep upload order.
type Batch struct {
	Validated []Lead
	Defective []DefectiveLead
}

// Len returns the number of leads in the batch.
func (b Batch) Len() int {
	return len(b.Validated) + len(b.Defective)
}

// Intent is the coarse buying-interest classification.
type Intent string

const (
	IntentHigh   Intent = "High"
	IntentMedium Intent = "Medium"
	IntentLow    Intent = "Low"
)

// Completeness tells whether a scored lead came from a validated row.
type Completeness string

const (
	Complete   Completeness = "Complete"
	Incomplete Completeness = "Incomplete"
)

// ScoredLead is one row of a scoring run. Absent role, company and industry
// stay nil so they render as null.
type ScoredLead struct {
	Name             string       `json:"name"`
	Role             *string      `json:"role"`
	Company          *string      `json:"company"`
	Industry         *string      `json:"industry"`
	Intent           Intent       `json:"intent"`
	Score            int          `json:"score"`
	Reasoning        string       `json:"reasoning"`
	DataCompleteness Completeness `json:"data_completeness"`
}

// Text dereferences an optional field, returning "" for nil.
func Text(v *string) string {
	return TextOr(v, "")
}

// TextOr dereferences an optional field, returning fallback for nil.
func TextOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
