package leads

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/lead-scorer/internal/apperr"
)

var validate = validator.New()

// Validate builds a typed lead from raw and returns how many required fields
// failed: absent, null or not a string. An empty string is a valid value.
func Validate(raw RawRecord) (Lead, int, error) {
	present := make(map[string]any, len(RequiredFields))
	for _, field := range RequiredFields {
		if s, ok := raw[field].(string); ok {
			present[field] = s
		}
	}

	var lead Lead
	if err := mapstructure.Decode(present, &lead); err != nil {
		return Lead{}, 0, fmt.Errorf("decode lead record: %w", err)
	}

	err := validate.Struct(lead)
	if err == nil {
		return lead, 0, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Lead{}, 0, fmt.Errorf("validate lead record: %w", err)
	}

	return lead, len(fieldErrs), nil
}

// Split validates every record and separates clean rows from defective ones.
// Row numbers are 1-based positions in records.
func Split(records []RawRecord) (Batch, error) {
	var batch Batch
	for idx, raw := range records {
		lead, missing, err := Validate(raw)
		if err != nil {
			return Batch{}, fmt.Errorf("row %d: %w", idx+1, err)
		}

		if missing == 0 {
			batch.Validated = append(batch.Validated, lead)
			continue
		}

		batch.Defective = append(batch.Defective, DefectiveLead{
			Row:               idx + 1,
			Raw:               raw,
			Lead:              lead,
			MissingValueCount: missing,
		})
	}

	return batch, nil
}

// ValidateOffer checks that the offer carries a name and both lists.
func ValidateOffer(offer Offer) error {
	err := validate.Struct(offer)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid offer", err)
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}

	return apperr.InvalidInput("invalid offer: " + strings.Join(details, ", ")).WithDetails(details)
}
