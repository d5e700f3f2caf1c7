package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/magerisk/pkg/models"
)

// rowValidate is the shared validator instance for import rows
var rowValidate = validator.New()

// RawAssetRow represents one already-tokenized row of a bulk asset
// import. Every field arrives as a string; file parsing belongs to the
// caller.
type RawAssetRow struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Category        string `json:"category"`
	Owner           string `json:"owner"`
	Confidentiality string `json:"confidentiality"`
	Integrity       string `json:"integrity"`
	Availability    string `json:"availability"`
	Authenticity    string `json:"authenticity"`
	Traceability    string `json:"traceability"`
	EconomicValue   string `json:"economic_value"`
}

// parsedRow carries the coerced values through struct validation
type parsedRow struct {
	Code            string  `validate:"required"`
	Name            string  `validate:"required"`
	Confidentiality float64 `validate:"gte=0,lte=10"`
	Integrity       float64 `validate:"gte=0,lte=10"`
	Availability    float64 `validate:"gte=0,lte=10"`
	Authenticity    float64 `validate:"gte=0,lte=10"`
	Traceability    float64 `validate:"gte=0,lte=10"`
	EconomicValue   float64 `validate:"gte=0"`
}

// RowError represents one rejected row
type RowError struct {
	Row     int    `json:"row"` // zero-based position in the batch
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// BatchResult represents the outcome of validating an import batch
type BatchResult struct {
	Valid     []models.CreateAssetRequest `json:"valid"`
	RowErrors []RowError                  `json:"row_errors"`
}

// ImportOutcome is the report the persisting caller produces using the
// same row-isolation contract. The validator itself never persists.
type ImportOutcome struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// ValidateBatch validates every row independently. A malformed row lands
// in RowErrors and is excluded from Valid; one bad row never aborts the
// batch.
func ValidateBatch(rows []RawAssetRow) BatchResult {
	result := BatchResult{
		Valid:     make([]models.CreateAssetRequest, 0, len(rows)),
		RowErrors: make([]RowError, 0),
	}

	for i, row := range rows {
		req, rowErr := validateRow(i, row)
		if rowErr != nil {
			result.RowErrors = append(result.RowErrors, *rowErr)
			continue
		}
		result.Valid = append(result.Valid, req)
	}
	return result
}

// validateRow coerces and validates a single row
func validateRow(index int, row RawAssetRow) (models.CreateAssetRequest, *RowError) {
	parsed := parsedRow{
		Code: strings.TrimSpace(row.Code),
		Name: strings.TrimSpace(row.Name),
	}

	numeric := []struct {
		field string
		raw   string
		dst   *float64
	}{
		{"confidentiality", row.Confidentiality, &parsed.Confidentiality},
		{"integrity", row.Integrity, &parsed.Integrity},
		{"availability", row.Availability, &parsed.Availability},
		{"authenticity", row.Authenticity, &parsed.Authenticity},
		{"traceability", row.Traceability, &parsed.Traceability},
		{"economic_value", row.EconomicValue, &parsed.EconomicValue},
	}
	for _, n := range numeric {
		value, err := strconv.ParseFloat(strings.TrimSpace(n.raw), 64)
		if err != nil {
			return models.CreateAssetRequest{}, &RowError{
				Row:     index,
				Field:   n.field,
				Message: fmt.Sprintf("%s: %q is not a number", n.field, n.raw),
			}
		}
		*n.dst = value
	}

	if err := rowValidate.Struct(parsed); err != nil {
		var verrs validator.ValidationErrors
		if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			return models.CreateAssetRequest{}, &RowError{
				Row:     index,
				Field:   field,
				Message: fmt.Sprintf("%s: failed %q validation", field, verrs[0].Tag()),
			}
		}
		return models.CreateAssetRequest{}, &RowError{Row: index, Message: err.Error()}
	}

	return models.CreateAssetRequest{
		Code:     parsed.Code,
		Name:     parsed.Name,
		Type:     strings.TrimSpace(row.Type),
		Category: strings.TrimSpace(row.Category),
		Owner:    strings.TrimSpace(row.Owner),
		Valuation: models.Valuation{
			Confidentiality: parsed.Confidentiality,
			Integrity:       parsed.Integrity,
			Availability:    parsed.Availability,
			Authenticity:    parsed.Authenticity,
			Traceability:    parsed.Traceability,
		},
		EconomicValue: parsed.EconomicValue,
	}, nil
}
