package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodRow(code, name string) RawAssetRow {
	return RawAssetRow{
		Code:            code,
		Name:            name,
		Type:            "hardware",
		Confidentiality: "7",
		Integrity:       "8",
		Availability:    "6.5",
		Authenticity:    "5",
		Traceability:    "4",
		EconomicValue:   "12000",
	}
}

func TestValidateBatch_AllValid(t *testing.T) {
	rows := []RawAssetRow{
		goodRow("ACT-001", "Database server"),
		goodRow("ACT-002", "Mail server"),
	}

	result := ValidateBatch(rows)

	require.Len(t, result.Valid, 2)
	assert.Empty(t, result.RowErrors)
	assert.Equal(t, "ACT-001", result.Valid[0].Code)
	assert.InDelta(t, 6.5, result.Valid[0].Valuation.Availability, 1e-9)
	assert.InDelta(t, 12000, result.Valid[0].EconomicValue, 1e-9)
}

func TestValidateBatch_OneBadRowDoesNotAbortBatch(t *testing.T) {
	rows := []RawAssetRow{
		goodRow("ACT-001", "Row zero"),
		goodRow("ACT-002", "Row one"),
		goodRow("ACT-003", "Row two"),
		goodRow("ACT-004", "Row three"),
		goodRow("ACT-005", "Row four"),
	}
	rows[3].EconomicValue = "lots of money"

	result := ValidateBatch(rows)

	require.Len(t, result.Valid, 4)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 3, result.RowErrors[0].Row)
	assert.Equal(t, "economic_value", result.RowErrors[0].Field)
	assert.Contains(t, result.RowErrors[0].Message, "not a number")
}

func TestValidateBatch_RangeViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawAssetRow)
		field  string
	}{
		{"dimension above ten", func(r *RawAssetRow) { r.Confidentiality = "11" }, "confidentiality"},
		{"dimension below zero", func(r *RawAssetRow) { r.Traceability = "-1" }, "traceability"},
		{"negative economic value", func(r *RawAssetRow) { r.EconomicValue = "-500" }, "economicvalue"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			row := goodRow("ACT-001", "Asset")
			tc.mutate(&row)

			result := ValidateBatch([]RawAssetRow{row})

			assert.Empty(t, result.Valid)
			require.Len(t, result.RowErrors, 1)
			assert.Equal(t, 0, result.RowErrors[0].Row)
			assert.Equal(t, tc.field, result.RowErrors[0].Field)
		})
	}
}

func TestValidateBatch_RequiredFields(t *testing.T) {
	result := ValidateBatch([]RawAssetRow{goodRow("", "No code")})
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, "code", result.RowErrors[0].Field)

	result = ValidateBatch([]RawAssetRow{goodRow("ACT-001", "   ")})
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, "name", result.RowErrors[0].Field)
}

func TestValidateBatch_NonNumericDimension(t *testing.T) {
	row := goodRow("ACT-001", "Asset")
	row.Integrity = "high"

	result := ValidateBatch([]RawAssetRow{row})

	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, "integrity", result.RowErrors[0].Field)
}

func TestValidateBatch_EmptyBatch(t *testing.T) {
	result := ValidateBatch(nil)
	assert.Empty(t, result.Valid)
	assert.Empty(t, result.RowErrors)
}
