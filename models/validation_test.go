package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFields() ReportFields {
	return ReportFields{
		Title:       "Projetor sem ligar",
		Description: "não liga",
		Location:    "Mesa 5",
		Laboratory:  "Lab 1",
	}
}

func TestReportFieldsValid(t *testing.T) {
	assert.Empty(t, validFields().Validate())
}

func TestReportFieldsMissing(t *testing.T) {
	fields := ReportFields{Title: "Microscópio", Description: "   "}.Normalize()

	errs := fields.Validate()
	require.Len(t, errs, 3)
	assert.Equal(t, "description", errs[0].Field)
	assert.Equal(t, "description is required", errs[0].Message)
	assert.Equal(t, "location", errs[1].Field)
	assert.Equal(t, "laboratory", errs[2].Field)
}

func TestReportFieldsTooLong(t *testing.T) {
	fields := validFields()
	fields.Title = strings.Repeat("a", 101)
	fields.Description = strings.Repeat("é", 500)

	errs := fields.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)
	assert.Equal(t, "title must be at most 100 characters", errs[0].Message)
}

func TestReportValidateStatus(t *testing.T) {
	f := validFields()
	report := &Report{Title: f.Title, Description: f.Description, Location: f.Location, Laboratory: f.Laboratory, Status: "quebrado"}

	errs := report.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "status", errs[0].Field)

	report.Status = StatusInMaintenance
	assert.Empty(t, report.Validate())
}

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("").Valid())
	assert.False(t, Status("in_maintenance").Valid())
}
