package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"lab-equipment-api/apperrors"
)

// ReportFields are the client-written text fields of a report.
type ReportFields struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=500"`
	Location    string `json:"location" validate:"required,max=100"`
	Laboratory  string `json:"laboratory" validate:"required,max=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims surrounding whitespace so that blank input counts as missing.
func (f ReportFields) Normalize() ReportFields {
	return ReportFields{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Location:    strings.TrimSpace(f.Location),
		Laboratory:  strings.TrimSpace(f.Laboratory),
	}
}

// Validate returns one FieldError per rejected field, in declaration order.
func (f ReportFields) Validate() []apperrors.FieldError {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperrors.FieldError{{Field: "report", Message: err.Error()}}
	}
	out := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Fields extracts the validated text fields of a report.
func (r *Report) Fields() ReportFields {
	return ReportFields{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Laboratory:  r.Laboratory,
	}
}

// Validate checks a full report before it is written.
func (r *Report) Validate() []apperrors.FieldError {
	errs := r.Fields().Validate()
	if !r.Status.Valid() {
		errs = append(errs, StatusFieldError(r.Status))
	}
	return errs
}

// StatusFieldError describes a status outside the accepted set.
func StatusFieldError(s Status) apperrors.FieldError {
	allowed := make([]string, len(Statuses))
	for i, st := range Statuses {
		allowed[i] = string(st)
	}
	return apperrors.FieldError{
		Field:   "status",
		Message: fmt.Sprintf("status %q must be one of %s", s, strings.Join(allowed, ", ")),
	}
}
