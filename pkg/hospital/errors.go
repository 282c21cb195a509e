package hospital

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidInput is returned when a field value cannot be converted,
	// for example a patient ID that is not a number.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPatientNotFound is returned when the referenced patient is not registered.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrAppointmentNotFound is returned when the referenced appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists the missing or malformed fields of a form.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "please fill all the fields correctly: " + strings.Join(parts, "; ")
}

// Missing returns the names of fields that were left empty.
func (e *ValidationError) Missing() []string {
	var out []string
	for _, f := range e.Fields {
		if f.Rule == "required" {
			out = append(out, f.Field)
		}
	}
	return out
}

func missingField(field string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: "required", Message: "is required"}}}
}

// fromValidator converts validator output into a *ValidationError. Any other
// error is returned unchanged.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: ruleMessage(fe.Tag(), fe.Param()),
		})
	}
	return out
}

func ruleMessage(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "datetime":
		switch param {
		case dateLayout:
			return "must be a date in YYYY-MM-DD format"
		case timeLayout:
			return "must be a time in HH:MM format"
		}
		return "must match " + param
	case "numeric":
		return "must be a number"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + tag + " check"
	}
}

// ParseID converts a typed-in record ID. An empty value yields a
// *ValidationError for field; anything that is not a whole number yields
// ErrInvalidInput.
func ParseID(field, text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, missingField(field)
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a valid number", ErrInvalidInput, field)
	}
	return id, nil
}
