package hospital

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// PatientForm is the new-patient form.
type PatientForm struct {
	Name     string `json:"name" validate:"required"`
	DOB      string `json:"dob" validate:"required,datetime=2006-01-02"`
	Gender   string `json:"gender" validate:"required,oneof=Male Female Other"`
	Problem  string `json:"problem" validate:"required"`
	MobileNo string `json:"mobile_no" validate:"required"`
}

// StaffForm is the new-staff form. Every field is required.
type StaffForm struct {
	Name            string `json:"name" validate:"required"`
	Age             string `json:"age" validate:"required,numeric"`
	Gender          string `json:"gender" validate:"required,oneof=Male Female Other"`
	Specialization  string `json:"specialization" validate:"required"`
	LanguagesSpoken string `json:"languages_spoken" validate:"required"`
	MobileNo        string `json:"mobile_no" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Schedule        string `json:"schedule" validate:"required"`
}

// AppointmentForm is the book-appointment form.
type AppointmentForm struct {
	PatientID string `json:"patient_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
	Details   string `json:"details" validate:"required"`
}

// BillingForm is the billing form.
type BillingForm struct {
	PatientID string `json:"patient_id" validate:"required"`
	Services  string `json:"services" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

// newValidator reports field names by their json tag so errors read like
// the form labels.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (f *PatientForm) trim() {
	trimAll(&f.Name, &f.DOB, &f.Gender, &f.Problem, &f.MobileNo)
}

func (f *StaffForm) trim() {
	trimAll(&f.Name, &f.Age, &f.Gender, &f.Specialization, &f.LanguagesSpoken, &f.MobileNo, &f.Email, &f.Schedule)
}

func (f *AppointmentForm) trim() {
	trimAll(&f.PatientID, &f.Date, &f.Time, &f.Details)
}

func (f *BillingForm) trim() {
	trimAll(&f.PatientID, &f.Services, &f.Amount)
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
