package commands

import (
	"errors"

	"github.com/cityhospital/hms/pkg/auth"
	"github.com/cityhospital/hms/pkg/hospital"
	"github.com/cityhospital/hms/pkg/policy"
	"github.com/cityhospital/hms/pkg/stores"
)

// userError turns a command failure into the one-line message shown at the
// front desk.
func userError(err error) error {
	var verr *hospital.ValidationError
	var denied *policy.DeniedError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.As(err, &denied):
		return denied
	case errors.Is(err, hospital.ErrPatientNotFound):
		return errors.New("patient ID does not exist")
	case errors.Is(err, hospital.ErrAppointmentNotFound):
		return errors.New("appointment ID does not exist")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errors.New("invalid username or password")
	case stores.IsClosed(err):
		return errors.New("the database is not open")
	default:
		return err
	}
}
