package hospital

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/cityhospital/hms/pkg/billing"
	"github.com/cityhospital/hms/pkg/stores"
	"github.com/cityhospital/hms/pkg/telemetry"
)

// PatientRecord is a patient together with their booked appointments.
type PatientRecord struct {
	Patient      *stores.Patient       `json:"patient"`
	Appointments []*stores.Appointment `json:"appointments"`
}

// Authorizer decides whether the user in ctx may run operation on record.
type Authorizer interface {
	Authorize(ctx context.Context, operation string, record any) error
}

// Service runs the front-desk workflows against a record store.
type Service struct {
	store      stores.Store
	billing    *billing.Calculator
	contact    ContactInfo
	validate   *validator.Validate
	authorizer Authorizer
}

// NewService creates a front-desk service. calc may be nil when billing is
// not used.
func NewService(store stores.Store, calc *billing.Calculator, contact ContactInfo) *Service {
	return &Service{
		store:    store,
		billing:  calc,
		contact:  contact,
		validate: newValidator(),
	}
}

// WithAuthorizer makes every write workflow ask a first.
func (s *Service) WithAuthorizer(a Authorizer) *Service {
	s.authorizer = a
	return s
}

// Contact returns the hospital's contact card.
func (s *Service) Contact() ContactInfo {
	return s.contact
}

// RegisterPatient validates the form and stores a new patient.
func (s *Service) RegisterPatient(ctx context.Context, form PatientForm) (patient *stores.Patient, err error) {
	op := telemetry.StartOperation(ctx, "register_patient")
	defer func() { op.End(err) }()

	form.trim()
	if err := s.validate.Struct(form); err != nil {
		return nil, fromValidator(err)
	}
	if err := s.authorize(op.Ctx, "register_patient", form); err != nil {
		return nil, err
	}

	patient = &stores.Patient{
		Name:     form.Name,
		DOB:      form.DOB,
		Gender:   form.Gender,
		Problem:  form.Problem,
		MobileNo: form.MobileNo,
	}
	if err := s.store.AddPatient(op.Ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to register patient: %w", err)
	}

	op.Annotate(telemetry.AttrPatientID.Int64(patient.ID))
	op.Logger.WithPatientID(patient.ID).Info("patient registered")
	return patient, nil
}

// RegisterStaff validates the form and stores a new staff member.
func (s *Service) RegisterStaff(ctx context.Context, form StaffForm) (member *stores.StaffMember, err error) {
	op := telemetry.StartOperation(ctx, "register_staff")
	defer func() { op.End(err) }()

	form.trim()
	if err := s.validate.Struct(form); err != nil {
		return nil, fromValidator(err)
	}

	age, err := strconv.Atoi(form.Age)
	if err != nil || age < 0 {
		return nil, fmt.Errorf("%w: age must be a whole number", ErrInvalidInput)
	}
	if err := s.authorize(op.Ctx, "register_staff", form); err != nil {
		return nil, err
	}

	member = &stores.StaffMember{
		Name:            form.Name,
		Age:             age,
		Gender:          form.Gender,
		Specialization:  form.Specialization,
		LanguagesSpoken: form.LanguagesSpoken,
		MobileNo:        form.MobileNo,
		Email:           form.Email,
		Schedule:        form.Schedule,
	}
	if err := s.store.AddStaff(op.Ctx, member); err != nil {
		return nil, fmt.Errorf("failed to register staff member: %w", err)
	}

	op.Annotate(telemetry.AttrStaffID.Int64(member.ID))
	op.Logger.WithStaffID(member.ID).Info("staff member registered")
	return member, nil
}

// BookAppointment books an appointment for an existing patient. Nothing is
// written when the patient ID is malformed or unknown.
func (s *Service) BookAppointment(ctx context.Context, form AppointmentForm) (appt *stores.Appointment, err error) {
	op := telemetry.StartOperation(ctx, "book_appointment")
	defer func() { op.End(err) }()

	form.trim()
	if err := s.validate.Struct(form); err != nil {
		return nil, fromValidator(err)
	}

	patientID, err := ParseID("patient_id", form.PatientID)
	if err != nil {
		return nil, err
	}
	if err := s.requirePatient(op.Ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.authorize(op.Ctx, "book_appointment", form); err != nil {
		return nil, err
	}

	appt = &stores.Appointment{
		PatientID: patientID,
		Date:      form.Date,
		Time:      form.Time,
		Details:   form.Details,
	}
	if err := s.store.AddAppointment(op.Ctx, appt); err != nil {
		if stores.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %d: %w", ErrPatientNotFound, patientID, err)
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	op.Annotate(telemetry.AttrPatientID.Int64(patientID), telemetry.AttrAppointmentID.Int64(appt.ID))
	op.Logger.WithPatientID(patientID).WithAppointmentID(appt.ID).Info("appointment booked")
	return appt, nil
}

// CancelAppointment deletes the appointment whose ID was typed in idText.
func (s *Service) CancelAppointment(ctx context.Context, idText string) (err error) {
	op := telemetry.StartOperation(ctx, "cancel_appointment")
	defer func() { op.End(err) }()

	id, err := ParseID("appointment_id", idText)
	if err != nil {
		return err
	}
	if err := s.authorize(op.Ctx, "cancel_appointment", map[string]int64{"appointment_id": id}); err != nil {
		return err
	}

	if err := s.store.DeleteAppointment(op.Ctx, id); err != nil {
		if stores.IsNotFound(err) {
			return fmt.Errorf("%w: %d: %w", ErrAppointmentNotFound, id, err)
		}
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}

	op.Annotate(telemetry.AttrAppointmentID.Int64(id))
	op.Logger.WithAppointmentID(id).Info("appointment cancelled")
	return nil
}

// ViewPatient returns the patient whose ID was typed in idText along with
// their appointments.
func (s *Service) ViewPatient(ctx context.Context, idText string) (record *PatientRecord, err error) {
	op := telemetry.StartOperation(ctx, "view_patient")
	defer func() { op.End(err) }()

	id, err := ParseID("patient_id", idText)
	if err != nil {
		return nil, err
	}

	patient, err := s.getPatient(op.Ctx, id)
	if err != nil {
		return nil, err
	}

	appts, err := s.store.ListAppointmentsByPatient(op.Ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	return &PatientRecord{Patient: patient, Appointments: appts}, nil
}

// DischargePatient removes the patient whose ID was typed in idText. Their
// appointments go with them. The removed patient is returned.
func (s *Service) DischargePatient(ctx context.Context, idText string) (patient *stores.Patient, err error) {
	op := telemetry.StartOperation(ctx, "discharge_patient")
	defer func() { op.End(err) }()

	id, err := ParseID("patient_id", idText)
	if err != nil {
		return nil, err
	}

	patient, err = s.getPatient(op.Ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(op.Ctx, "discharge_patient", patient); err != nil {
		return nil, err
	}

	if err := s.store.DeletePatient(op.Ctx, id); err != nil {
		if stores.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %d: %w", ErrPatientNotFound, id, err)
		}
		return nil, fmt.Errorf("failed to discharge patient: %w", err)
	}

	op.Annotate(telemetry.AttrPatientID.Int64(id))
	op.Logger.WithPatientID(id).Info("patient discharged")
	return patient, nil
}

// ListPatients returns every registered patient.
func (s *Service) ListPatients(ctx context.Context) ([]*stores.Patient, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// ListStaff returns every staff member.
func (s *Service) ListStaff(ctx context.Context) ([]*stores.StaffMember, error) {
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

// ListAppointments returns every booked appointment.
func (s *Service) ListAppointments(ctx context.Context) ([]*stores.Appointment, error) {
	appts, err := s.store.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

// BillPatient issues a receipt for a registered patient.
func (s *Service) BillPatient(ctx context.Context, form BillingForm) (receipt *billing.Receipt, err error) {
	op := telemetry.StartOperation(ctx, "bill_patient")
	defer func() { op.End(err) }()

	if s.billing == nil {
		return nil, errors.New("billing is not configured")
	}

	form.trim()
	if err := s.validate.Struct(form); err != nil {
		return nil, fromValidator(err)
	}

	patientID, err := ParseID("patient_id", form.PatientID)
	if err != nil {
		return nil, err
	}

	amount, err := strconv.ParseFloat(form.Amount, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("%w: amount must be a valid number", ErrInvalidInput)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	if err := s.requirePatient(op.Ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.authorize(op.Ctx, "bill_patient", form); err != nil {
		return nil, err
	}

	receipt, err = s.billing.Calculate(op.Ctx, billing.Request{
		PatientID: patientID,
		Services:  form.Services,
		Amount:    amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue receipt: %w", err)
	}

	op.Annotate(telemetry.AttrPatientID.Int64(patientID), telemetry.AttrReceiptNo.String(receipt.Number))
	op.Logger.WithPatientID(patientID).WithReceiptNumber(receipt.Number).Info("receipt issued")
	return receipt, nil
}

func (s *Service) authorize(ctx context.Context, operation string, record any) error {
	if s.authorizer == nil {
		return nil
	}
	return s.authorizer.Authorize(ctx, operation, record)
}

func (s *Service) requirePatient(ctx context.Context, id int64) error {
	exists, err := s.store.PatientExists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up patient: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrPatientNotFound, id)
	}
	return nil
}

func (s *Service) getPatient(ctx context.Context, id int64) (*stores.Patient, error) {
	patient, err := s.store.GetPatient(ctx, id)
	if err != nil {
		if stores.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %d: %w", ErrPatientNotFound, id, err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}
