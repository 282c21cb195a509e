package hospital

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityhospital/hms/pkg/billing"
	"github.com/cityhospital/hms/pkg/config"
	"github.com/cityhospital/hms/pkg/policy"
	"github.com/cityhospital/hms/pkg/stores"
	"github.com/cityhospital/hms/pkg/telemetry"
)

func newTestStore(t *testing.T) *stores.SQLiteStore {
	t.Helper()

	store, err := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newTestService(t *testing.T) (*Service, *stores.SQLiteStore) {
	t.Helper()

	cfg := config.Default()
	calc, err := billing.NewCalculator(cfg.Billing)
	require.NoError(t, err)

	store := newTestStore(t)
	return NewService(store, calc, ContactFromConfig(cfg.Hospital)), store
}

func ashaRao() PatientForm {
	return PatientForm{
		Name:     "Asha Rao",
		DOB:      "1990-01-01",
		Gender:   "Female",
		Problem:  "Fever",
		MobileNo: "9998887777",
	}
}

func drMehta() StaffForm {
	return StaffForm{
		Name:            "Dr. Mehta",
		Age:             "45",
		Gender:          "Male",
		Specialization:  "Cardiology",
		LanguagesSpoken: "English, Hindi",
		MobileNo:        "9876543210",
		Email:           "mehta@cityhospital.com",
		Schedule:        "Mon-Fri 9-5",
	}
}

func TestRegisterPatient(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	patient, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)
	assert.Equal(t, int64(1), patient.ID)

	rows, err := store.Query(ctx, "SELECT * FROM patients")
	require.NoError(t, err)
	assert.Equal(t, []stores.Row{{int64(1), "Asha Rao", "1990-01-01", "Female", "Fever", "9998887777"}}, rows)
}

func TestRegisterPatientTrimsInput(t *testing.T) {
	svc, _ := newTestService(t)

	form := ashaRao()
	form.Name = "  Asha Rao  "
	patient, err := svc.RegisterPatient(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", patient.Name)
}

func TestRegisterPatientValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *PatientForm)
		field  string
		rule   string
	}{
		{"missing name", func(f *PatientForm) { f.Name = "" }, "name", "required"},
		{"blank problem", func(f *PatientForm) { f.Problem = "   " }, "problem", "required"},
		{"missing mobile", func(f *PatientForm) { f.MobileNo = "" }, "mobile_no", "required"},
		{"bad gender", func(f *PatientForm) { f.Gender = "Unknown" }, "gender", "oneof"},
		{"bad date", func(f *PatientForm) { f.DOB = "01/01/1990" }, "dob", "datetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()

			form := ashaRao()
			tt.mutate(&form)

			_, err := svc.RegisterPatient(ctx, form)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.rule, verr.Fields[0].Rule)

			patients, err := store.ListPatients(ctx)
			require.NoError(t, err)
			assert.Empty(t, patients)
		})
	}
}

func TestValidationErrorListsAllMissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RegisterPatient(context.Background(), PatientForm{Gender: "Male"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "dob", "problem", "mobile_no"}, verr.Missing())
	assert.Contains(t, err.Error(), "name is required")
}

func TestRegisterStaff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.RegisterStaff(ctx, drMehta())
	require.NoError(t, err)
	assert.Equal(t, int64(1), member.ID)
	assert.Equal(t, 45, member.Age)

	staff, err := svc.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Cardiology", staff[0].Specialization)
	assert.Equal(t, "mehta@cityhospital.com", staff[0].Email)
}

func TestRegisterStaffValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	form := drMehta()
	form.Schedule = ""
	form.Email = "not-an-email"
	_, err := svc.RegisterStaff(ctx, form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	form = drMehta()
	form.Age = "forty"
	_, err = svc.RegisterStaff(ctx, form)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "numeric", verr.Fields[0].Rule)

	form = drMehta()
	form.Age = "45.5"
	_, err = svc.RegisterStaff(ctx, form)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	appt, err := svc.BookAppointment(ctx, AppointmentForm{
		PatientID: "1",
		Date:      "2024-05-01",
		Time:      "10:30",
		Details:   "Follow-up",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), appt.ID)
	assert.Equal(t, int64(1), appt.PatientID)

	appts, err := svc.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestBookAppointmentRejected(t *testing.T) {
	valid := AppointmentForm{PatientID: "999", Date: "2024-05-01", Time: "10:30", Details: "Checkup"}

	tests := []struct {
		name    string
		mutate  func(f *AppointmentForm)
		wantErr error
	}{
		{"unknown patient", func(f *AppointmentForm) {}, ErrPatientNotFound},
		{"non-numeric patient id", func(f *AppointmentForm) { f.PatientID = "abc" }, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()

			form := valid
			tt.mutate(&form)
			_, err := svc.BookAppointment(ctx, form)
			assert.ErrorIs(t, err, tt.wantErr)

			rows, err := store.Query(ctx, "SELECT * FROM appointments")
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestBookAppointmentValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.BookAppointment(context.Background(), AppointmentForm{
		PatientID: "1",
		Date:      "2024-05-01",
		Time:      "half past ten",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	rules := map[string]string{}
	for _, f := range verr.Fields {
		rules[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{"time": "datetime", "details": "required"}, rules)
}

func TestCancelAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)
	_, err = svc.BookAppointment(ctx, AppointmentForm{PatientID: "1", Date: "2024-05-01", Time: "10:30", Details: "Checkup"})
	require.NoError(t, err)

	require.NoError(t, svc.CancelAppointment(ctx, "1"))

	err = svc.CancelAppointment(ctx, "1")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.True(t, stores.IsNotFound(err))

	var verr *ValidationError
	assert.ErrorAs(t, svc.CancelAppointment(ctx, ""), &verr)
	assert.ErrorIs(t, svc.CancelAppointment(ctx, "one"), ErrInvalidInput)
}

func TestViewPatient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)
	_, err = svc.BookAppointment(ctx, AppointmentForm{PatientID: "1", Date: "2024-05-01", Time: "10:30", Details: "Checkup"})
	require.NoError(t, err)

	record, err := svc.ViewPatient(ctx, " 1 ")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", record.Patient.Name)
	require.Len(t, record.Appointments, 1)
	assert.Equal(t, "Checkup", record.Appointments[0].Details)

	_, err = svc.ViewPatient(ctx, "2")
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = svc.ViewPatient(ctx, "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDischargePatientCascades(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)
	_, err = svc.BookAppointment(ctx, AppointmentForm{PatientID: "1", Date: "2024-05-01", Time: "10:30", Details: "Checkup"})
	require.NoError(t, err)

	patient, err := svc.DischargePatient(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", patient.Name)

	rows, err := store.Query(ctx, "SELECT * FROM appointments")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = svc.DischargePatient(ctx, "1")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestListPatients(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	patients, err := svc.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)

	_, err = svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	patients, err = svc.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestBillPatient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	receipt, err := svc.BillPatient(ctx, BillingForm{PatientID: "1", Services: "Consultation", Amount: "1000"})
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, receipt.Total, 1e-9)
	assert.Equal(t, int64(1), receipt.PatientID)
}

func TestBillPatientRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	tests := []struct {
		name    string
		form    BillingForm
		wantErr error
	}{
		{"non-numeric amount", BillingForm{PatientID: "1", Services: "X-Ray", Amount: "lots"}, ErrInvalidInput},
		{"negative amount", BillingForm{PatientID: "1", Services: "X-Ray", Amount: "-5"}, ErrInvalidInput},
		{"non-finite amount", BillingForm{PatientID: "1", Services: "X-Ray", Amount: "NaN"}, ErrInvalidInput},
		{"unknown patient", BillingForm{PatientID: "7", Services: "X-Ray", Amount: "10"}, ErrPatientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BillPatient(ctx, tt.form)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = svc.BillPatient(ctx, BillingForm{PatientID: "1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"services", "amount"}, verr.Missing())
}

func TestBillPatientWithoutCalculator(t *testing.T) {
	svc := NewService(newTestStore(t), nil, ContactInfo{})
	_, err := svc.BillPatient(context.Background(), BillingForm{PatientID: "1", Services: "X", Amount: "1"})
	assert.Error(t, err)
}

func TestContact(t *testing.T) {
	svc, _ := newTestService(t)

	contact := svc.Contact()
	assert.Equal(t, "City Hospital", contact.Name)

	var buf bytes.Buffer
	require.NoError(t, contact.Format(&buf))
	assert.Contains(t, buf.String(), "Phone: (123) 456-7890")
	assert.Contains(t, buf.String(), "Website: www.cityhospital.com")
}

func TestParseID(t *testing.T) {
	id, err := ParseID("patient_id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseID("patient_id", "4.2")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "patient_id must be a valid number")

	_, err = ParseID("patient_id", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"patient_id"}, verr.Missing())
}

type failingStore struct {
	stores.Store
	err error
}

func (f failingStore) ListPatients(context.Context) ([]*stores.Patient, error) {
	return nil, f.err
}

func (f failingStore) PatientExists(context.Context, int64) (bool, error) {
	return false, f.err
}

func TestStoreErrorsPassThrough(t *testing.T) {
	storeErr := stores.NewValidationError("boom")
	svc := NewService(failingStore{err: storeErr}, nil, ContactInfo{})
	ctx := context.Background()

	_, err := svc.ListPatients(ctx)
	assert.True(t, errors.Is(err, storeErr))

	_, err = svc.BookAppointment(ctx, AppointmentForm{PatientID: "1", Date: "2024-05-01", Time: "10:30", Details: "x"})
	assert.True(t, stores.IsValidation(err))
	assert.False(t, errors.Is(err, ErrPatientNotFound))
}

func TestOperationsAreTraced(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	var logs bytes.Buffer
	cfg.Logging.Format = "json"
	tel, err := telemetry.NewTelemetryWithLogger(cfg, telemetry.NewLoggerWithWriter(cfg.Logging, &logs))
	require.NoError(t, err)

	svc, _ := newTestService(t)
	ctx := tel.WithContext(context.Background())

	_, err = svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	assert.Contains(t, logs.String(), `"operation":"register_patient"`)
	assert.Contains(t, logs.String(), `"patient_id":1`)
}

type denyAuthorizer struct {
	operation string
	calls     []string
}

func (d *denyAuthorizer) Authorize(_ context.Context, operation string, _ any) error {
	d.calls = append(d.calls, operation)
	if operation == d.operation {
		return policy.ErrDenied
	}
	return nil
}

func TestAuthorizerBlocksWrites(t *testing.T) {
	svc, store := newTestService(t)
	authz := &denyAuthorizer{operation: "discharge_patient"}
	svc.WithAuthorizer(authz)
	ctx := context.Background()

	_, err := svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	_, err = svc.DischargePatient(ctx, "1")
	assert.ErrorIs(t, err, policy.ErrDenied)

	exists, err := store.PatientExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []string{"register_patient", "discharge_patient"}, authz.calls)
}

func TestPolicyWarningsDoNotBlock(t *testing.T) {
	eng, err := policy.NewEngine(nil)
	require.NoError(t, err)

	svc, _ := newTestService(t)
	svc.WithAuthorizer(eng)
	ctx := policy.WithActor(context.Background(), policy.Actor{Username: "desk1", Role: policy.RoleReceptionist})

	_, err = svc.RegisterPatient(ctx, ashaRao())
	require.NoError(t, err)

	appt, err := svc.BookAppointment(ctx, AppointmentForm{PatientID: "1", Date: "2000-01-01", Time: "09:00", Details: "Late entry"})
	require.NoError(t, err)
	assert.Equal(t, "2000-01-01", appt.Date)
}
