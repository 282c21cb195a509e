package stores

import (
	"context"
)

// Table names owned by the record store.
const (
	TablePatients     = "patients"
	TableStaff        = "staff"
	TableAppointments = "appointments"
)

// Patient represents a registered patient.
type Patient struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	DOB      string `db:"dob" json:"dob"` // YYYY-MM-DD
	Gender   string `db:"gender" json:"gender"`
	Problem  string `db:"problem" json:"problem"`
	MobileNo string `db:"mobile_no" json:"mobile_no"`
}

// StaffMember represents a member of hospital staff.
type StaffMember struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Age             int    `db:"age" json:"age"`
	Gender          string `db:"gender" json:"gender"`
	Specialization  string `db:"specialization" json:"specialization"`
	LanguagesSpoken string `db:"languages_spoken" json:"languages_spoken"`
	MobileNo        string `db:"mobile_no" json:"mobile_no"`
	Email           string `db:"email" json:"email"`
	Schedule        string `db:"schedule" json:"schedule"`
}

// Appointment represents a booked appointment for an existing patient.
type Appointment struct {
	ID        int64  `db:"id" json:"id"`
	PatientID int64  `db:"patient_id" json:"patient_id"`
	Date      string `db:"date" json:"date"` // YYYY-MM-DD
	Time      string `db:"time" json:"time"` // HH:MM
	Details   string `db:"details" json:"details"`
}

// Row is a single result row of a raw query. Values appear in the
// statement's column order.
type Row []any

// Result describes the effect of a mutating statement.
type Result struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id"`
}

// Store defines the interface for the record store.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Reset(ctx context.Context) error
	Close() error

	// Raw statements, committed per call
	Execute(ctx context.Context, statement string, args ...any) (Result, error)
	Query(ctx context.Context, statement string, args ...any) ([]Row, error)

	// Patient operations
	AddPatient(ctx context.Context, patient *Patient) error
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	PatientExists(ctx context.Context, id int64) (bool, error)
	ListPatients(ctx context.Context) ([]*Patient, error)
	DeletePatient(ctx context.Context, id int64) error

	// Staff operations
	AddStaff(ctx context.Context, member *StaffMember) error
	ListStaff(ctx context.Context) ([]*StaffMember, error)

	// Appointment operations
	AddAppointment(ctx context.Context, appt *Appointment) error
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]*Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error

	// Utility
	HealthCheck(ctx context.Context) error
}
