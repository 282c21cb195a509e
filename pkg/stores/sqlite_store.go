package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/cityhospital/hms/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const (
	insertPatientSQL = `
		INSERT INTO patients (name, dob, gender, problem, mobile_no)
		VALUES (?, ?, ?, ?, ?)
	`
	insertStaffSQL = `
		INSERT INTO staff (name, age, gender, specialization, languages_spoken, mobile_no, email, schedule)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	insertAppointmentSQL = `
		INSERT INTO appointments (patient_id, date, time, details)
		VALUES (?, ?, ?, ?)
	`

	selectPatientsSQL = `
		SELECT id, name, dob, gender, problem, mobile_no
		FROM patients
	`
	selectStaffSQL = `
		SELECT id, name, age, gender, specialization,
			   COALESCE(languages_spoken, '') AS languages_spoken,
			   mobile_no,
			   COALESCE(email, '') AS email,
			   COALESCE(schedule, '') AS schedule
		FROM staff
	`
	selectAppointmentsSQL = `
		SELECT id, patient_id, date, time, details
		FROM appointments
	`
)

// SQLiteStore implements the Store interface using SQLite. It owns exactly
// one connection, so a ":memory:" database lives as long as the store.
type SQLiteStore struct {
	db     *sqlx.DB
	path   string
	cfg    Config
	tel    *telemetry.Telemetry
	closed bool
}

// Config holds SQLite store configuration
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string

	// BusyTimeout is how long the engine waits on a locked file.
	BusyTimeout time.Duration

	// JournalMode is applied to file databases (default WAL).
	JournalMode string
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// WithTelemetry attaches tracing and metrics to every store operation.
func (s *SQLiteStore) WithTelemetry(tel *telemetry.Telemetry) *SQLiteStore {
	s.tel = tel
	return s
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Init opens the database file, creating it if needed, and enables foreign
// key enforcement on the single connection.
func (s *SQLiteStore) Init(ctx context.Context) error {
	db, err := sqlx.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One connection for the life of the store. PRAGMAs are per connection
	// and an in-memory database vanishes with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open database %s: %w", s.path, err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.cfg.BusyTimeout.Milliseconds()),
	}
	if s.path != MemoryPath {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA journal_mode = %s", s.cfg.JournalMode))
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s.db = db
	s.closed = false
	return nil
}

// Close closes the database connection. Any later operation fails with a
// closed-class StoreError.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ready reports whether the store can run statements.
func (s *SQLiteStore) ready() *StoreError {
	if s.closed {
		return errClosed()
	}
	if s.db == nil {
		return errNotInitialized()
	}
	return nil
}

// newMigrate builds a migrate instance over the store's connection.
func (s *SQLiteStore) newMigrate() (*migrate.Migrate, error) {
	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlitemigrate.WithInstance(s.db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// Migrate creates any missing tables. Existing rows are never touched.
func (s *SQLiteStore) Migrate(ctx context.Context) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("migrate")
	}
	_, done := s.track(ctx, "migrate")
	defer func() { done(err) }()

	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Reset drops patients, staff and appointments and recreates them empty.
// Identifier sequences restart at 1.
func (s *SQLiteStore) Reset(ctx context.Context) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("reset")
	}
	_, done := s.track(ctx, "reset")
	defer func() { done(err) }()

	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to recreate tables: %w", err)
	}

	return nil
}

// Execute runs a mutating statement. Each call commits on its own.
func (s *SQLiteStore) Execute(ctx context.Context, statement string, args ...any) (res Result, err error) {
	if err := s.ready(); err != nil {
		return Result{}, err.WithOp("execute")
	}
	ctx, done := s.track(ctx, "execute")
	defer func() { done(err) }()

	return s.exec(ctx, "execute", statement, args...)
}

func (s *SQLiteStore) exec(ctx context.Context, op, statement string, args ...any) (Result, error) {
	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return Result{}, classify(op, "failed to execute statement", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return Result{}, classify(op, "failed to get rows affected", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Result{}, classify(op, "failed to get last insert ID", err)
	}

	return Result{RowsAffected: rows, LastInsertID: id}, nil
}

// Query runs a read-only statement and returns every row in order. An empty
// result is an empty slice, not an error. A statement that writes fails with
// a validation-class StoreError and changes nothing.
func (s *SQLiteStore) Query(ctx context.Context, statement string, args ...any) (out []Row, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("query")
	}
	ctx, done := s.track(ctx, "query")
	defer func() { done(err) }()

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, classify("query", "failed to acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, classify("query", "failed to enter read-only mode", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")
	}()

	// Rolled back unconditionally, so a statement that lifts query_only
	// itself still leaves no trace.
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify("query", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryxContext(ctx, statement, args...)
	if err != nil {
		return nil, classifyQuery("failed to run query", err)
	}
	defer rows.Close()

	out = []Row{}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, classifyQuery("failed to scan row", err)
		}
		out = append(out, Row(values))
	}

	if err := rows.Err(); err != nil {
		return nil, classifyQuery("error iterating rows", err)
	}

	return out, nil
}

// AddPatient inserts a patient and stores the assigned ID in patient.ID.
func (s *SQLiteStore) AddPatient(ctx context.Context, patient *Patient) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("add_patient")
	}
	if patient == nil {
		return NewValidationError("patient is required").WithOp("add_patient")
	}
	ctx, done := s.track(ctx, "add_patient")
	defer func() { done(err) }()

	res, err := s.exec(ctx, "add_patient", insertPatientSQL,
		patient.Name,
		patient.DOB,
		patient.Gender,
		patient.Problem,
		patient.MobileNo,
	)
	if err != nil {
		return err
	}

	patient.ID = res.LastInsertID
	s.recordCreated(TablePatients)
	return nil
}

// GetPatient retrieves a patient by ID
func (s *SQLiteStore) GetPatient(ctx context.Context, id int64) (p *Patient, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("get_patient")
	}
	ctx, done := s.track(ctx, "get_patient")
	defer func() { done(err) }()

	patient := &Patient{}
	err = s.db.GetContext(ctx, patient, selectPatientsSQL+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError(fmt.Sprintf("patient not found: %d", id)).WithOp("get_patient")
	}
	if err != nil {
		return nil, classify("get_patient", "failed to get patient", err)
	}

	return patient, nil
}

// PatientExists reports whether a patient with the given ID is registered.
func (s *SQLiteStore) PatientExists(ctx context.Context, id int64) (ok bool, err error) {
	if err := s.ready(); err != nil {
		return false, err.WithOp("patient_exists")
	}
	ctx, done := s.track(ctx, "patient_exists")
	defer func() { done(err) }()

	return s.patientExists(ctx, id)
}

func (s *SQLiteStore) patientExists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM patients WHERE id = ?`, id); err != nil {
		return false, classify("patient_exists", "failed to look up patient", err)
	}
	return count > 0, nil
}

// ListPatients lists all patients in ID order
func (s *SQLiteStore) ListPatients(ctx context.Context) (out []*Patient, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("list_patients")
	}
	ctx, done := s.track(ctx, "list_patients")
	defer func() { done(err) }()

	patients := []*Patient{}
	if err := s.db.SelectContext(ctx, &patients, selectPatientsSQL+" ORDER BY id ASC"); err != nil {
		return nil, classify("list_patients", "failed to list patients", err)
	}

	return patients, nil
}

// DeletePatient discharges a patient. Their appointments are removed by the
// ON DELETE CASCADE on appointments.patient_id.
func (s *SQLiteStore) DeletePatient(ctx context.Context, id int64) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("delete_patient")
	}
	ctx, done := s.track(ctx, "delete_patient")
	defer func() { done(err) }()

	res, err := s.exec(ctx, "delete_patient", `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return err
	}

	if res.RowsAffected == 0 {
		return NewNotFoundError(fmt.Sprintf("patient not found: %d", id)).WithOp("delete_patient")
	}

	s.recordDeleted(TablePatients, res.RowsAffected)
	return nil
}

// AddStaff inserts a staff member and stores the assigned ID in member.ID.
func (s *SQLiteStore) AddStaff(ctx context.Context, member *StaffMember) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("add_staff")
	}
	if member == nil {
		return NewValidationError("staff member is required").WithOp("add_staff")
	}
	ctx, done := s.track(ctx, "add_staff")
	defer func() { done(err) }()

	res, err := s.exec(ctx, "add_staff", insertStaffSQL,
		member.Name,
		member.Age,
		member.Gender,
		member.Specialization,
		member.LanguagesSpoken,
		member.MobileNo,
		member.Email,
		member.Schedule,
	)
	if err != nil {
		return err
	}

	member.ID = res.LastInsertID
	s.recordCreated(TableStaff)
	return nil
}

// ListStaff lists all staff members in ID order
func (s *SQLiteStore) ListStaff(ctx context.Context) (out []*StaffMember, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("list_staff")
	}
	ctx, done := s.track(ctx, "list_staff")
	defer func() { done(err) }()

	staff := []*StaffMember{}
	if err := s.db.SelectContext(ctx, &staff, selectStaffSQL+" ORDER BY id ASC"); err != nil {
		return nil, classify("list_staff", "failed to list staff", err)
	}

	return staff, nil
}

// AddAppointment books an appointment. The patient must already exist; the
// check runs before the insert so no row is written for an unknown patient.
func (s *SQLiteStore) AddAppointment(ctx context.Context, appt *Appointment) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("add_appointment")
	}
	if appt == nil {
		return NewValidationError("appointment is required").WithOp("add_appointment")
	}
	ctx, done := s.track(ctx, "add_appointment")
	defer func() { done(err) }()

	exists, err := s.patientExists(ctx, appt.PatientID)
	if err != nil {
		return err
	}
	if !exists {
		return NewNotFoundError(fmt.Sprintf("patient not found: %d", appt.PatientID)).WithOp("add_appointment")
	}

	res, err := s.exec(ctx, "add_appointment", insertAppointmentSQL,
		appt.PatientID,
		appt.Date,
		appt.Time,
		appt.Details,
	)
	if err != nil {
		return err
	}

	appt.ID = res.LastInsertID
	s.recordCreated(TableAppointments)
	return nil
}

// GetAppointment retrieves an appointment by ID
func (s *SQLiteStore) GetAppointment(ctx context.Context, id int64) (a *Appointment, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("get_appointment")
	}
	ctx, done := s.track(ctx, "get_appointment")
	defer func() { done(err) }()

	appt := &Appointment{}
	err = s.db.GetContext(ctx, appt, selectAppointmentsSQL+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError(fmt.Sprintf("appointment not found: %d", id)).WithOp("get_appointment")
	}
	if err != nil {
		return nil, classify("get_appointment", "failed to get appointment", err)
	}

	return appt, nil
}

// ListAppointments lists all appointments in ID order
func (s *SQLiteStore) ListAppointments(ctx context.Context) (out []*Appointment, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("list_appointments")
	}
	ctx, done := s.track(ctx, "list_appointments")
	defer func() { done(err) }()

	appts := []*Appointment{}
	if err := s.db.SelectContext(ctx, &appts, selectAppointmentsSQL+" ORDER BY id ASC"); err != nil {
		return nil, classify("list_appointments", "failed to list appointments", err)
	}

	return appts, nil
}

// ListAppointmentsByPatient lists a patient's appointments in ID order
func (s *SQLiteStore) ListAppointmentsByPatient(ctx context.Context, patientID int64) (out []*Appointment, err error) {
	if err := s.ready(); err != nil {
		return nil, err.WithOp("list_appointments_by_patient")
	}
	ctx, done := s.track(ctx, "list_appointments_by_patient")
	defer func() { done(err) }()

	appts := []*Appointment{}
	query := selectAppointmentsSQL + " WHERE patient_id = ? ORDER BY id ASC"
	if err := s.db.SelectContext(ctx, &appts, query, patientID); err != nil {
		return nil, classify("list_appointments_by_patient", "failed to list appointments", err)
	}

	return appts, nil
}

// DeleteAppointment cancels an appointment by ID
func (s *SQLiteStore) DeleteAppointment(ctx context.Context, id int64) (err error) {
	if err := s.ready(); err != nil {
		return err.WithOp("delete_appointment")
	}
	ctx, done := s.track(ctx, "delete_appointment")
	defer func() { done(err) }()

	res, err := s.exec(ctx, "delete_appointment", `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return err
	}

	if res.RowsAffected == 0 {
		return NewNotFoundError(fmt.Sprintf("appointment not found: %d", id)).WithOp("delete_appointment")
	}

	s.recordDeleted(TableAppointments, res.RowsAffected)
	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err.WithOp("health_check")
	}
	return s.db.PingContext(ctx)
}

// track opens a span for op and returns a func that closes it and records
// the outcome. Without telemetry attached both are no-ops.
func (s *SQLiteStore) track(ctx context.Context, op string) (context.Context, func(error)) {
	if s.tel == nil {
		return ctx, func(error) {}
	}

	ctx, span := s.tel.Tracer.StartStoreSpan(ctx, op, s.path)
	timer := telemetry.NewTimer()

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			code := ""
			var se *StoreError
			if errors.As(err, &se) {
				code = se.Code
			}
			s.tel.Metrics.RecordError(string(Class(err)), code)
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		s.tel.Metrics.RecordStoreOperation(op, status, timer.Duration())
		span.End()
	}
}

func (s *SQLiteStore) recordCreated(table string) {
	if s.tel != nil {
		s.tel.Metrics.RecordRecordsCreated(table, 1)
	}
}

func (s *SQLiteStore) recordDeleted(table string, n int64) {
	if s.tel != nil {
		s.tel.Metrics.RecordRecordsDeleted(table, n)
	}
}

var _ Store = (*SQLiteStore)(nil)
