package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	eng, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	want := []string{"access-control", "appointment-schedule", "patient-record"}
	if len(policies) != len(want) {
		t.Fatalf("expected %d built-in policies, got %d", len(want), len(policies))
	}
	for i, p := range policies {
		if p.Name != want[i] {
			t.Errorf("policy %d: expected %s, got %s", i, want[i], p.Name)
		}
	}
}

func TestAccessControl(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name      string
		role      Role
		operation string
		allowed   bool
	}{
		{"admin resets", RoleAdmin, OpReset, true},
		{"admin execs", RoleAdmin, OpExec, true},
		{"receptionist resets", RoleReceptionist, OpReset, false},
		{"receptionist execs", RoleReceptionist, OpExec, false},
		{"receptionist queries", RoleReceptionist, OpQuery, true},
		{"receptionist registers", RoleReceptionist, OpRegisterPatient, true},
		{"anonymous resets", "", OpReset, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := eng.Evaluate(context.Background(), Input{
				Actor:     Actor{Username: "desk", Role: tt.role},
				Operation: tt.operation,
			})
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if decision.Allowed != tt.allowed {
				t.Errorf("expected allowed=%v, got %v (violations: %v)", tt.allowed, decision.Allowed, decision.Violations)
			}
			if !tt.allowed && (len(decision.Violations) != 1 || decision.Violations[0].Policy != "access-control") {
				t.Errorf("expected one access-control violation, got %v", decision.Violations)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	eng := newTestEngine(t)

	ctx := WithActor(context.Background(), Actor{Username: "desk1", Role: RoleReceptionist})
	err := eng.Authorize(ctx, OpReset, nil)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}

	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *DeniedError, got %T", err)
	}
	if denied.Operation != OpReset {
		t.Errorf("expected operation %s, got %s", OpReset, denied.Operation)
	}
	if want := "reset denied: reset requires the admin role"; err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	ctx = WithActor(context.Background(), Actor{Username: "root", Role: RoleAdmin})
	if err := eng.Authorize(ctx, OpReset, nil); err != nil {
		t.Errorf("expected admin reset to be allowed, got %v", err)
	}
}

func TestAppointmentInThePastWarns(t *testing.T) {
	eng := newTestEngine(t)

	record := map[string]string{"patient_id": "1", "date": "2000-01-01", "time": "10:30"}
	decision, err := eng.Evaluate(context.Background(), Input{Operation: OpBookAppointment, Record: record})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("warnings must not block: %v", decision.Violations)
	}
	if len(decision.Warnings) != 1 || decision.Warnings[0].Severity != SeverityWarning {
		t.Fatalf("expected one warning, got %v", decision.Warnings)
	}
	if decision.Warnings[0].Message != "appointment date 2000-01-01 is in the past" {
		t.Errorf("unexpected message: %s", decision.Warnings[0].Message)
	}

	record["date"] = "2999-01-01"
	decision, err = eng.Evaluate(context.Background(), Input{Operation: OpBookAppointment, Record: record})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(decision.Warnings) != 0 {
		t.Errorf("expected no warnings for a future date, got %v", decision.Warnings)
	}
}

func TestFutureBirthDateWarns(t *testing.T) {
	eng := newTestEngine(t)

	decision, err := eng.Evaluate(context.Background(), Input{
		Operation: OpRegisterPatient,
		Record:    map[string]string{"name": "Baby", "dob": "2999-01-01"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !decision.Allowed || len(decision.Warnings) != 1 {
		t.Fatalf("expected allowed with one warning, got %+v", decision)
	}
}

func TestDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)

	if err := eng.DisablePolicy("access-control"); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}
	if err := eng.Authorize(context.Background(), OpExec, nil); err != nil {
		t.Errorf("expected exec to be allowed with access-control disabled, got %v", err)
	}

	if err := eng.EnablePolicy("access-control"); err != nil {
		t.Fatalf("EnablePolicy failed: %v", err)
	}
	if err := eng.Authorize(context.Background(), OpExec, nil); !errors.Is(err, ErrDenied) {
		t.Errorf("expected ErrDenied, got %v", err)
	}

	if err := eng.DisablePolicy("missing"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestLoadPolicies(t *testing.T) {
	dir := t.TempDir()

	custom := `# Blocks discharges outside an admin session
package hms.custom

import rego.v1

deny contains msg if {
	input.operation == "discharge_patient"
	input.actor.role != "admin"
	msg := "discharge requires an admin"
}
`
	if err := os.WriteFile(filepath.Join(dir, "discharge.rego"), []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	p, err := eng.GetPolicy("discharge")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if p.Description != "Blocks discharges outside an admin session" {
		t.Errorf("unexpected description: %q", p.Description)
	}

	// Plain string members take the file default severity, which does not block.
	decision, err := eng.Evaluate(context.Background(), Input{Operation: "discharge_patient"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !decision.Allowed || len(decision.Warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", decision)
	}
}

func TestLoadJSONPolicyBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-query.json")
	doc := `{
  "name": "no-query",
  "severity": "error",
  "rego": "package hms.noquery\n\nimport rego.v1\n\ndeny contains \"raw queries are disabled\" if input.operation == \"query\"\n"
}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{path}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	err := eng.Authorize(context.Background(), OpQuery, nil)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

func TestLoadPoliciesInvalidRego(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.rego")
	if err := os.WriteFile(path, []byte("package hms.broken\n\ndeny contains if {"), 0o600); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{path}); err == nil {
		t.Fatal("expected compile error")
	}

	if err := eng.LoadPolicies(context.Background(), []string{filepath.Join(t.TempDir(), "missing.rego")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"", RoleReceptionist, true},
		{"receptionist", RoleReceptionist, true},
		{"Admin", RoleAdmin, true},
		{"doctor", "", false},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseRole(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
