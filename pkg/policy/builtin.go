package policy

// Operation names checked by the built-in policies.
const (
	OpReset           = "reset"
	OpExec            = "exec"
	OpQuery           = "query"
	OpRegisterPatient = "register_patient"
	OpBookAppointment = "book_appointment"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		accessControlPolicy(),
		appointmentSchedulePolicy(),
		patientRecordPolicy(),
	}
}

// accessControlPolicy keeps destructive operations with admins.
func accessControlPolicy() Policy {
	return Policy{
		Name:        "access-control",
		Description: "Only admins may reset the database or run raw mutating SQL",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"access"},
		Rego: `package hms.access

import rego.v1

admin_only := {"reset", "exec"}

deny contains violation if {
	admin_only[input.operation]
	input.actor.role != "admin"
	violation := {
		"message": sprintf("%s requires the admin role", [input.operation]),
		"severity": "error",
	}
}
`,
	}
}

// appointmentSchedulePolicy flags appointments whose day has already passed.
func appointmentSchedulePolicy() Policy {
	return Policy{
		Name:        "appointment-schedule",
		Description: "Warns when an appointment is booked for a day that has passed",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"appointments"},
		Rego: `package hms.appointments

import rego.v1

day_ns := ((24 * 60) * 60) * 1000000000

deny contains violation if {
	input.operation == "book_appointment"
	booked := time.parse_ns("2006-01-02", input.record.date)
	booked + day_ns < time.now_ns()
	violation := {
		"message": sprintf("appointment date %s is in the past", [input.record.date]),
		"severity": "warning",
	}
}
`,
	}
}

// patientRecordPolicy flags implausible patient details.
func patientRecordPolicy() Policy {
	return Policy{
		Name:        "patient-record",
		Description: "Warns about a date of birth in the future",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"patients"},
		Rego: `package hms.patients

import rego.v1

deny contains violation if {
	input.operation == "register_patient"
	time.parse_ns("2006-01-02", input.record.dob) > time.now_ns()
	violation := {
		"message": sprintf("date of birth %s is in the future", [input.record.dob]),
		"severity": "warning",
	}
}
`,
	}
}
