// Package hospital implements the front-desk workflows on top of the record
// store.
//
// Callers hand in string-valued forms, the way a receptionist types them.
// The service validates them, converts IDs and numbers, and checks that the
// referenced patient exists before it writes anything:
//
//	svc := hospital.NewService(store, calc, hospital.ContactFromConfig(cfg.Hospital))
//
//	patient, err := svc.RegisterPatient(ctx, hospital.PatientForm{
//	    Name:     "Asha Rao",
//	    DOB:      "1990-01-01",
//	    Gender:   "Female",
//	    Problem:  "Fever",
//	    MobileNo: "9998887777",
//	})
//
// Failures fall into three groups. A *ValidationError lists missing or
// malformed fields. ErrInvalidInput marks a value that could not be
// converted, such as a non-numeric ID. Store failures are passed through
// wrapped, so stores.IsNotFound and friends still apply; lookups of unknown
// records additionally match ErrPatientNotFound or ErrAppointmentNotFound.
package hospital
