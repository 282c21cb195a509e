// Package policy decides, with Open Policy Agent, whether a front-desk
// operation may run.
//
// Every policy is a Rego module that defines a deny set. Each member is
// either a message string or an object with "message" and "severity" keys.
// Members with severity "error" or "critical" block the operation; the
// rest are reported as warnings.
//
// The input document is:
//
//	{
//	  "actor":     {"username": "admin", "role": "admin"},
//	  "operation": "book_appointment",
//	  "record":    {"patient_id": "1", "date": "2024-05-01", ...}
//	}
//
// The built-in policies restrict reset and raw exec to admins and warn
// about appointments booked in the past or birth dates in the future.
// Extra policies are loaded from .rego or .json files with LoadPolicies.
//
// Usage:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//
//	ctx = policy.WithActor(ctx, policy.Actor{Username: "desk1", Role: policy.RoleReceptionist})
//	if err := eng.Authorize(ctx, "reset", nil); err != nil {
//	    // errors.Is(err, policy.ErrDenied)
//	}
package policy
