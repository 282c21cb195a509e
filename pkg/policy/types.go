package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is reported but does not block the operation.
	SeverityWarning Severity = "warning"

	// SeverityError blocks the operation.
	SeverityError Severity = "error"

	// SeverityCritical blocks the operation.
	SeverityCritical Severity = "critical"
)

// blocks reports whether a violation of this severity denies the operation.
func (s Severity) blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// Role is a front-desk user role.
type Role string

const (
	// RoleAdmin may run every operation.
	RoleAdmin Role = "admin"

	// RoleReceptionist runs the day-to-day desk operations.
	RoleReceptionist Role = "receptionist"
)

// ParseRole maps a configured role name to a Role. Empty means receptionist.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleReceptionist:
		return RoleReceptionist, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Policy is a Rego module with its metadata.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity applies to deny members that do not carry their own.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Actor is the user performing an operation.
type Actor struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Input is the document policies are evaluated against.
type Input struct {
	Actor     Actor  `json:"actor"`
	Operation string `json:"operation"`
	Record    any    `json:"record,omitempty"`
}

// Violation is one deny member produced by a policy.
type Violation struct {
	Policy   string   `json:"policy"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Decision is the outcome of evaluating every enabled policy.
type Decision struct {
	// Allowed is false when any violation blocks.
	Allowed bool `json:"allowed"`

	// Violations lists blocking violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists violations that do not block.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// ErrDenied is matched by every *DeniedError.
var ErrDenied = errors.New("operation denied by policy")

// DeniedError is returned by Authorize when a policy blocks an operation.
type DeniedError struct {
	Operation  string
	Violations []Violation
}

// Error implements the error interface.
func (e *DeniedError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%s denied: %s", e.Operation, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrDenied) true.
func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

type actorContextKey struct{}

// WithActor records the current user in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the user recorded by WithActor. Without one the
// actor is anonymous and has no role.
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorContextKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}
