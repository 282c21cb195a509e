package auth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/cityhospital/hms/pkg/config"
	"github.com/cityhospital/hms/pkg/telemetry"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticator verifies usernames and passwords against a credential store.
type Authenticator struct {
	users   map[string]string
	hasher  PasswordHasher
	enabled bool

	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator builds an Authenticator from the auth section of the
// configuration.
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = u.PasswordHash
	}

	return &Authenticator{
		users:   users,
		hasher:  NewBcryptHasher(bcrypt.DefaultCost),
		enabled: cfg.Enabled,
		logger:  telemetry.NopLogger(),
	}
}

// WithTelemetry attaches logging and attempt metrics.
func (a *Authenticator) WithTelemetry(tel *telemetry.Telemetry) *Authenticator {
	if tel != nil {
		a.logger = tel.Logger.NewComponentLogger("auth")
		a.metrics = tel.Metrics
	}
	return a
}

// Enabled reports whether credentials are required.
func (a *Authenticator) Enabled() bool {
	return a.enabled
}

// Verify checks username and password. It returns ErrInvalidCredentials for
// an unknown user or a mismatched password.
func (a *Authenticator) Verify(ctx context.Context, username, password string) error {
	hash, ok := a.users[username]
	if !ok {
		// Spend the same bcrypt work as a real comparison
		_ = a.hasher.Compare(a.dummy(), password)
		a.record(username, false)
		return ErrInvalidCredentials
	}

	if err := a.hasher.Compare(hash, password); err != nil {
		a.record(username, false)
		return ErrInvalidCredentials
	}

	a.record(username, true)
	return nil
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("hms-unknown-user"), bcrypt.DefaultCost)
		if err == nil {
			a.dummyHash = string(hash)
		}
	})
	return a.dummyHash
}

func (a *Authenticator) record(username string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
		a.logger.WithField("username", username).Warn("login failed")
	} else {
		a.logger.WithField("username", username).Debug("login succeeded")
	}
	if a.metrics != nil {
		a.metrics.RecordAuthAttempt(result)
	}
}
