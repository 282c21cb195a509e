package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cityhospital/hms/pkg/auth"
	"github.com/cityhospital/hms/pkg/billing"
	"github.com/cityhospital/hms/pkg/config"
	"github.com/cityhospital/hms/pkg/hospital"
	"github.com/cityhospital/hms/pkg/policy"
	"github.com/cityhospital/hms/pkg/stores"
	"github.com/cityhospital/hms/pkg/telemetry"
)

// session is everything a store-touching command needs. It owns the single
// store connection for the life of the command.
type session struct {
	ctx   context.Context
	cfg   *config.Config
	tel   *telemetry.Telemetry
	store *stores.SQLiteStore
	authz *policy.Engine
	svc   *hospital.Service
}

// loadConfig reads the config file, applies flag overrides and validates
// the result.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openSession loads configuration, checks credentials and opens the store.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	ctx = tel.WithContext(ctx)

	actor, err := authenticate(ctx, cfg.Auth, tel)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	ctx = policy.WithActor(ctx, actor)

	authz, err := policy.NewEngine(tel.Logger)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	if err := authz.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database, tel)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	if cfg.Database.ResetOnStart {
		if err := resetOnStart(ctx, store, authz); err != nil {
			_ = store.Close()
			_ = tel.Shutdown(context.Background())
			return nil, err
		}
	}

	calc, err := billing.NewCalculator(cfg.Billing)
	if err != nil {
		_ = store.Close()
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	calc.WithTelemetry(tel)

	svc := hospital.NewService(store, calc, hospital.ContactFromConfig(cfg.Hospital)).
		WithAuthorizer(authz)

	return &session{
		ctx:   ctx,
		cfg:   cfg,
		tel:   tel,
		store: store,
		authz: authz,
		svc:   svc,
	}, nil
}

// authenticate verifies the supplied credentials and returns the actor
// policies see. With auth disabled the local operator acts as admin.
func authenticate(ctx context.Context, cfg config.AuthConfig, tel *telemetry.Telemetry) (policy.Actor, error) {
	authn := auth.NewAuthenticator(cfg).WithTelemetry(tel)
	if !authn.Enabled() {
		return policy.Actor{Role: policy.RoleAdmin}, nil
	}

	user := firstNonEmpty(username, os.Getenv("HMS_USERNAME"))
	pass := firstNonEmpty(password, os.Getenv("HMS_PASSWORD"))
	if user == "" || pass == "" {
		return policy.Actor{}, errors.New("authentication required: pass --username and --password")
	}
	if err := authn.Verify(ctx, user, pass); err != nil {
		return policy.Actor{}, err
	}

	for _, u := range cfg.Users {
		if u.Username != user {
			continue
		}
		role, err := policy.ParseRole(u.Role)
		if err != nil {
			return policy.Actor{}, fmt.Errorf("user %s: %w", user, err)
		}
		return policy.Actor{Username: user, Role: role}, nil
	}
	return policy.Actor{}, auth.ErrInvalidCredentials
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, tel *telemetry.Telemetry) (*stores.SQLiteStore, error) {
	if cfg.Path != stores.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{
		Path:        cfg.Path,
		BusyTimeout: cfg.BusyTimeout,
		JournalMode: cfg.JournalMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	store.WithTelemetry(tel)

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Debug().Str("path", cfg.Path).Msg("Opened record store")
	return store, nil
}

// resetOnStart applies database.reset_on_start. The reset is subject to the
// same policy as "hms reset": a non-admin session keeps its records and
// carries on.
func resetOnStart(ctx context.Context, store *stores.SQLiteStore, authz *policy.Engine) error {
	if err := authz.Authorize(ctx, policy.OpReset, nil); err != nil {
		if errors.Is(err, policy.ErrDenied) {
			log.Warn().Err(err).Msg("Skipping reset on start")
			return nil
		}
		return err
	}

	log.Warn().Str("path", store.Path()).Msg("Resetting database on start")
	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// Close releases the store and flushes telemetry.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}

	if dumpMetrics {
		if err := s.tel.Metrics.WriteText(os.Stderr); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics")
		}
	}

	if err := s.tel.Shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// withSession wraps a command body that needs an open store.
func withSession(fn func(s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		return fn(s, cmd, args)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
