package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cityhospital/hms/pkg/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. HMS_DATABASE_PATH.
const EnvPrefix = "HMS"

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "hms.yaml"

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         filepath.Join("data", "hospital.db"),
			ResetOnStart: false,
			BusyTimeout:  5 * time.Second,
			JournalMode:  "WAL",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Billing: BillingConfig{
			CSTRate:       0.02,
			GSTRate:       0.18,
			Currency:      "Rs.",
			ScriptTimeout: 5 * time.Second,
		},
		Hospital: HospitalConfig{
			Name:    "City Hospital",
			Address: "123 Health St, Wellness City, CA 90210",
			Phone:   "(123) 456-7890",
			Email:   "info@cityhospital.com",
			Website: "www.cityhospital.com",
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads the configuration. With an empty path it looks for hms.yaml in
// the working directory and in $HOME/.config/hms, and falls back to defaults
// when neither exists. An explicit path must exist. HMS_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "hms"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key of def with viper so that AutomaticEnv can
// override keys that are absent from the file.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.reset_on_start", def.Database.ResetOnStart)
	v.SetDefault("database.busy_timeout", def.Database.BusyTimeout)
	v.SetDefault("database.journal_mode", def.Database.JournalMode)

	v.SetDefault("auth.enabled", def.Auth.Enabled)
	v.SetDefault("auth.users", []map[string]string{})

	v.SetDefault("policy.paths", []string{})

	v.SetDefault("billing.cst_rate", def.Billing.CSTRate)
	v.SetDefault("billing.gst_rate", def.Billing.GSTRate)
	v.SetDefault("billing.currency", def.Billing.Currency)
	v.SetDefault("billing.tariff_script", def.Billing.TariffScript)
	v.SetDefault("billing.script_timeout", def.Billing.ScriptTimeout)

	v.SetDefault("hospital.name", def.Hospital.Name)
	v.SetDefault("hospital.address", def.Hospital.Address)
	v.SetDefault("hospital.phone", def.Hospital.Phone)
	v.SetDefault("hospital.email", def.Hospital.Email)
	v.SetDefault("hospital.website", def.Hospital.Website)

	tel := def.Telemetry
	v.SetDefault("telemetry.service_name", tel.ServiceName)
	v.SetDefault("telemetry.service_version", tel.ServiceVersion)
	v.SetDefault("telemetry.environment", tel.Environment)
	v.SetDefault("telemetry.logging.level", tel.Logging.Level)
	v.SetDefault("telemetry.logging.format", tel.Logging.Format)
	v.SetDefault("telemetry.logging.output", tel.Logging.Output)
	v.SetDefault("telemetry.logging.enable_caller", tel.Logging.EnableCaller)
	v.SetDefault("telemetry.logging.time_format", tel.Logging.TimeFormat)
	v.SetDefault("telemetry.tracing.enabled", tel.Tracing.Enabled)
	v.SetDefault("telemetry.tracing.exporter", tel.Tracing.Exporter)
	v.SetDefault("telemetry.tracing.endpoint", tel.Tracing.Endpoint)
	v.SetDefault("telemetry.tracing.sampling_rate", tel.Tracing.SamplingRate)
	v.SetDefault("telemetry.tracing.max_export_batch_size", tel.Tracing.MaxExportBatchSize)
	v.SetDefault("telemetry.tracing.export_timeout", tel.Tracing.ExportTimeout)
	v.SetDefault("telemetry.tracing.insecure", tel.Tracing.Insecure)
	v.SetDefault("telemetry.metrics.enabled", tel.Metrics.Enabled)
	v.SetDefault("telemetry.metrics.namespace", tel.Metrics.Namespace)
	v.SetDefault("telemetry.metrics.histogram_buckets", tel.Metrics.DefaultHistogramBuckets)
}

// Save writes cfg as YAML, creating parent directories. The file holds
// password hashes and is written owner-only.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema and the rules that
// span several sections.
func (c *Config) Validate(ctx context.Context) error {
	if err := NewSchemaRegistry().ValidateAgainstSchema(ctx, SchemaConfig, c); err != nil {
		return err
	}

	if c.Auth.Enabled && len(c.Auth.Users) == 0 {
		return fmt.Errorf("auth is enabled but no users are configured")
	}

	seen := make(map[string]bool, len(c.Auth.Users))
	for _, u := range c.Auth.Users {
		if seen[u.Username] {
			return fmt.Errorf("duplicate auth user %q", u.Username)
		}
		seen[u.Username] = true
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}
