package config

import (
	"time"

	"github.com/cityhospital/hms/pkg/telemetry"
)

// Config is the complete hms configuration file.
type Config struct {
	// Database configures the record store file.
	Database DatabaseConfig `mapstructure:"database" yaml:"database" json:"database"`

	// Auth holds the credential store.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth" json:"auth"`

	// Billing configures receipt tax lines.
	Billing BillingConfig `mapstructure:"billing" yaml:"billing" json:"billing"`

	// Policy configures access and record policies.
	Policy PolicyConfig `mapstructure:"policy" yaml:"policy" json:"policy"`

	// Hospital holds the contact details printed by the front desk.
	Hospital HospitalConfig `mapstructure:"hospital" yaml:"hospital" json:"hospital"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
}

// DatabaseConfig configures the SQLite record store.
type DatabaseConfig struct {
	// Path is the database file. ":memory:" keeps everything in process.
	Path string `mapstructure:"path" yaml:"path" json:"path"`

	// ResetOnStart drops and recreates every table when the store opens.
	ResetOnStart bool `mapstructure:"reset_on_start" yaml:"reset_on_start" json:"reset_on_start"`

	// BusyTimeout is how long SQLite waits on a locked file.
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" json:"busy_timeout"`

	// JournalMode is the SQLite journal mode for file databases.
	JournalMode string `mapstructure:"journal_mode" yaml:"journal_mode" json:"journal_mode"`
}

// AuthConfig holds the front-desk credential store.
type AuthConfig struct {
	// Enabled requires a username and password on every store command.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Users are the accepted credentials.
	Users []UserCredential `mapstructure:"users" yaml:"users,omitempty" json:"users,omitempty"`
}

// UserCredential is one username with its bcrypt password hash.
type UserCredential struct {
	Username     string `mapstructure:"username" yaml:"username" json:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash" json:"password_hash"`

	// Role is "admin" or "receptionist"; empty means receptionist.
	Role string `mapstructure:"role" yaml:"role,omitempty" json:"role,omitempty"`
}

// PolicyConfig lists extra Rego policies loaded next to the built-in ones.
type PolicyConfig struct {
	// Paths are .rego or .json files, or directories containing them.
	Paths []string `mapstructure:"paths" yaml:"paths,omitempty" json:"paths,omitempty"`
}

// BillingConfig configures the receipt calculator.
type BillingConfig struct {
	// CSTRate is the central sales tax rate (0.02 is 2%).
	CSTRate float64 `mapstructure:"cst_rate" yaml:"cst_rate" json:"cst_rate"`

	// GSTRate is the goods and services tax rate.
	GSTRate float64 `mapstructure:"gst_rate" yaml:"gst_rate" json:"gst_rate"`

	// Currency is printed on receipts.
	Currency string `mapstructure:"currency" yaml:"currency" json:"currency"`

	// TariffScript is an optional Starlark file that defines the tax lines.
	TariffScript string `mapstructure:"tariff_script" yaml:"tariff_script,omitempty" json:"tariff_script,omitempty"`

	// ScriptTimeout bounds tariff script execution.
	ScriptTimeout time.Duration `mapstructure:"script_timeout" yaml:"script_timeout" json:"script_timeout"`
}

// HospitalConfig holds the hospital's contact details.
type HospitalConfig struct {
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`
	Phone   string `mapstructure:"phone" yaml:"phone" json:"phone"`
	Email   string `mapstructure:"email" yaml:"email" json:"email"`
	Website string `mapstructure:"website" yaml:"website" json:"website"`
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	// Path is the offending field path, when known.
	Path string `json:"path,omitempty"`

	// Line is the line number in the schema, when known.
	Line int `json:"line,omitempty"`

	// Column is the column number in the schema, when known.
	Column int `json:"column,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}
