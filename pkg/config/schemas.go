package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// Schema names registered by NewSchemaRegistry.
const (
	SchemaConfig = "config"
	SchemaTariff = "tariff"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	// Built-in schemas are constants; a compile failure is a programming error.
	if err := sr.RegisterSchema(SchemaConfig, builtinConfigSchema); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema(SchemaTariff, builtinTariffSchema); err != nil {
		panic(err)
	}
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema. The returned
// error is a *SchemaError listing every violation.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	// Encoding is not safe for concurrent use of one context
	sr.mu.Lock()
	defer sr.mu.Unlock()

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{
			Schema: schemaName,
			Errors: convertCUEErrors(err),
		}
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// SchemaError is returned when a value does not satisfy a schema.
type SchemaError struct {
	Schema string
	Errors []ValidationError
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		msgs = append(msgs, ve.Message)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Schema, strings.Join(msgs, "; "))
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: errors.Details(e, nil),
		}
		if pos := errors.Positions(e); len(pos) > 0 {
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		validationErrors = append(validationErrors, ve)
	}

	return validationErrors
}

// Built-in schema definitions

const builtinConfigSchema = `
database: {
	path:           string & !=""
	reset_on_start: bool
	busy_timeout:   int & >=0
	journal_mode:   "WAL" | "DELETE" | "TRUNCATE" | "PERSIST" | "MEMORY" | "OFF"
}

auth: {
	enabled: bool
	users?: null | [...{
		username:      string & =~"^[A-Za-z0-9_.@-]+$"
		password_hash: string & =~"^[$]2[aby][$][0-9]{2}[$]"
		role?:         "admin" | "receptionist"
	}]
}

policy: {
	paths?: null | [...string & !=""]
}

billing: {
	cst_rate:       number & >=0 & <=1
	gst_rate:       number & >=0 & <=1
	currency:       string & !=""
	tariff_script?: string
	script_timeout: int & >=0
}

hospital: {
	name:    string & !=""
	address: string
	phone:   string
	email:   string
	website: string
}

telemetry: {
	service_name: string & !=""
	logging: {
		level:  "trace" | "debug" | "info" | "warn" | "error" | "fatal"
		format: "console" | "json"
		output: string & !=""
	}
	tracing: {
		enabled:       bool
		exporter:      "otlp" | "stdout" | "none"
		sampling_rate: number & >=0 & <=1
	}
	metrics: {
		enabled:   bool
		namespace: string & =~"^[a-zA-Z_][a-zA-Z0-9_]*$"
	}
}
`

const builtinTariffSchema = `
taxes: [...{
	name: string & !=""
	rate: number & >=0 & <=1
}]
`
