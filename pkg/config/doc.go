// Package config loads, validates and writes the hms configuration file.
//
// # Overview
//
// Configuration is a YAML file (hms.yaml) read with viper. Every key may be
// overridden from the environment with the HMS_ prefix, dots replaced by
// underscores:
//
//	HMS_DATABASE_PATH=/var/lib/hms/hospital.db
//	HMS_BILLING_GST_RATE=0.12
//
// Missing keys take the values from Default. A missing hms.yaml is not an
// error; an explicitly named file that does not exist is.
//
// # Components
//
// SchemaRegistry: holds the built-in CUE schemas. The "config" schema checks
// field types and ranges of a loaded Config; the "tariff" schema checks the
// tax lines produced by a billing tariff script.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(ctx); err != nil {
//	    return err
//	}
//
//	// Write a fresh file for the operator to edit
//	if err := config.Save("hms.yaml", config.Default()); err != nil {
//	    return err
//	}
package config
