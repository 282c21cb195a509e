// Package telemetry provides observability instrumentation for hms.
//
// The package combines structured logging (zerolog), tracing (OpenTelemetry)
// and metrics (Prometheus) behind a single Telemetry value that the record
// store and the hospital service share.
//
// # Usage
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("hospital")
//	logger.WithPatientID(1).Info("patient registered")
//	logger.WithError(err).Error("booking failed")
//
// Log levels: trace, debug, info, warn, error, fatal. Logs go to stderr by
// default so command output on stdout stays machine readable.
//
// # Tracing
//
// Every store operation runs in a "store.<op>" span and every service
// operation in a "hospital.<op>" span:
//
//	ic := telemetry.StartOperation(ctx, "book_appointment",
//	    telemetry.AttrPatientID.Int64(id))
//	defer func() { ic.End(err) }()
//
// Tracing is disabled by default. Supported exporters are "stdout" (pretty
// JSON on stderr), "otlp" (gRPC collector) and "none".
//
// # Metrics
//
// Metrics are kept in a private registry. Nothing listens on a port; the CLI
// dumps the registry in text format on request:
//
//	tel.Metrics.WriteText(os.Stderr)
//
// Metrics exposed:
//
//   - hms_store_operations_total{operation,status}
//   - hms_store_operation_duration_seconds{operation}
//   - hms_records_created_total{table}
//   - hms_records_deleted_total{table}
//   - hms_errors_by_class_total{class}
//   - hms_errors_by_code_total{code}
//   - hms_billing_receipts_issued_total
//   - hms_billing_amount_total
//   - hms_auth_attempts_total{result}
package telemetry
