package telemetry_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cityhospital/hms/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("hms started")

	// Output varies, no output specified
}

// Example_structuredLogging demonstrates component loggers and record fields.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Enabled = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("hospital")
	logger.WithPatientID(1).Info("patient registered")
	logger.WithAppointmentID(7).Debug("appointment booked")

	err := fmt.Errorf("patient not found: 999")
	logger.WithError(err).Warn("booking rejected")

	// Output varies, no output specified
}

// Example_instrumentedOperation demonstrates StartOperation.
func Example_instrumentedOperation() {
	tel, _ := telemetry.NewTelemetry(telemetry.DefaultConfig())
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "register_patient", telemetry.AttrPatientID.Int64(1))
	ic.Logger.Info("registering patient")
	time.Sleep(time.Millisecond)
	ic.End(nil)

	// Output varies, no output specified
}

// Example_metricsDump demonstrates writing the registry in text format.
func Example_metricsDump() {
	tel, _ := telemetry.NewTelemetry(telemetry.DefaultConfig())
	defer tel.Shutdown(context.Background())

	tel.Metrics.RecordStoreOperation("add_patient", "ok", 2*time.Millisecond)
	tel.Metrics.RecordRecordsCreated("patients", 1)

	_ = tel.Metrics.WriteText(os.Stderr)

	// Output varies, no output specified
}
