package billing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityhospital/hms/pkg/config"
	"github.com/cityhospital/hms/pkg/telemetry"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(config.Default().Billing)
	require.NoError(t, err)
	return c
}

func TestCalculateDefaultRates(t *testing.T) {
	c := newTestCalculator(t)

	receipt, err := c.Calculate(context.Background(), Request{
		PatientID: 1,
		Services:  "Consultation",
		Amount:    1000,
	})
	require.NoError(t, err)

	require.Len(t, receipt.Taxes, 2)
	assert.Equal(t, "CST", receipt.Taxes[0].Name)
	assert.InDelta(t, 20.0, receipt.Taxes[0].Amount, 1e-9)
	assert.Equal(t, "GST", receipt.Taxes[1].Name)
	assert.InDelta(t, 180.0, receipt.Taxes[1].Amount, 1e-9)
	assert.InDelta(t, 1200.0, receipt.Total, 1e-9)

	_, err = uuid.Parse(receipt.Number)
	assert.NoError(t, err, "receipt number should be a UUID")
	assert.False(t, receipt.IssuedAt.IsZero())
	assert.Equal(t, "Rs.", receipt.Currency)
}

func TestCalculateRoundsToCents(t *testing.T) {
	c := newTestCalculator(t)

	receipt, err := c.Calculate(context.Background(), Request{PatientID: 1, Services: "X-Ray", Amount: 99.99})
	require.NoError(t, err)

	assert.Equal(t, 2.0, receipt.Taxes[0].Amount)
	assert.Equal(t, 18.0, receipt.Taxes[1].Amount)
	assert.Equal(t, 119.99, receipt.Total)
}

func TestCalculateUniqueReceiptNumbers(t *testing.T) {
	c := newTestCalculator(t)
	req := Request{PatientID: 1, Services: "X-Ray", Amount: 10}

	a, err := c.Calculate(context.Background(), req)
	require.NoError(t, err)
	b, err := c.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.Number, b.Number)
}

func TestCalculateInvalidRequest(t *testing.T) {
	c := newTestCalculator(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing patient", Request{Services: "X-Ray", Amount: 10}},
		{"missing services", Request{PatientID: 1, Amount: 10}},
		{"negative amount", Request{PatientID: 1, Services: "X-Ray", Amount: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Calculate(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestCalculateZeroAmount(t *testing.T) {
	c := newTestCalculator(t)

	receipt, err := c.Calculate(context.Background(), Request{PatientID: 1, Services: "Follow-up", Amount: 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, receipt.Total)
}

func TestTariffScript(t *testing.T) {
	script := `
def tier(amount):
    if amount > 5000:
        return 0.12
    return 0.05

taxes = [{"name": "GST", "rate": tier(amount)}]
if "Surgery" in services:
    taxes.append({"name": "Surcharge", "rate": 0.01})
`
	c := newTestCalculator(t).WithScript("tariff.star", script)
	ctx := context.Background()

	receipt, err := c.Calculate(ctx, Request{PatientID: 3, Services: "Surgery", Amount: 10000})
	require.NoError(t, err)
	require.Len(t, receipt.Taxes, 2)
	assert.Equal(t, "GST", receipt.Taxes[0].Name)
	assert.InDelta(t, 1200.0, receipt.Taxes[0].Amount, 1e-9)
	assert.Equal(t, "Surcharge", receipt.Taxes[1].Name)
	assert.InDelta(t, 11300.0, receipt.Total, 1e-9)

	receipt, err = c.Calculate(ctx, Request{PatientID: 3, Services: "Consultation", Amount: 100})
	require.NoError(t, err)
	require.Len(t, receipt.Taxes, 1)
	assert.InDelta(t, 105.0, receipt.Total, 1e-9)
}

func TestTariffScriptIntegerRate(t *testing.T) {
	c := newTestCalculator(t).WithScript("flat.star", `taxes = [{"name": "None", "rate": 0}]`)

	receipt, err := c.Calculate(context.Background(), Request{PatientID: 1, Services: "X", Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, 50.0, receipt.Total)
}

func TestTariffScriptTupleAndMath(t *testing.T) {
	script := `taxes = ({"name": "GST", "rate": math.floor(amount / 1000) / 100},)`
	c := newTestCalculator(t).WithScript("tuple.star", script)

	receipt, err := c.Calculate(context.Background(), Request{PatientID: 2, Services: "Ward", Amount: 5000})
	require.NoError(t, err)
	require.Len(t, receipt.Taxes, 1)
	assert.InDelta(t, 0.05, receipt.Taxes[0].Rate, 1e-9)
	assert.InDelta(t, 5250.0, receipt.Total, 1e-9)
}

func TestTariffScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"no taxes defined", `rates = []`},
		{"rate out of range", `taxes = [{"name": "GST", "rate": 18}]`},
		{"missing name", `taxes = [{"rate": 0.1}]`},
		{"not a list", `taxes = "18%"`},
		{"runtime failure", `taxes = [{"name": "GST", "rate": 1 / 0}]`},
		{"line is not a dict", `taxes = [("GST", 0.18)]`},
		{"syntax error", `taxes = [`},
		{"step limit", `
def spin():
    n = 0
    for i in range(5000000):
        n += i
    return n

taxes = [{"name": "GST", "rate": 0.0 * spin()}]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCalculator(t).WithScript("bad.star", tt.script)
			_, err := c.Calculate(context.Background(), Request{PatientID: 1, Services: "X", Amount: 10})
			assert.ErrorIs(t, err, ErrTariffScript)
		})
	}
}

func TestNewCalculatorReadsScriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.star")
	require.NoError(t, os.WriteFile(path, []byte(`taxes = [{"name": "VAT", "rate": 0.1}]`), 0o600))

	cfg := config.Default().Billing
	cfg.TariffScript = path

	c, err := NewCalculator(cfg)
	require.NoError(t, err)

	receipt, err := c.Calculate(context.Background(), Request{PatientID: 1, Services: "X", Amount: 100})
	require.NoError(t, err)
	require.Len(t, receipt.Taxes, 1)
	assert.Equal(t, "VAT", receipt.Taxes[0].Name)
	assert.InDelta(t, 110.0, receipt.Total, 1e-9)
}

func TestNewCalculatorMissingScript(t *testing.T) {
	cfg := config.Default().Billing
	cfg.TariffScript = filepath.Join(t.TempDir(), "missing.star")

	_, err := NewCalculator(cfg)
	assert.Error(t, err)
}

func TestCalculateRecordsMetrics(t *testing.T) {
	tel, err := telemetry.NewTelemetryWithLogger(telemetry.DefaultConfig(), telemetry.NopLogger())
	require.NoError(t, err)

	c := newTestCalculator(t).WithTelemetry(tel)
	_, err = c.Calculate(context.Background(), Request{PatientID: 1, Services: "X", Amount: 1000})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tel.Metrics.WriteText(&buf))
	assert.Contains(t, buf.String(), "hms_billing_receipts_issued_total 1")
	assert.Contains(t, buf.String(), "hms_billing_amount_total 1200")
}

func TestReceiptFormat(t *testing.T) {
	receipt := &Receipt{
		Number:    "5f0c1a52-0000-4000-8000-000000000001",
		IssuedAt:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		PatientID: 1,
		Services:  "Consultation",
		Amount:    1000,
		Taxes: []TaxLine{
			{Name: "CST", Rate: 0.02, Amount: 20},
			{Name: "GST", Rate: 0.18, Amount: 180},
		},
		Total:    1200,
		Currency: "Rs.",
	}

	var buf bytes.Buffer
	require.NoError(t, receipt.Format(&buf))

	out := buf.String()
	for _, want := range []string{
		"Billing Receipt",
		"Patient ID:",
		"Services Rendered:     Consultation",
		"CST (2%):",
		"Rs. 20.00",
		"GST (18%):",
		"Rs. 180.00",
		"Total Amount Payable:  Rs. 1200.00",
	} {
		assert.True(t, strings.Contains(out, want), "receipt missing %q:\n%s", want, out)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "2", percent(0.02))
	assert.Equal(t, "18", percent(0.18))
	assert.Equal(t, "2.5", percent(0.025))
}
