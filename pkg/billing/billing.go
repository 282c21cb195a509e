// Package billing computes patient bill receipts: the amount due plus one
// line per configured tax.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cityhospital/hms/pkg/config"
	"github.com/cityhospital/hms/pkg/telemetry"
)

// ErrInvalidRequest is returned for a request that fails validation.
var ErrInvalidRequest = errors.New("invalid billing request")

// ErrTariffScript is returned when the tariff script fails or produces
// unusable tax lines.
var ErrTariffScript = errors.New("tariff script error")

// Rate is a named tax rate; 0.18 means 18%.
type Rate struct {
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// Request is a bill to be issued.
type Request struct {
	PatientID int64   `json:"patient_id" validate:"gt=0"`
	Services  string  `json:"services" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

// TaxLine is one computed tax on a receipt.
type TaxLine struct {
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Receipt is an issued bill.
type Receipt struct {
	Number    string    `json:"receipt_number"`
	IssuedAt  time.Time `json:"issued_at"`
	PatientID int64     `json:"patient_id"`
	Services  string    `json:"services"`
	Amount    float64   `json:"amount_due"`
	Taxes     []TaxLine `json:"taxes"`
	Total     float64   `json:"total_payable"`
	Currency  string    `json:"currency"`
}

// Calculator issues receipts using either fixed rates or a tariff script.
type Calculator struct {
	rates    []Rate
	currency string

	tariff  *tariff
	timeout time.Duration
	schemas *config.SchemaRegistry

	validate *validator.Validate
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewCalculator creates a calculator from the billing configuration. When
// cfg.TariffScript is set the file is read now and evaluated on every bill.
func NewCalculator(cfg config.BillingConfig) (*Calculator, error) {
	c := &Calculator{
		rates: []Rate{
			{Name: "CST", Rate: cfg.CSTRate},
			{Name: "GST", Rate: cfg.GSTRate},
		},
		currency: cfg.Currency,
		timeout:  cfg.ScriptTimeout,
		schemas:  config.NewSchemaRegistry(),
		validate: validator.New(),
		now:      time.Now,
	}

	if cfg.TariffScript != "" {
		src, err := os.ReadFile(cfg.TariffScript)
		if err != nil {
			return nil, fmt.Errorf("failed to read tariff script: %w", err)
		}
		c.WithScript(filepath.Base(cfg.TariffScript), string(src))
	}

	return c, nil
}

// WithScript replaces the tariff script with src.
func (c *Calculator) WithScript(name, src string) *Calculator {
	c.tariff = &tariff{name: name, src: src, timeout: c.timeout}
	return c
}

// WithTelemetry records issued receipts in the metrics registry.
func (c *Calculator) WithTelemetry(tel *telemetry.Telemetry) *Calculator {
	if tel != nil {
		c.metrics = tel.Metrics
	}
	return c
}

// Calculate issues a receipt for req.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Receipt, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, fmt.Errorf("%w: amount must be a finite number", ErrInvalidRequest)
	}

	rates := c.rates
	if c.tariff != nil {
		var err error
		rates, err = c.scriptRates(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	receipt := &Receipt{
		Number:    uuid.New().String(),
		IssuedAt:  c.now(),
		PatientID: req.PatientID,
		Services:  req.Services,
		Amount:    roundCents(req.Amount),
		Taxes:     make([]TaxLine, 0, len(rates)),
		Currency:  c.currency,
	}

	total := receipt.Amount
	for _, r := range rates {
		line := TaxLine{
			Name:   r.Name,
			Rate:   r.Rate,
			Amount: roundCents(req.Amount * r.Rate),
		}
		receipt.Taxes = append(receipt.Taxes, line)
		total += line.Amount
	}
	receipt.Total = roundCents(total)

	if c.metrics != nil {
		c.metrics.RecordReceiptIssued(receipt.Total)
	}

	return receipt, nil
}

// scriptRates runs the tariff script and checks its tax lines against the
// tariff schema.
func (c *Calculator) scriptRates(ctx context.Context, req Request) ([]Rate, error) {
	lines, err := c.tariff.run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTariffScript, c.tariff.name, err)
	}

	if err := c.schemas.ValidateAgainstSchema(ctx, config.SchemaTariff, map[string]interface{}{"taxes": lines}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTariffScript, c.tariff.name, err)
	}

	rates := make([]Rate, 0, len(lines))
	for _, line := range lines {
		rate, err := toFloat(line["rate"])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTariffScript, err)
		}
		rates = append(rates, Rate{Name: line["name"].(string), Rate: rate})
	}
	return rates, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("rate must be a number, got %T", v)
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
