package billing

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"
)

// Format writes the receipt as aligned text.
func (r *Receipt) Format(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Billing Receipt")
	fmt.Fprintf(tw, "Receipt No:\t%s\n", r.Number)
	fmt.Fprintf(tw, "Issued:\t%s\n", r.IssuedAt.Format(time.RFC1123))
	fmt.Fprintf(tw, "Patient ID:\t%d\n", r.PatientID)
	fmt.Fprintf(tw, "Services Rendered:\t%s\n", r.Services)
	fmt.Fprintf(tw, "Total Amount Due:\t%s\n", r.money(r.Amount))
	for _, t := range r.Taxes {
		fmt.Fprintf(tw, "%s (%s%%):\t%s\n", t.Name, percent(t.Rate), r.money(t.Amount))
	}
	fmt.Fprintf(tw, "Total Amount Payable:\t%s\n", r.money(r.Total))

	return tw.Flush()
}

func (r *Receipt) money(v float64) string {
	if r.Currency == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%s %.2f", r.Currency, v)
}

// percent renders 0.18 as "18" and 0.025 as "2.5".
func percent(rate float64) string {
	return strconv.FormatFloat(roundCents(rate*100), 'f', -1, 64)
}
