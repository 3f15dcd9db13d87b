// Package receipt renders payment receipts as PDF.
package receipt

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindRent    Kind = "rent"
	KindDeposit Kind = "deposit"
)

// Data is everything printed on a receipt.
type Data struct {
	BusinessName string
	Currency     string
	Number       string
	Kind         Kind
	Date         time.Time

	ClientName   string
	ClientPhone  string
	PropertyName string

	// rent receipts only
	PeriodStart time.Time
	PeriodEnd   time.Time

	Amount decimal.Decimal
	// Owed and PaidToDate describe the period (rent) or the deposit after
	// this payment.
	Owed       decimal.Decimal
	PaidToDate decimal.Decimal
}

// FormatAmount groups thousands with spaces and appends the currency label.
// Whole amounts are printed without decimals.
func FormatAmount(d decimal.Decimal, currency string) string {
	var s string
	if d.Equal(d.Truncate(0)) {
		s = humanize.FormatInteger("# ###.", int(d.IntPart()))
	} else {
		f, _ := d.Float64()
		s = humanize.FormatFloat("# ###,##", f)
	}
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// Render writes an A4 receipt to w.
func Render(w io.Writer, d Data) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Reçu "+d.Number, true)
	pdf.SetCreator(d.BusinessName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(d.BusinessName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Reçu de paiement"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(95, 8, tr("N° "+d.Number), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr("Date : "+d.Date.UTC().Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, tr(label), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(value), "1", 1, "L", false, 0, "")
	}

	line("Locataire", d.ClientName)
	if d.ClientPhone != "" {
		line("Téléphone", d.ClientPhone)
	}
	if d.PropertyName != "" {
		line("Bien", d.PropertyName)
	}
	switch d.Kind {
	case KindDeposit:
		line("Objet", "Caution")
	default:
		line("Objet", "Loyer")
		line("Période", fmt.Sprintf("du %s au %s",
			d.PeriodStart.UTC().Format("02/01/2006"), d.PeriodEnd.UTC().Format("02/01/2006")))
	}
	line("Montant reçu", FormatAmount(d.Amount, d.Currency))
	if d.Owed.IsPositive() {
		line("Total versé", FormatAmount(d.PaidToDate, d.Currency)+" / "+FormatAmount(d.Owed, d.Currency))
		if rest := d.Owed.Sub(d.PaidToDate); rest.IsPositive() {
			line("Reste à payer", FormatAmount(rest, d.Currency))
		}
	}

	pdf.Ln(16)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, tr("Signature et cachet"), "", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering receipt %s: %w", d.Number, err)
	}
	return pdf.Output(w)
}
