package invoice

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed invoice.gohtml
var invoiceTemplate string

// PendingNumber is shown when an invoice is rendered before payment.
const PendingNumber = "PENDING"

// Document is everything the HTML invoice needs.
type Document struct {
	Number    string
	UserEmail string
	Date      string
	Items     []Line
	Total     float64
}

// Line is one row of the invoice table.
type Line struct {
	Title    string
	Quantity int32
	Price    float64
	Amount   float64
}

var tmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(invoiceTemplate))

// Render produces the invoice HTML document.
func Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
