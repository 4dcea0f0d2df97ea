// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
)

// Service renders order invoices as PDF documents
type Service struct {
	config *config.Config
	tmpl   *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) (*Service, error) {
	tmpl, err := template.New("invoice").Funcs(template.FuncMap{
		"money": formatMoney,
	}).Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}

	return &Service{
		config: cfg,
		tmpl:   tmpl,
	}, nil
}

type invoiceData struct {
	Company config.InvoiceConfig
	Order   *order.Order
	Date    string
}

// GenerateInvoice renders the order's invoice and returns the PDF bytes
func (s *Service) GenerateInvoice(ord *order.Order) ([]byte, error) {
	var html bytes.Buffer
	data := invoiceData{
		Company: s.config.Invoice,
		Order:   ord,
		Date:    ord.CreatedAt.Format("02 Jan 2006"),
	}
	if err := s.tmpl.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}

	generator, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	generator.Dpi.Set(300)
	generator.PageSize.Set(wkhtmltopdf.PageSizeA4)
	generator.MarginTop.Set(10)
	generator.MarginBottom.Set(10)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html.String()))
	generator.AddPage(page)

	if err := generator.Create(); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return generator.Bytes(), nil
}

// formatMoney renders a cent amount as a decimal string
func formatMoney(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #222; font-size: 12px; }
  .header { display: flex; justify-content: space-between; margin-bottom: 24px; }
  .company { font-size: 16px; font-weight: bold; }
  .muted { color: #777; }
  table { width: 100%; border-collapse: collapse; margin-top: 16px; }
  th, td { padding: 6px 8px; text-align: left; border-bottom: 1px solid #ddd; }
  th { background: #f5f5f5; }
  .num { text-align: right; }
  .totals { margin-top: 16px; width: 40%; margin-left: auto; }
  .totals td { border: none; }
  .totals .grand { font-weight: bold; border-top: 2px solid #222; }
</style>
</head>
<body>
  <div class="header">
    <div>
      <div class="company">{{.Company.CompanyName}}</div>
      <div class="muted">{{.Company.CompanyAddress}}</div>
      <div class="muted">{{.Company.CompanyPhone}} {{.Company.CompanyEmail}}</div>
    </div>
    <div>
      <h2>Invoice</h2>
      <div>Order {{.Order.OrderNumber}}</div>
      <div class="muted">{{.Date}}</div>
    </div>
  </div>

  <div>
    <strong>Ship to</strong><br>
    {{.Order.Address.Line1}}{{if .Order.Address.Line2}}, {{.Order.Address.Line2}}{{end}}<br>
    {{.Order.Address.City}}, {{.Order.Address.State}} {{.Order.Address.Zip}}<br>
    {{.Order.Address.Country}}<br>
    {{.Order.Address.Phone}}
  </div>

  <table>
    <thead>
      <tr><th>Item</th><th>SKU</th><th class="num">Qty</th><th class="num">Unit</th><th class="num">Total</th></tr>
    </thead>
    <tbody>
      {{range .Order.Items}}
      <tr>
        <td>{{.Title}}</td>
        <td>{{.VariantSKU}}</td>
        <td class="num">{{.Quantity}}</td>
        <td class="num">{{money .Price}}</td>
        <td class="num">{{money .TotalPrice}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>

  <table class="totals">
    <tr><td>Subtotal</td><td class="num">{{money .Order.Amounts.Subtotal}}</td></tr>
    <tr><td>Shipping</td><td class="num">{{money .Order.Amounts.Shipping}}</td></tr>
    <tr class="grand"><td>Total</td><td class="num">{{money .Order.Amounts.Total}}</td></tr>
  </table>
</body>
</html>`
