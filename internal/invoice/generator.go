// Package invoice numbers purchases and renders their PDF invoices.
package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Counter hands out sequence numbers per calendar year
type Counter interface {
	Next(ctx context.Context, year int) (int64, error)
}

// Generator produces invoice ids and PDF files
type Generator struct {
	dir     string
	counter Counter
	catalog license.Catalog
	now     func() time.Time
	logger  *slog.Logger
}

// NewGenerator writes invoices to dir and numbers them with counter
func NewGenerator(dir string, counter Counter, catalog license.Catalog, logger *slog.Logger) *Generator {
	return &Generator{
		dir:     dir,
		counter: counter,
		catalog: catalog,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "invoice_generator")),
	}
}

// WithClock replaces the time source, for tests
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// NextInvoiceID returns the next id of the form EVS-YYYY-NNNN
func (g *Generator) NextInvoiceID(ctx context.Context) (string, error) {
	year := g.now().Year()
	n, err := g.counter.Next(ctx, year)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return FormatID(year, n), nil
}

// FormatID renders an invoice id with a zero padded sequence number
func FormatID(year int, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", config.InvoicePrefix, year, n)
}

// DataFor assembles the invoice contents for a delivered license
func (g *Generator) DataFor(invoiceID string, l domain.License, orderID string) domain.InvoiceData {
	return domain.InvoiceData{
		InvoiceID:    invoiceID,
		Customer:     l.Email,
		CustomerName: strings.SplitN(l.Email, "@", 2)[0],
		Product:      license.ProductName(l.Type),
		Amount:       g.catalog.FormatPrice(l.Type),
		Currency:     config.Currency,
		Date:         g.now().Format("2006-01-02"),
		LicenseKey:   l.Key,
		LicenseType:  l.Type,
		OrderID:      orderID,
	}
}

// Path returns where the PDF for invoiceID is written
func (g *Generator) Path(invoiceID string) string {
	return filepath.Join(g.dir, fmt.Sprintf("invoice_%s.pdf", invoiceID))
}

// Generate renders data to a PDF file and returns its path
func (g *Generator) Generate(ctx context.Context, data domain.InvoiceData) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice directory: %w", err)
	}

	path := g.Path(data.InvoiceID)
	if err := render(data).OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("render invoice %s: %w", data.InvoiceID, err)
	}

	g.logger.InfoContext(ctx, "invoice generated",
		slog.String("invoice_id", data.InvoiceID),
		slog.String("path", path))
	return path, nil
}

// GetBuffer reads a generated invoice back for mail attachment
func (g *Generator) GetBuffer(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read invoice: %w", err)
	}
	return data, nil
}
