package invoice

import (
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

type rgb struct{ r, g, b int }

var (
	colorBrand = rgb{37, 99, 235}
	colorTitle = rgb{31, 41, 55}
	colorMuted = rgb{107, 114, 128}
	colorFaint = rgb{156, 163, 175}
	colorRule  = rgb{229, 231, 235}
	colorText  = rgb{0, 0, 0}
)

// render lays out an A4 invoice in points
func render(data domain.InvoiceData) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(50, 50, 45)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Rechnung "+data.InvoiceID, true)
	pdf.SetAuthor(config.AppVendor, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(x, y, w float64, size float64, c rgb, align, s string) {
		pdf.SetFont("Helvetica", "", size)
		pdf.SetTextColor(c.r, c.g, c.b)
		pdf.SetXY(x, y)
		pdf.CellFormat(w, size+2, tr(s), "", 0, align, false, 0, "")
	}
	rule := func(x1, y, x2 float64) {
		pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
		pdf.Line(x1, y, x2, y)
	}

	// Vendor block
	text(50, 50, 250, 20, colorBrand, "L", config.AppVendor)
	text(50, 75, 250, 10, colorText, "L", config.SupportEmail)
	text(50, 90, 250, 10, colorText, "L", config.CompanyWebsite)

	// Invoice header
	text(350, 50, 200, 24, colorTitle, "R", "RECHNUNG")
	text(350, 90, 200, 10, colorMuted, "R", "Rechnungsnummer:")
	text(350, 105, 200, 10, colorText, "R", data.InvoiceID)
	text(350, 125, 200, 10, colorMuted, "R", "Datum:")
	text(350, 140, 200, 10, colorText, "R", data.Date)

	// Customer
	text(50, 150, 250, 12, colorTitle, "L", "Kunde:")
	text(50, 170, 250, 10, colorText, "L", data.DisplayCustomer())
	text(50, 185, 250, 10, colorText, "L", data.Customer)

	rule(50, 230, 550)

	// Line item
	const tableTop = 250
	text(50, tableTop, 240, 11, colorMuted, "L", "Artikel")
	text(300, tableTop, 140, 11, colorMuted, "L", "Lizenztyp")
	text(450, tableTop, 100, 11, colorMuted, "R", "Betrag")

	const itemTop = tableTop + 25
	amount := fmt.Sprintf("%s %s", data.Amount, data.Currency)
	text(50, itemTop, 240, 10, colorText, "L", data.Product)
	text(300, itemTop, 140, 10, colorText, "L", data.LicenseType.DisplayName())
	text(450, itemTop, 100, 10, colorText, "R", amount)
	text(50, itemTop+20, 400, 9, colorMuted, "L", "Lizenzschlüssel: "+data.LicenseKey)

	// Total
	const totalLineY = itemTop + 60
	rule(350, totalLineY, 550)
	text(350, totalLineY+15, 100, 12, colorTitle, "L", "Gesamtbetrag:")
	text(450, totalLineY+15, 100, 14, colorBrand, "R", amount)

	// Footer and payment metadata
	const footerY = 700
	text(50, footerY, 500, 8, colorMuted, "C", "Diese Rechnung wurde automatisch erstellt und ist ohne Unterschrift gültig.")
	text(50, footerY+30, 500, 9, colorText, "L", "Zahlungsinformationen:")
	text(50, footerY+45, 500, 8, colorMuted, "L", "Zahlung über PayPal")
	if data.OrderID != "" {
		text(50, footerY+60, 500, 8, colorMuted, "L", "PayPal Order ID: "+data.OrderID)
	}
	text(50, footerY+90, 500, 7, colorFaint, "C",
		fmt.Sprintf("%s | %s | %s", config.AppVendor, config.SupportEmail, config.CompanyWebsite))

	return pdf
}
