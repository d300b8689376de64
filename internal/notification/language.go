package notification

import (
	"fmt"
	"strings"
	"time"
)

// Language selects the mail template translation
type Language string

const (
	LanguageDE Language = "de"
	LanguageEN Language = "en"
)

// domainLanguages maps recognized top-level domains to a template language
var domainLanguages = map[string]Language{
	"de": LanguageDE,
	"at": LanguageDE,
	"ch": LanguageDE,
	"uk": LanguageEN,
	"us": LanguageEN,
	"ie": LanguageEN,
	"au": LanguageEN,
	"nz": LanguageEN,
}

// DetectLanguage picks the template language from the recipient's top-level
// domain. Unrecognized domains get German, the storefront's home market.
func DetectLanguage(email string) Language {
	_, domain, _ := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if i := strings.LastIndex(domain, "."); i >= 0 {
		if lang, ok := domainLanguages[domain[i+1:]]; ok {
			return lang
		}
	}
	return LanguageDE
}

func resolveLanguage(lang Language, email string) Language {
	if lang == LanguageDE || lang == LanguageEN {
		return lang
	}
	return DetectLanguage(email)
}

type translation struct {
	ThankYou        string
	LicenseSubject  string
	LicenseIntro    string
	DownloadButton  string
	SupportTitle    string
	SupportText     string
	InvoiceSubject  string
	InvoiceIntro    string
	InvoiceAttached string
	Footer          string

	LicenseDetails string
	InvoiceDetails string
	PDFInvoice     string
	LabelKey       string
	LabelType      string
	LabelPrice     string
	LabelDate      string
	LabelEmail     string
	LabelInvoiceNo string
	LabelInvoiceOn string
	LabelProduct   string
	LabelAmount    string
}

var translations = map[Language]translation{
	LanguageDE: {
		ThankYou:        "Vielen Dank für Ihren Kauf bei EverVibe Studios",
		LicenseSubject:  "Ihre Lizenz von EverVibe Studios",
		LicenseIntro:    "Vielen Dank für Ihren Kauf! Hier sind Ihre Lizenzinformationen und der Download-Link für Ihr Template.",
		DownloadButton:  "📦 Projekt jetzt herunterladen",
		SupportTitle:    "💡 Support & Dokumentation",
		SupportText:     "Bei Fragen oder Problemen kontaktieren Sie uns gerne unter info@evervibestudios.com",
		InvoiceSubject:  "Ihre Rechnung von EverVibe Studios",
		InvoiceIntro:    "Vielen Dank für Ihren Kauf! Ihre Rechnung finden Sie im Anhang.",
		InvoiceAttached: "Ihre Rechnung ist als PDF im Anhang dieser E-Mail.",
		Footer:          "© EverVibe Studios. Alle Rechte vorbehalten.",

		LicenseDetails: "Lizenzdetails",
		InvoiceDetails: "Rechnungsdetails",
		PDFInvoice:     "PDF-Rechnung",
		LabelKey:       "Lizenzschlüssel:",
		LabelType:      "Lizenztyp:",
		LabelPrice:     "Preis:",
		LabelDate:      "Kaufdatum:",
		LabelEmail:     "E-Mail:",
		LabelInvoiceNo: "Rechnungsnummer:",
		LabelInvoiceOn: "Datum:",
		LabelProduct:   "Produkt:",
		LabelAmount:    "Betrag:",
	},
	LanguageEN: {
		ThankYou:        "Thank you for your purchase at EverVibe Studios",
		LicenseSubject:  "Your License from EverVibe Studios",
		LicenseIntro:    "Thank you for your purchase! Here are your license details and the download link for your template.",
		DownloadButton:  "📦 Download Project Now",
		SupportTitle:    "💡 Support & Documentation",
		SupportText:     "If you have any questions or issues, please contact us at info@evervibestudios.com",
		InvoiceSubject:  "Your Invoice from EverVibe Studios",
		InvoiceIntro:    "Thank you for your purchase! Your invoice is attached to this email.",
		InvoiceAttached: "Your invoice is attached as a PDF to this email.",
		Footer:          "© EverVibe Studios. All rights reserved.",

		LicenseDetails: "License Details",
		InvoiceDetails: "Invoice Details",
		PDFInvoice:     "PDF Invoice",
		LabelKey:       "License Key:",
		LabelType:      "License Type:",
		LabelPrice:     "Price:",
		LabelDate:      "Purchase Date:",
		LabelEmail:     "Email:",
		LabelInvoiceNo: "Invoice Number:",
		LabelInvoiceOn: "Date:",
		LabelProduct:   "Product:",
		LabelAmount:    "Amount:",
	},
}

// formatDate renders t the way customers in lang expect: 1.3.2025 or 3/1/2025
func formatDate(lang Language, t time.Time) string {
	if lang == LanguageEN {
		return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
	}
	return fmt.Sprintf("%d.%d.%d", t.Day(), int(t.Month()), t.Year())
}

// formatDateString parses an ISO-8601 timestamp or date and formats it for
// lang. Unparsable input is returned unchanged.
func formatDateString(lang Language, s string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return formatDate(lang, t)
		}
	}
	return s
}
