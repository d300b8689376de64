package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Content is a rendered mail body pair with its subject
type Content struct {
	Subject string
	Text    string
	HTML    string
}

const htmlLayout = `{{define "styles"}}
    body { margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #2563eb 0%, #7c3aed 100%); padding: 40px 20px; text-align: center; color: #ffffff; }
    .header h1 { margin: 0; font-size: 28px; font-weight: bold; }
    .content { padding: 40px 30px; color: #374151; }
    .button { display: inline-block; padding: 14px 28px; background: linear-gradient(135deg, #2563eb 0%, #7c3aed 100%); color: #ffffff !important; text-decoration: none; border-radius: 8px; font-weight: 600; margin: 20px 0; }
    .info-box { background-color: #f9fafb; border-left: 4px solid #2563eb; padding: 20px; margin: 20px 0; border-radius: 4px; }
    .footer { background-color: #1f2937; padding: 30px 20px; text-align: center; color: #9ca3af; font-size: 14px; }
    .footer a { color: #2563eb; text-decoration: none; }
    td.label { padding: 8px 0; color: #6b7280; font-weight: 600; }
    td.value { padding: 8px 0; color: #1f2937; }
{{end}}
{{define "support"}}
      <div style="background-color: #fef3c7; border-left: 4px solid #f59e0b; padding: 20px; margin: 20px 0; border-radius: 4px;">
        <strong style="color: #92400e;">{{.T.SupportTitle}}</strong><br>
        <span style="color: #78350f; font-size: 14px; line-height: 1.6;">{{.T.SupportText}}</span>
      </div>
{{end}}
{{define "footer"}}
    <div class="footer">
      <p style="margin: 0 0 10px 0;"><a href="mailto:{{.Support}}">{{.Support}}</a></p>
      <p style="margin: 0; font-size: 12px;">{{.T.Footer}}</p>
    </div>
{{end}}`

const licenseHTML = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.T.LicenseSubject}}</title>
  <style>{{template "styles"}}</style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>🎉 {{.T.ThankYou}}</h1></div>
    <div class="content">
      <h2 style="color: #1f2937; margin-top: 0;">{{.T.LicenseSubject}}</h2>
      <p style="font-size: 16px; line-height: 1.6; color: #4b5563;">{{.T.LicenseIntro}}</p>
      <div class="info-box">
        <h3 style="margin-top: 0; color: #2563eb;">📄 {{.T.LicenseDetails}}</h3>
        <table style="width: 100%; border-collapse: collapse;">
          <tr><td class="label">{{.T.LabelKey}}</td><td class="value" style="font-family: monospace; font-size: 14px;"><strong>{{.Key}}</strong></td></tr>
          <tr><td class="label">{{.T.LabelType}}</td><td class="value">{{.TypeName}}</td></tr>
          <tr><td class="label">{{.T.LabelPrice}}</td><td class="value">€{{.Price}}</td></tr>
          <tr><td class="label">{{.T.LabelDate}}</td><td class="value">{{.Date}}</td></tr>
          <tr><td class="label">{{.T.LabelEmail}}</td><td class="value">{{.Email}}</td></tr>
        </table>
      </div>
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{.DownloadURL}}" class="button">{{.T.DownloadButton}}</a>
      </div>
{{template "support" .}}
    </div>
{{template "footer" .}}
  </div>
</body>
</html>`

const receiptHTML = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.T.InvoiceSubject}}</title>
  <style>{{template "styles"}}</style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>📄 {{.T.ThankYou}}</h1></div>
    <div class="content">
      <h2 style="color: #1f2937; margin-top: 0;">{{.T.InvoiceSubject}}</h2>
      <p style="font-size: 16px; line-height: 1.6; color: #4b5563;">{{.T.InvoiceIntro}}</p>
      <div class="info-box">
        <h3 style="margin-top: 0; color: #2563eb;">📋 {{.T.InvoiceDetails}}</h3>
        <table style="width: 100%; border-collapse: collapse;">
          <tr><td class="label">{{.T.LabelInvoiceNo}}</td><td class="value" style="font-family: monospace;"><strong>{{.InvoiceID}}</strong></td></tr>
          <tr><td class="label">{{.T.LabelInvoiceOn}}</td><td class="value">{{.Date}}</td></tr>
          <tr><td class="label">{{.T.LabelProduct}}</td><td class="value">{{.Product}}</td></tr>
          <tr><td class="label">{{.T.LabelType}}</td><td class="value">{{.TypeName}}</td></tr>
          <tr><td class="label">{{.T.LabelAmount}}</td><td class="value" style="font-size: 18px; font-weight: bold;">{{.Amount}} {{.Currency}}</td></tr>
        </table>
      </div>
      <div style="background-color: #dbeafe; border-left: 4px solid #2563eb; padding: 20px; margin: 20px 0; border-radius: 4px;">
        <strong style="color: #1e40af;">📎 {{.T.PDFInvoice}}</strong><br>
        <span style="color: #1e3a8a; font-size: 14px; line-height: 1.6;">{{.T.InvoiceAttached}}</span>
      </div>
{{template "support" .}}
    </div>
{{template "footer" .}}
  </div>
</body>
</html>`

var (
	licenseTemplate = template.Must(template.Must(template.New("layout").Parse(htmlLayout)).New("license").Parse(licenseHTML))
	receiptTemplate = template.Must(template.Must(template.New("layout").Parse(htmlLayout)).New("receipt").Parse(receiptHTML))
)

// Renderer builds localized customer mails
type Renderer struct {
	catalog   license.Catalog
	portalURL string
}

// NewRenderer creates a renderer linking to the download portal at portalURL
func NewRenderer(catalog license.Catalog, portalURL string) *Renderer {
	return &Renderer{catalog: catalog, portalURL: strings.TrimRight(portalURL, "/")}
}

// DownloadURL returns the portal deep link pre-filled with key and email
func (r *Renderer) DownloadURL(key, email string) string {
	return r.portalURL + "/download?key=" + url.QueryEscape(key) + "&email=" + url.QueryEscape(email)
}

type licenseView struct {
	Lang        Language
	T           translation
	Support     string
	Key         string
	TypeName    string
	Price       string
	Date        string
	Email       string
	DownloadURL string
}

// RenderLicense renders the license delivery mail. An empty lang is detected
// from the recipient address.
func (r *Renderer) RenderLicense(l domain.License, lang Language) (Content, error) {
	lang = resolveLanguage(lang, l.Email)
	t := translations[lang]
	view := licenseView{
		Lang:        lang,
		T:           t,
		Support:     config.SupportEmail,
		Key:         l.Key,
		TypeName:    l.Type.DisplayName(),
		Price:       strconv.FormatFloat(r.catalog.Price(l.Type), 'f', -1, 64),
		Date:        formatDateString(lang, l.PurchaseDate),
		Email:       l.Email,
		DownloadURL: r.DownloadURL(l.Key, l.Email),
	}

	var html bytes.Buffer
	if err := licenseTemplate.ExecuteTemplate(&html, "license", view); err != nil {
		return Content{}, fmt.Errorf("render license mail: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n%s\n\n", t.ThankYou, t.LicenseIntro)
	fmt.Fprintf(&text, "%s\n%s\n\n", strings.ToUpper(t.LicenseDetails), rule)
	fmt.Fprintf(&text, "%s %s\n", t.LabelKey, view.Key)
	fmt.Fprintf(&text, "%s %s\n", t.LabelType, view.TypeName)
	fmt.Fprintf(&text, "%s €%s\n", t.LabelPrice, view.Price)
	fmt.Fprintf(&text, "%s %s\n", t.LabelDate, view.Date)
	fmt.Fprintf(&text, "%s %s\n\n", t.LabelEmail, view.Email)
	fmt.Fprintf(&text, "DOWNLOAD\n%s\n%s\n%s\n\n", rule, t.DownloadButton, view.DownloadURL)
	writeTextFooter(&text, t)

	return Content{
		Subject: fmt.Sprintf("%s (%s)", t.LicenseSubject, l.Key),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

type receiptView struct {
	Lang      Language
	T         translation
	Support   string
	InvoiceID string
	Date      string
	Product   string
	TypeName  string
	Amount    string
	Currency  string
}

// RenderReceipt renders the receipt mail that accompanies the PDF invoice
func (r *Renderer) RenderReceipt(d domain.InvoiceData, lang Language) (Content, error) {
	lang = resolveLanguage(lang, d.Customer)
	t := translations[lang]
	view := receiptView{
		Lang:      lang,
		T:         t,
		Support:   config.SupportEmail,
		InvoiceID: d.InvoiceID,
		Date:      formatDateString(lang, d.Date),
		Product:   d.Product,
		TypeName:  d.LicenseType.DisplayName(),
		Amount:    d.Amount,
		Currency:  d.Currency,
	}

	var html bytes.Buffer
	if err := receiptTemplate.ExecuteTemplate(&html, "receipt", view); err != nil {
		return Content{}, fmt.Errorf("render receipt mail: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n%s\n\n", t.ThankYou, t.InvoiceIntro)
	fmt.Fprintf(&text, "%s\n%s\n\n", strings.ToUpper(t.InvoiceDetails), rule)
	fmt.Fprintf(&text, "%s %s\n", t.LabelInvoiceNo, view.InvoiceID)
	fmt.Fprintf(&text, "%s %s\n", t.LabelInvoiceOn, view.Date)
	fmt.Fprintf(&text, "%s %s\n", t.LabelProduct, view.Product)
	fmt.Fprintf(&text, "%s %s\n", t.LabelType, view.TypeName)
	fmt.Fprintf(&text, "%s %s %s\n\n", t.LabelAmount, view.Amount, view.Currency)
	fmt.Fprintf(&text, "%s\n%s\n\n", strings.ToUpper(t.PDFInvoice), t.InvoiceAttached)
	writeTextFooter(&text, t)

	return Content{
		Subject: fmt.Sprintf("%s (%s)", t.InvoiceSubject, d.InvoiceID),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

const rule = "----------------------------------------"

func writeTextFooter(b *strings.Builder, t translation) {
	fmt.Fprintf(b, "%s\n%s\n\n%s\n%s\n%s\n%s\n\n%s",
		t.SupportTitle, t.SupportText,
		rule, config.AppVendor, config.SupportEmail, config.CompanyWebsite,
		t.Footer)
}

// ContactSubmission is a validated contact form entry
type ContactSubmission struct {
	Name    string
	Email   string
	Message string
}

// Sanitize flattens line breaks and escapes angle brackets so user input can
// go into headers and markup
func Sanitize(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(s)
}

// RenderContact renders the operator notification for a contact submission
func RenderContact(c ContactSubmission) Content {
	return Content{
		Subject: "EVS Kontakt – " + Sanitize(c.Name),
		Text:    fmt.Sprintf("Von: %s <%s>\n\n%s", c.Name, c.Email, c.Message),
		HTML: fmt.Sprintf("<h2>Neue Kontaktanfrage</h2>\n<p><b>Name:</b> %s</p>\n<p><b>E-Mail:</b> %s</p>\n<p><b>Nachricht:</b><br/>%s</p>\n",
			Sanitize(c.Name), Sanitize(c.Email), Sanitize(c.Message)),
	}
}
