package domain

// InvoiceData holds everything printed on an invoice.
// The rendered PDF is a derived artifact keyed by InvoiceID.
type InvoiceData struct {
	InvoiceID    string      `json:"invoiceId"`
	Customer     string      `json:"customer"`
	CustomerName string      `json:"customerName,omitempty"`
	Product      string      `json:"product"`
	Amount       string      `json:"amount"`
	Currency     string      `json:"currency"`
	Date         string      `json:"date"` // YYYY-MM-DD
	LicenseKey   string      `json:"licenseKey"`
	LicenseType  LicenseType `json:"licenseType"`
	OrderID      string      `json:"orderId,omitempty"`
}

// DisplayCustomer returns the name line printed for the customer
func (d InvoiceData) DisplayCustomer() string {
	if d.CustomerName != "" {
		return d.CustomerName
	}
	return d.Customer
}
