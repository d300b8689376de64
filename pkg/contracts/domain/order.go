package domain

// Order status values reported by the payment processor
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusCompleted = "COMPLETED"
)

// Order is a pending checkout created at the payment processor
type Order struct {
	ID     string `json:"orderId"`
	Status string `json:"status"`
}

// OrderCorrelation is the opaque data attached to an order so that capture
// can recover what was bought and by whom
type OrderCorrelation struct {
	LicenseType LicenseType `json:"licenseType"`
	Email       string      `json:"email"`
}

// Capture is the processor's answer to a capture request
type Capture struct {
	OrderID    string
	Status     string
	CustomID   string
	PayerEmail string
}

// Completed reports whether the payment was captured
func (c Capture) Completed() bool {
	return c.Status == OrderStatusCompleted
}

// PurchaseStage names the states of the purchase saga
type PurchaseStage string

const (
	StageOrderCreated     PurchaseStage = "ORDER_CREATED"
	StageCaptured         PurchaseStage = "CAPTURED"
	StageLicenseIssued    PurchaseStage = "LICENSE_ISSUED"
	StageInvoiceSent      PurchaseStage = "INVOICE_SENT"
	StageLicenseEmailSent PurchaseStage = "LICENSE_EMAIL_SENT"
	StageComplete         PurchaseStage = "COMPLETE"
	StageFailed           PurchaseStage = "FAILED"
)
