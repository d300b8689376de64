package license

import (
	"fmt"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// Catalog resolves configured prices for license types
type Catalog struct {
	single float64
	agency float64
}

// NewCatalog builds a catalog from license configuration
func NewCatalog(cfg config.LicenseConfig) Catalog {
	return Catalog{single: cfg.SinglePrice, agency: cfg.AgencyPrice}
}

// Price returns the price of t in euros
func (c Catalog) Price(t domain.LicenseType) float64 {
	if t == domain.LicenseTypeAgency {
		return c.agency
	}
	return c.single
}

// FormatPrice renders the price of t with two decimals
func (c Catalog) FormatPrice(t domain.LicenseType) string {
	return fmt.Sprintf("%.2f", c.Price(t))
}

// ProductName is the line item title shown on invoices and orders
func ProductName(t domain.LicenseType) string {
	return fmt.Sprintf("%s – %s", config.ProductName, t.DisplayName())
}
