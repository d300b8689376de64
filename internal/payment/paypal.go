// Package payment talks to the PayPal Orders v2 API.
//
// Access tokens come from the client credentials grant and are cached by the
// oauth2 transport until they expire.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/evervibe/evs-next-basic-web/internal/config"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

// ErrUnexpectedResponse is returned when the processor answers with a non-2xx status
var ErrUnexpectedResponse = errors.New("unexpected payment processor response")

// Settings configures a PayPal client
type Settings struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // API root, sandbox or live
	SiteURL      string // storefront root for return and cancel URLs
	HTTPClient   *http.Client
}

// NewSettings derives client settings from application config
func NewSettings(cfg *config.Config) Settings {
	return Settings{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		BaseURL:      cfg.PayPalBaseURL(),
		SiteURL:      cfg.BaseURL,
	}
}

// Client creates and captures checkout orders
type Client struct {
	baseURL string
	siteURL string
	http    *http.Client
	catalog license.Catalog
	logger  *slog.Logger
}

// NewClient creates a PayPal client. Tokens are fetched lazily on the first call.
func NewClient(s Settings, catalog license.Catalog, logger *slog.Logger) *Client {
	base := s.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: config.PayPalTimeout}
	}
	baseURL := strings.TrimRight(s.BaseURL, "/")

	cc := &clientcredentials.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(ctx)
	httpClient.Timeout = base.Timeout

	return &Client{
		baseURL: baseURL,
		siteURL: strings.TrimRight(s.SiteURL, "/"),
		http:    httpClient,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "paypal")),
	}
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type breakdown struct {
	ItemTotal money `json:"item_total"`
}

type orderAmount struct {
	money
	Breakdown *breakdown `json:"breakdown,omitempty"`
}

type orderItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UnitAmount  money  `json:"unit_amount"`
	Quantity    string `json:"quantity"`
	Category    string `json:"category"`
}

type purchaseUnit struct {
	Description string      `json:"description"`
	Amount      orderAmount `json:"amount"`
	Items       []orderItem `json:"items"`
	CustomID    string      `json:"custom_id"`
}

type applicationContext struct {
	BrandName   string `json:"brand_name"`
	LandingPage string `json:"landing_page"`
	UserAction  string `json:"user_action"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
}

type orderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
	} `json:"purchase_units"`
	Payer *struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// itemName is the checkout line title, e.g. "EVS Basic Template - Single License"
func itemName(t domain.LicenseType) string {
	return fmt.Sprintf("%s - %s", config.ProductName, t.DisplayName())
}

func itemDescription(t domain.LicenseType) string {
	usage := "single project"
	if t == domain.LicenseTypeAgency {
		usage = "unlimited client projects"
	}
	return fmt.Sprintf("Professional Next.js template with %s usage", usage)
}

// newOrderRequest builds the order payload for one license of type t
func (c *Client) newOrderRequest(t domain.LicenseType, email string) (orderRequest, error) {
	custom, err := json.Marshal(domain.OrderCorrelation{LicenseType: t, Email: email})
	if err != nil {
		return orderRequest{}, fmt.Errorf("encode correlation data: %w", err)
	}

	price := money{CurrencyCode: config.Currency, Value: c.catalog.FormatPrice(t)}
	return orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Description: itemName(t),
			Amount:      orderAmount{money: price, Breakdown: &breakdown{ItemTotal: price}},
			Items: []orderItem{{
				Name:        itemName(t),
				Description: itemDescription(t),
				UnitAmount:  price,
				Quantity:    "1",
				Category:    "DIGITAL_GOODS",
			}},
			CustomID: string(custom),
		}},
		ApplicationContext: applicationContext{
			BrandName:   config.AppVendor,
			LandingPage: "NO_PREFERENCE",
			UserAction:  "PAY_NOW",
			ReturnURL:   c.siteURL + "/payment/success",
			CancelURL:   c.siteURL + "/payment/cancel",
		},
	}, nil
}

// CreateOrder opens a pending order embedding the buyer's choice as correlation data
func (c *Client) CreateOrder(ctx context.Context, t domain.LicenseType, email string) (domain.Order, error) {
	payload, err := c.newOrderRequest(t, email)
	if err != nil {
		return domain.Order{}, err
	}

	var resp orderResponse
	if err := c.do(ctx, "/v2/checkout/orders", payload, &resp); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	c.logger.InfoContext(ctx, "order created",
		slog.String("order_id", resp.ID),
		slog.String("status", resp.Status),
		slog.String("license_type", string(t)))
	return domain.Order{ID: resp.ID, Status: resp.Status}, nil
}

// CaptureOrder captures an approved order and returns the processor status
// with the raw correlation data
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (domain.Capture, error) {
	var resp orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.do(ctx, path, nil, &resp); err != nil {
		return domain.Capture{}, fmt.Errorf("capture order %s: %w", orderID, err)
	}

	capture := domain.Capture{OrderID: resp.ID, Status: resp.Status}
	if len(resp.PurchaseUnits) > 0 {
		capture.CustomID = resp.PurchaseUnits[0].CustomID
	}
	if resp.Payer != nil {
		capture.PayerEmail = resp.Payer.EmailAddress
	}

	c.logger.InfoContext(ctx, "order captured",
		slog.String("order_id", capture.OrderID),
		slog.String("status", capture.Status))
	return capture, nil
}

func (c *Client) do(ctx context.Context, path string, payload interface{}, out interface{}) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedResponse, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Correlation recovers what was bought and by whom from a capture. Missing
// or unparsable correlation data falls back to a single license for the
// payer's on-file address.
func Correlation(c domain.Capture) domain.OrderCorrelation {
	corr := domain.OrderCorrelation{LicenseType: domain.LicenseTypeSingle}
	if c.CustomID != "" {
		var parsed domain.OrderCorrelation
		if err := json.Unmarshal([]byte(c.CustomID), &parsed); err == nil {
			if parsed.LicenseType.Valid() {
				corr.LicenseType = parsed.LicenseType
			}
			corr.Email = parsed.Email
		}
	}
	if corr.Email == "" {
		corr.Email = c.PayerEmail
	}
	return corr
}
