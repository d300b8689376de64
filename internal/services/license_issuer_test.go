package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/evervibe/evs-next-basic-web/internal/audit"
	apierrors "github.com/evervibe/evs-next-basic-web/internal/errors"
	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
	"github.com/evervibe/evs-next-basic-web/internal/license"
	"github.com/evervibe/evs-next-basic-web/internal/saga"
	"github.com/evervibe/evs-next-basic-web/pkg/contracts/domain"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type issuerFixture struct {
	store    *MockLicenseRepository
	invoices *MockInvoiceGenerator
	notifier *MockNotifier
	audit    *MockAuditSink
	issuer   *LicenseIssuer
}

func newIssuerFixture() *issuerFixture {
	f := &issuerFixture{
		store:    &MockLicenseRepository{},
		invoices: &MockInvoiceGenerator{},
		notifier: &MockNotifier{},
		audit:    &MockAuditSink{},
	}
	codec := license.NewCodec("test-salt").WithClock(fixedClock)
	f.issuer = NewLicenseIssuer(codec, f.store, f.invoices, f.notifier, f.audit,
		infrastructure.NoopBusinessMetrics(), infrastructure.DiscardLogger()).WithClock(fixedClock)
	return f
}

func (f *issuerFixture) expectInvoice(invoiceID string) {
	data := domain.InvoiceData{InvoiceID: invoiceID, Currency: "EUR"}
	f.invoices.On("NextInvoiceID", mock.Anything).Return(invoiceID, nil)
	f.invoices.On("DataFor", invoiceID, mock.Anything, mock.Anything).Return(data)
	f.invoices.On("Generate", mock.Anything, data).Return("docs/invoices/"+invoiceID+".pdf", nil)
	f.invoices.On("GetBuffer", "docs/invoices/"+invoiceID+".pdf").Return([]byte("%PDF"), nil)
	f.notifier.On("SendReceipt", mock.Anything, data, []byte("%PDF")).Return(nil)
}

func (f *issuerFixture) assertExpectations(t *testing.T) {
	f.store.AssertExpectations(t)
	f.invoices.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

var paidRequest = IssueRequest{
	LicenseType: domain.LicenseTypeSingle,
	Email:       "buyer@example.com",
	OrderID:     "ORDER-1",
}

func TestLicenseIssuer_HappyPath(t *testing.T) {
	f := newIssuerFixture()
	f.store.On("Store", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(r domain.StoredLicense) bool {
		return r.Email == "buyer@example.com" && r.Type == domain.LicenseTypeSingle && r.DownloadCount == 0 && r.ValidUntil == nil
	})).Return(nil)
	f.expectInvoice("EVS-2025-0001")
	f.notifier.On("SendLicense", mock.Anything, mock.AnythingOfType("domain.License")).Return(nil)
	f.audit.On("Record", mock.Anything, mock.MatchedBy(func(rec domain.IssuanceRecord) bool {
		return rec.OrderID == "ORDER-1" && rec.Timestamp == "2025-03-01T10:00:00Z"
	})).Return(nil)

	result, err := f.issuer.Issue(context.Background(), paidRequest, SourceCapture)
	require.NoError(t, err)

	assert.Equal(t, domain.StageComplete, result.Stage)
	assert.Equal(t, "EVS-2025-0001", result.InvoiceID)
	assert.True(t, license.ValidateFormat(result.License.Key))
	assert.Equal(t, "buyer@example.com", result.License.Email)
	assert.Equal(t, "2025-03-01T10:00:00.000Z", result.License.PurchaseDate)
	assert.Equal(t, saga.StatusCompleted, result.State.Status)
	assert.Empty(t, result.State.Failed())
	f.assertExpectations(t)
}

func TestLicenseIssuer_StoreFailureIsNotFatal(t *testing.T) {
	f := newIssuerFixture()
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	f.expectInvoice("EVS-2025-0002")
	f.notifier.On("SendLicense", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := f.issuer.Issue(context.Background(), paidRequest, SourceCapture)
	require.NoError(t, err)

	assert.Equal(t, domain.StageComplete, result.Stage)
	assert.Equal(t, []string{StepStore}, result.State.Failed())
	assert.Equal(t, "redis down", result.State.Step(StepStore).Error)
	f.assertExpectations(t)
}

func TestLicenseIssuer_InvoiceFailureIsNotFatal(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *issuerFixture)
	}{
		{
			name: "counter failure",
			setup: func(f *issuerFixture) {
				f.invoices.On("NextInvoiceID", mock.Anything).Return("", errors.New("counter unavailable"))
			},
		},
		{
			name: "render failure",
			setup: func(f *issuerFixture) {
				f.invoices.On("NextInvoiceID", mock.Anything).Return("EVS-2025-0003", nil)
				f.invoices.On("DataFor", "EVS-2025-0003", mock.Anything, "ORDER-1").Return(domain.InvoiceData{InvoiceID: "EVS-2025-0003"})
				f.invoices.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("disk full"))
			},
		},
		{
			name: "receipt mail failure",
			setup: func(f *issuerFixture) {
				data := domain.InvoiceData{InvoiceID: "EVS-2025-0004"}
				f.invoices.On("NextInvoiceID", mock.Anything).Return("EVS-2025-0004", nil)
				f.invoices.On("DataFor", "EVS-2025-0004", mock.Anything, "ORDER-1").Return(data)
				f.invoices.On("Generate", mock.Anything, data).Return("inv.pdf", nil)
				f.invoices.On("GetBuffer", "inv.pdf").Return([]byte("%PDF"), nil)
				f.notifier.On("SendReceipt", mock.Anything, data, mock.Anything).Return(errors.New("smtp timeout"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIssuerFixture()
			f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			tt.setup(f)
			f.notifier.On("SendLicense", mock.Anything, mock.Anything).Return(nil)
			f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

			result, err := f.issuer.Issue(context.Background(), paidRequest, SourceCapture)
			require.NoError(t, err)

			assert.Equal(t, domain.StageComplete, result.Stage)
			assert.Empty(t, result.InvoiceID)
			assert.Equal(t, []string{StepInvoice}, result.State.Failed())
			f.assertExpectations(t)
		})
	}
}

func TestLicenseIssuer_LicenseEmailFailureIsFatal(t *testing.T) {
	f := newIssuerFixture()
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.expectInvoice("EVS-2025-0005")
	f.notifier.On("SendLicense", mock.Anything, mock.Anything).Return(errors.New("535 authentication failed"))

	result, err := f.issuer.Issue(context.Background(), paidRequest, SourceCapture)
	require.Error(t, err)

	apiErr, ok := apierrors.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.CodeUpstreamFailure, apiErr.Code)
	assert.Equal(t, apierrors.MsgLicenseMailFailed, apiErr.Message)

	var stepErr *saga.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLicenseEmail, stepErr.Step)

	assert.Equal(t, domain.StageFailed, result.Stage)
	assert.Equal(t, saga.StepStatusSkipped, result.State.Step(StepAudit).Status)
	f.audit.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestLicenseIssuer_OptionalCollaborators(t *testing.T) {
	notifier := &MockNotifier{}
	notifier.On("SendLicense", mock.Anything, mock.Anything).Return(nil)

	issuer := NewLicenseIssuer(license.NewCodec("salt"), nil, nil, notifier, nil,
		nil, infrastructure.DiscardLogger())

	result, err := issuer.Issue(context.Background(), IssueRequest{
		LicenseType: domain.LicenseTypeAgency,
		Email:       "agency@example.com",
	}, SourceManual)
	require.NoError(t, err)

	assert.Equal(t, domain.StageComplete, result.Stage)
	for _, step := range []string{StepStore, StepInvoice, StepAudit} {
		assert.Equal(t, saga.StepStatusSkipped, result.State.Step(step).Status, step)
	}
	assert.Contains(t, result.State.ID, domain.ManualOrderID+"-")
	notifier.AssertExpectations(t)
}

func TestLicenseIssuer_ManualIssuanceAuditsAsManual(t *testing.T) {
	f := newIssuerFixture()
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("NextInvoiceID", mock.Anything).Return("EVS-2025-0006", nil)
	f.invoices.On("DataFor", "EVS-2025-0006", mock.Anything, "").Return(domain.InvoiceData{InvoiceID: "EVS-2025-0006"})
	f.invoices.On("Generate", mock.Anything, mock.Anything).Return("inv.pdf", nil)
	f.invoices.On("GetBuffer", "inv.pdf").Return([]byte("%PDF"), nil)
	f.notifier.On("SendReceipt", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("SendLicense", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("Record", mock.Anything, mock.MatchedBy(func(rec domain.IssuanceRecord) bool {
		return rec.OrderID == domain.ManualOrderID && rec.LicenseType == domain.LicenseTypeAgency
	})).Return(nil)

	_, err := f.issuer.Issue(context.Background(), IssueRequest{
		LicenseType: domain.LicenseTypeAgency,
		Email:       "agency@example.com",
	}, SourceManual)
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestLicenseIssuer_RejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  IssueRequest
	}{
		{"unknown type", IssueRequest{LicenseType: "enterprise", Email: "a@b.de"}},
		{"bad email", IssueRequest{LicenseType: domain.LicenseTypeSingle, Email: "nope"}},
		{"empty", IssueRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIssuerFixture()
			_, err := f.issuer.Issue(context.Background(), tt.req, SourceManual)

			apiErr, ok := apierrors.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, apierrors.CodeValidation, apiErr.Code)
			f.assertExpectations(t)
		})
	}
}

func TestLicenseIssuer_IgnoresCallerCancellation(t *testing.T) {
	f := newIssuerFixture()
	f.store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.expectInvoice("EVS-2025-0007")
	f.notifier.On("SendLicense", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.issuer.Issue(ctx, paidRequest, SourceCapture)
	require.NoError(t, err)
	assert.Equal(t, domain.StageComplete, result.Stage)
	f.assertExpectations(t)
}

func TestLicenseIssuer_AuditStepIsBounded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	sheet, err := audit.NewSheetsSink(context.Background(), "sheet-123", "Licenses",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	notifier := &MockNotifier{}
	notifier.On("SendLicense", mock.Anything, mock.Anything).Return(nil)
	issuer := NewLicenseIssuer(license.NewCodec("salt"), nil, nil, notifier, sheet,
		nil, infrastructure.DiscardLogger()).WithAuditTimeout(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	started := time.Now()
	result, err := issuer.Issue(ctx, paidRequest, SourceCapture)
	require.NoError(t, err)

	assert.Less(t, time.Since(started), 3*time.Second)
	assert.Equal(t, domain.StageComplete, result.Stage)
	assert.Equal(t, []string{StepAudit}, result.State.Failed())
	notifier.AssertExpectations(t)
}
