package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/netbill/internal/payment/domain"
	renewaldomain "github.com/smallbiznis/netbill/internal/renewal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePaymentService struct {
	lastReq paymentdomain.AllocateRequest
	result  paymentdomain.AllocationResult
	err     error
}

func (f *fakePaymentService) Allocate(ctx context.Context, req paymentdomain.AllocateRequest) (paymentdomain.AllocationResult, error) {
	_ = ctx
	f.lastReq = req
	return f.result, f.err
}

type fakeRenewalService struct {
	lastReq   renewaldomain.RenewRequest
	result    renewaldomain.RenewResult
	renewErr  error
	revertTxn *ledgerdomain.Transaction
	revertErr error
}

func (f *fakeRenewalService) Renew(ctx context.Context, req renewaldomain.RenewRequest) (renewaldomain.RenewResult, error) {
	_ = ctx
	f.lastReq = req
	return f.result, f.renewErr
}

func (f *fakeRenewalService) RevertLast(ctx context.Context, customerID snowflake.ID) (*ledgerdomain.Transaction, error) {
	_ = ctx
	_ = customerID
	return f.revertTxn, f.revertErr
}

type fakeLedgerService struct {
	ledgerdomain.Service
	txns         []ledgerdomain.Transaction
	adjustTxn    *ledgerdomain.Transaction
	adjustErr    error
	addonBill    *ledgerdomain.AddonBill
	addonTxn     *ledgerdomain.Transaction
	addonErr     error
	lastAddonReq ledgerdomain.AddonBillRequest
}

func (f *fakeLedgerService) CreateAddonBill(ctx context.Context, req ledgerdomain.AddonBillRequest) (*ledgerdomain.AddonBill, *ledgerdomain.Transaction, error) {
	_ = ctx
	f.lastAddonReq = req
	return f.addonBill, f.addonTxn, f.addonErr
}

func (f *fakeLedgerService) AdjustBalance(ctx context.Context, customerID snowflake.ID, amount float64, description string) (*ledgerdomain.Transaction, error) {
	_ = ctx
	_ = customerID
	_ = amount
	_ = description
	return f.adjustTxn, f.adjustErr
}

func (f *fakeLedgerService) ListTransactions(ctx context.Context, customerID snowflake.ID, limit int) ([]ledgerdomain.Transaction, error) {
	_ = ctx
	_ = customerID
	_ = limit
	return f.txns, nil
}

type testServer struct {
	engine  *gin.Engine
	payment *fakePaymentService
	renewal *fakeRenewalService
	ledger  *fakeLedgerService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := NewEngine(zap.NewNop())
	payment := &fakePaymentService{}
	renewal := &fakeRenewalService{}
	ledger := &fakeLedgerService{}

	genID, err := snowflake.NewNode(5)
	require.NoError(t, err)

	NewServer(ServerParams{
		Gin:        engine,
		GenID:      genID,
		PaymentSvc: payment,
		RenewalSvc: renewal,
		LedgerSvc:  ledger,
	})

	return &testServer{engine: engine, payment: payment, renewal: renewal, ledger: ledger}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func TestCreatePaymentBindsRequest(t *testing.T) {
	ts := newTestServer(t)
	ts.payment.result = paymentdomain.AllocationResult{
		Payment: ledgerdomain.Payment{PaymentID: "PAY1", Amount: 500},
	}

	rec := ts.do(t, http.MethodPost, "/v1/payments", map[string]any{
		"customer_id":    "12345",
		"amount":         500,
		"discount":       25,
		"payment_method": "UPI",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(12345), ts.payment.lastReq.CustomerID)
	assert.Equal(t, 500.0, ts.payment.lastReq.Amount)
	assert.Equal(t, 25.0, ts.payment.lastReq.Discount)
	assert.Equal(t, "UPI", ts.payment.lastReq.Method)
}

func TestCreatePaymentValidationMapsTo400(t *testing.T) {
	ts := newTestServer(t)
	ts.payment.err = paymentdomain.ErrInvalidAmount

	rec := ts.do(t, http.MethodPost, "/v1/payments", map[string]any{
		"customer_id":    "12345",
		"amount":         0,
		"payment_method": "UPI",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentUnknownCustomerMapsTo404(t *testing.T) {
	ts := newTestServer(t)
	ts.payment.err = customerdomain.ErrCustomerNotFound

	rec := ts.do(t, http.MethodPost, "/v1/payments", map[string]any{
		"customer_id":    "12345",
		"amount":         100,
		"payment_method": "UPI",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenewCustomerPassesOverrides(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/renew", map[string]any{
		"period_months": 3,
		"start_date":    "2024-02-01",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(777), ts.renewal.lastReq.CustomerID)
	assert.Equal(t, 3, ts.renewal.lastReq.PeriodMonths)
	require.NotNil(t, ts.renewal.lastReq.StartDate)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), ts.renewal.lastReq.StartDate.UTC())
}

func TestRenewCustomerEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/customers/777/renew", nil)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, ts.renewal.lastReq.PeriodMonths)
	assert.Nil(t, ts.renewal.lastReq.StartDate)
}

func TestRevertRenewalGuardMapsTo409(t *testing.T) {
	ts := newTestServer(t)
	ts.renewal.revertErr = ledgerdomain.ErrInvalidState

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/revert-renewal", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRevertRenewalNothingToRevertMapsTo404(t *testing.T) {
	ts := newTestServer(t)
	ts.renewal.revertErr = renewaldomain.ErrNothingToRevert

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/revert-renewal", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdjustBalance(t *testing.T) {
	ts := newTestServer(t)
	ts.ledger.adjustTxn = &ledgerdomain.Transaction{
		TransactionID:   "TXN1",
		TransactionType: ledgerdomain.TransactionTypeDebit,
		Amount:          150,
		BalanceAfter:    650,
	}

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/balance-adjustments", map[string]any{
		"amount":      150,
		"description": "Router replacement",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data ledgerdomain.Transaction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "TXN1", resp.Data.TransactionID)
	assert.Equal(t, 650.0, resp.Data.BalanceAfter)
}

func TestCreateAddonBill(t *testing.T) {
	ts := newTestServer(t)
	ts.ledger.addonBill = &ledgerdomain.AddonBill{BillNumber: "ADB10000009", TotalAmount: 590, BalanceAmount: 590}
	ts.ledger.addonTxn = &ledgerdomain.Transaction{TransactionID: "TXN9", BalanceAfter: 590}

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/addon-bills", map[string]any{
		"description":     "Static IP setup",
		"amount":          500,
		"cgst_percentage": 9,
		"sgst_percentage": 9,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, snowflake.ID(777), ts.ledger.lastAddonReq.CustomerID)
	assert.Equal(t, "Static IP setup", ts.ledger.lastAddonReq.Description)
	assert.Equal(t, 500.0, ts.ledger.lastAddonReq.Amount)
	assert.Equal(t, 9.0, ts.ledger.lastAddonReq.CGSTPercentage)

	var resp struct {
		Data struct {
			AddonBill   ledgerdomain.AddonBill   `json:"addon_bill"`
			Transaction ledgerdomain.Transaction `json:"transaction"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ADB10000009", resp.Data.AddonBill.BillNumber)
	assert.Equal(t, 590.0, resp.Data.Transaction.BalanceAfter)
}

func TestCreateAddonBillRequiresDescription(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/addon-bills", map[string]any{
		"amount": 500,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t)
	ts.ledger.txns = []ledgerdomain.Transaction{
		{TransactionID: "TXN1"},
		{TransactionID: "TXN2"},
	}

	rec := ts.do(t, http.MethodGet, "/v1/customers/777/transactions?limit=2", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []ledgerdomain.Transaction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestInvalidIDParam(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/customers/not-a-number/transactions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNumberExhaustedMapsTo503(t *testing.T) {
	ts := newTestServer(t)
	ts.renewal.renewErr = fmt.Errorf("generate number: %w", ledgerdomain.ErrNumberExhausted)

	rec := ts.do(t, http.MethodPost, "/v1/customers/777/renew", map[string]any{})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
