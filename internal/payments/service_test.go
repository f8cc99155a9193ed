package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/internal/orders"
	"github.com/jubileehq/jubilee-backend/pkg/db"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
	"github.com/jubileehq/jubilee-backend/pkg/paystack"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_code TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_whatsapp TEXT,
  package_id TEXT,
  package_name TEXT NOT NULL,
  class_name TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  note TEXT,
  custom_request TEXT,
  total_naira INTEGER NOT NULL DEFAULT 0,
  discount_naira INTEGER NOT NULL DEFAULT 0,
  final_naira INTEGER NOT NULL DEFAULT 0,
  admin_price_naira INTEGER,
  payment_method TEXT NOT NULL DEFAULT 'gateway',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  proof_url TEXT,
  proof_content_type TEXT,
  gateway_reference TEXT,
  verified_at DATETIME,
  verified_by TEXT,
  delivery_date DATETIME,
  delivery_notes TEXT,
  address TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  admin_response TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  scheduled_for DATETIME NOT NULL,
  address TEXT NOT NULL,
  courier_note TEXT,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type capturedEvent struct {
	EventType   enums.OutboxEventType
	AggregateID uuid.UUID
	Data        any
}

type fakeEmitter struct {
	events []capturedEvent
}

func (f *fakeEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit called without transaction")
	}
	f.events = append(f.events, capturedEvent{
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Data:        event.Data,
	})
	return nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(_ context.Context, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) RecordTx(_ context.Context, _ *gorm.DB, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) List(context.Context, audit.ListParams) (*audit.ListResult, error) {
	return &audit.ListResult{}, nil
}

type fakeGateway struct {
	initialized     []paystack.InitializeParams
	verifyTxn       *paystack.Transaction
	verifyErr       error
	virtualAccounts []virtualAccountCall
}

func (f *fakeGateway) Initialize(_ context.Context, params paystack.InitializeParams) (*paystack.Authorization, error) {
	f.initialized = append(f.initialized, params)
	return &paystack.Authorization{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		AccessCode:       "abc123",
		Reference:        params.Reference,
	}, nil
}

func (f *fakeGateway) Verify(context.Context, string) (*paystack.Transaction, error) {
	return f.verifyTxn, f.verifyErr
}

type virtualAccountCall struct {
	customerCode  string
	preferredBank string
}

func (f *fakeGateway) CreateVirtualAccount(_ context.Context, customerCode, preferredBank string) (*paystack.VirtualAccount, error) {
	f.virtualAccounts = append(f.virtualAccounts, virtualAccountCall{customerCode: customerCode, preferredBank: preferredBank})
	return &paystack.VirtualAccount{
		AccountName:   "JUBILEE/ADA OBI",
		AccountNumber: "9930000737",
		BankName:      "Wema Bank",
		Assigned:      true,
	}, nil
}

type fakeSettings struct {
	current models.PaymentSettings
}

func (f *fakeSettings) Get(context.Context) (*models.PaymentSettings, error) {
	current := f.current
	return &current, nil
}

type paymentsFixture struct {
	svc      Service
	conn     *gorm.DB
	emitter  *fakeEmitter
	audit    *fakeAudit
	gateway  *fakeGateway
	settings *fakeSettings
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	conn := setupPaymentsTestDB(t)

	emitter := &fakeEmitter{}
	auditSvc := &fakeAudit{}
	gw := &fakeGateway{}
	settingsSvc := &fakeSettings{}
	svc, err := NewService(ServiceParams{
		DB:       db.NewWithConn(conn),
		Orders:   orders.NewRepository(conn),
		Gateway:  gw,
		Settings: settingsSvc,
		Emitter:  emitter,
		Audit:    auditSvc,
	})
	require.NoError(t, err)

	return &paymentsFixture{svc: svc, conn: conn, emitter: emitter, audit: auditSvc, gateway: gw, settings: settingsSvc}
}

func (f *paymentsFixture) seedOrder(t *testing.T, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		OrderCode:     "JBL-2026-" + uuid.NewString()[:6],
		CustomerID:    uuid.New(),
		CustomerName:  "Ada Obi",
		CustomerEmail: "ada@example.com",
		PackageName:   "Celebration Box",
		Quantity:      1,
		TotalNaira:    500000,
		FinalNaira:    500000,
		PaymentMethod: enums.PaymentMethodGateway,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Status:        enums.OrderStatusPendingPayment,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.conn.Create(order).Error)
	return order
}

func (f *paymentsFixture) reload(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", id.String()).Error)
	return &order
}

func TestApplyConfirmationMarksOrderPaid(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, nil)
	paidAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	confirmed, err := f.svc.ApplyConfirmation(context.Background(), order.ID, Confirmation{
		Method:    enums.PaymentMethodGateway,
		Reference: "JB-ref-1",
		PaidAt:    paidAt,
		Channel:   "card",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, confirmed.Status)
	require.NotNil(t, confirmed.GatewayReference)
	assert.Equal(t, "JB-ref-1", *confirmed.GatewayReference)
	require.NotNil(t, confirmed.VerifiedAt)

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventOrderPaymentConfirmed, f.emitter.events[0].EventType)
	assert.Equal(t, order.ID, f.emitter.events[0].AggregateID)
}

func TestApplyConfirmationIsIdempotent(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, nil)

	_, err := f.svc.ApplyConfirmation(context.Background(), order.ID, Confirmation{
		Method:    enums.PaymentMethodGateway,
		Reference: "JB-ref-1",
	})
	require.NoError(t, err)

	again, err := f.svc.ApplyConfirmation(context.Background(), order.ID, Confirmation{
		Method:    enums.PaymentMethodGateway,
		Reference: "JB-ref-2",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPaid, again.PaymentStatus)
	require.NotNil(t, again.GatewayReference)
	assert.Equal(t, "JB-ref-1", *again.GatewayReference, "second delivery must not rewrite the reference")
	assert.Len(t, f.emitter.events, 1, "duplicate confirmation must not emit a second event")
}

func TestApplyConfirmationKeepsDeliveredStatus(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusDelivered
	})

	confirmed, err := f.svc.ApplyConfirmation(context.Background(), order.ID, Confirmation{
		Method: enums.PaymentMethodGateway,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusDelivered, confirmed.Status)
	assert.Equal(t, enums.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Len(t, f.emitter.events, 1)
}

func TestInitializeCheckoutStoresReference(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, nil)

	session, err := f.svc.InitializeCheckout(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)

	assert.Contains(t, session.Reference, "JB-"+order.ID.String())
	assert.Equal(t, int64(500000), session.AmountNaira)
	assert.Equal(t, "https://checkout.paystack.com/abc123", session.AuthorizationURL)

	require.Len(t, f.gateway.initialized, 1)
	assert.Equal(t, "ada@example.com", f.gateway.initialized[0].Email)
	assert.Equal(t, int64(500000), f.gateway.initialized[0].AmountNaira)

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	require.NotNil(t, stored.GatewayReference)
	assert.Equal(t, session.Reference, *stored.GatewayReference)
}

func TestInitializeCheckoutRejectsUnpricedQuote(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusWaitingForPrice
		o.FinalNaira = 0
		o.TotalNaira = 0
	})

	_, err := f.svc.InitializeCheckout(context.Background(), order.CustomerID, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Empty(t, f.gateway.initialized)
}

func TestInitializeCheckoutUsesAdminPrice(t *testing.T) {
	f := newPaymentsFixture(t)
	adminPrice := int64(750000)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusPendingPayment
		o.FinalNaira = 0
		o.AdminPriceNaira = &adminPrice
	})

	session, err := f.svc.InitializeCheckout(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, adminPrice, session.AmountNaira)
}

func TestInitializeCheckoutHidesForeignOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, nil)

	_, err := f.svc.InitializeCheckout(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestIssueVirtualAccountPassesThroughGateway(t *testing.T) {
	f := newPaymentsFixture(t)
	f.settings.current.VirtualAcctEnabled = true

	bank := "wema-bank"
	details, err := f.svc.IssueVirtualAccount(context.Background(), uuid.New(), VirtualAccountRequest{
		CustomerCode:  "CUS_xy4k7",
		PreferredBank: &bank,
	})
	require.NoError(t, err)
	assert.Equal(t, "9930000737", details.AccountNumber)
	assert.Equal(t, "Wema Bank", details.BankName)
	assert.True(t, details.Assigned)

	require.Len(t, f.gateway.virtualAccounts, 1)
	assert.Equal(t, "CUS_xy4k7", f.gateway.virtualAccounts[0].customerCode)
	assert.Equal(t, "wema-bank", f.gateway.virtualAccounts[0].preferredBank)
}

func TestIssueVirtualAccountRefusesWhenDisabled(t *testing.T) {
	f := newPaymentsFixture(t)

	_, err := f.svc.IssueVirtualAccount(context.Background(), uuid.New(), VirtualAccountRequest{
		CustomerCode: "CUS_xy4k7",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Empty(t, f.gateway.virtualAccounts)
}

func TestVerifyAndConfirmConfirmsSuccessfulTransaction(t *testing.T) {
	f := newPaymentsFixture(t)
	reference := fmt.Sprintf("JB-%s-1", uuid.New())
	order := f.seedOrder(t, func(o *models.Order) {
		o.GatewayReference = &reference
		o.PaymentStatus = enums.PaymentStatusPending
	})
	f.gateway.verifyTxn = &paystack.Transaction{
		Status:     "success",
		Reference:  reference,
		AmountKobo: 500000 * 100,
		Channel:    "bank",
		PaidAt:     "2026-08-01T10:00:00Z",
	}

	confirmed, err := f.svc.VerifyAndConfirm(context.Background(), reference)
	require.NoError(t, err)

	assert.Equal(t, order.ID, confirmed.ID)
	assert.Equal(t, enums.PaymentStatusPaid, confirmed.PaymentStatus)
	require.NotNil(t, confirmed.VerifiedAt)
	assert.Equal(t, 2026, confirmed.VerifiedAt.UTC().Year())
	assert.Len(t, f.emitter.events, 1)
}

func TestVerifyAndConfirmRefusesUnderpayment(t *testing.T) {
	f := newPaymentsFixture(t)
	reference := fmt.Sprintf("JB-%s-1", uuid.New())
	f.seedOrder(t, func(o *models.Order) {
		o.GatewayReference = &reference
	})
	f.gateway.verifyTxn = &paystack.Transaction{
		Status:     "success",
		Reference:  reference,
		AmountKobo: 100 * 100,
	}

	_, err := f.svc.VerifyAndConfirm(context.Background(), reference)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Empty(t, f.emitter.events)
}

func TestVerifyAndConfirmRefusesFailedTransaction(t *testing.T) {
	f := newPaymentsFixture(t)
	f.gateway.verifyTxn = &paystack.Transaction{Status: "abandoned", Reference: "JB-x"}

	_, err := f.svc.VerifyAndConfirm(context.Background(), "JB-x")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestConfirmBankTransferRecordsAudit(t *testing.T) {
	f := newPaymentsFixture(t)
	proof := "https://storage.googleapis.com/jubilee/proofs/p.png"
	order := f.seedOrder(t, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodBankTransfer
		o.PaymentStatus = enums.PaymentStatusPending
		o.ProofURL = &proof
	})
	actor := orders.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}

	confirmed, err := f.svc.ConfirmBankTransfer(context.Background(), actor, order.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, enums.PaymentMethodBankTransfer, confirmed.PaymentMethod)
	require.NotNil(t, confirmed.VerifiedBy)
	assert.Equal(t, actor.ID, *confirmed.VerifiedBy)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, enums.AuditActionPaymentVerified, f.audit.entries[0].Action)
	assert.Equal(t, actor.ID, f.audit.entries[0].ActorID)
}

func TestConfirmBankTransferRequiresProof(t *testing.T) {
	f := newPaymentsFixture(t)
	order := f.seedOrder(t, nil)
	actor := orders.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}

	_, err := f.svc.ConfirmBankTransfer(context.Background(), actor, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Empty(t, f.emitter.events)
}
