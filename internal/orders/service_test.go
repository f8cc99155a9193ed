package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/internal/catalog"
	"github.com/jubileehq/jubilee-backend/pkg/config"
	"github.com/jubileehq/jubilee-backend/pkg/db"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  whatsapp TEXT,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  coming_soon INTEGER NOT NULL DEFAULT 0,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS packages (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  base_price_naira INTEGER,
  is_custom INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS package_classes (
  id TEXT PRIMARY KEY,
  package_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_naira INTEGER NOT NULL,
  description TEXT,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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

type ordersFixture struct {
	svc      Service
	conn     *gorm.DB
	emitter  *fakeEmitter
	audit    *fakeAudit
	customer *models.User
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	conn := setupOrdersTestDB(t)

	customer := &models.User{
		ID:           uuid.New(),
		Name:         "Ada Obi",
		Email:        "ada@example.com",
		PasswordHash: "x",
		Role:         enums.UserRoleCustomer,
	}
	require.NoError(t, conn.Create(customer).Error)

	emitter := &fakeEmitter{}
	auditSvc := &fakeAudit{}
	svc, err := NewService(ServiceParams{
		DB:      db.NewWithConn(conn),
		Repo:    NewRepository(conn),
		Catalog: catalog.NewRepository(conn),
		Users:   stubUserLoader{conn: conn},
		Emitter: emitter,
		Audit:   auditSvc,
		Config:  config.OrdersConfig{CodePrefix: "JBL"},
	})
	require.NoError(t, err)

	return &ordersFixture{svc: svc, conn: conn, emitter: emitter, audit: auditSvc, customer: customer}
}

type stubUserLoader struct {
	conn *gorm.DB
}

func (s stubUserLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (f *ordersFixture) seedClassPricedPackage(t *testing.T, classPrice int64) (*models.Package, *models.PackageClass) {
	t.Helper()
	category := &models.Category{ID: uuid.New(), Name: "Birthdays", Slug: "birthdays-" + uuid.NewString()[:8]}
	require.NoError(t, f.conn.Create(category).Error)

	pkg := &models.Package{
		ID:         uuid.New(),
		CategoryID: category.ID,
		Name:       "Celebration Box",
		Slug:       "celebration-box-" + uuid.NewString()[:8],
		Active:     true,
	}
	require.NoError(t, f.conn.Create(pkg).Error)

	class := &models.PackageClass{
		ID:         uuid.New(),
		PackageID:  pkg.ID,
		Name:       "VIP",
		PriceNaira: classPrice,
	}
	require.NoError(t, f.conn.Create(class).Error)
	return pkg, class
}

func TestComputeFinalNaira(t *testing.T) {
	total, final := ComputeFinalNaira(500000, 2, 0)
	assert.Equal(t, int64(1000000), total)
	assert.Equal(t, int64(1000000), final)

	total, final = ComputeFinalNaira(500000, 2, 150000)
	assert.Equal(t, int64(1000000), total)
	assert.Equal(t, int64(850000), final)

	// Discount larger than gross clamps at zero rather than going negative.
	_, final = ComputeFinalNaira(1000, 1, 5000)
	assert.Equal(t, int64(0), final)
}

func TestCheckoutCreatesOrderPerLine(t *testing.T) {
	f := newOrdersFixture(t)
	pkg, class := f.seedClassPricedPackage(t, 500000)

	result, err := f.svc.Checkout(context.Background(), f.customer.ID, CheckoutRequest{
		Lines: []CheckoutLine{
			{PackageID: pkg.ID, ClassID: &class.ID, Quantity: 2},
			{PackageID: uuid.New(), Quantity: 1}, // unknown package
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)

	placed := result.Lines[0]
	require.NotNil(t, placed.Order)
	assert.Equal(t, int64(1000000), placed.Order.FinalNaira)
	assert.Equal(t, enums.OrderStatusPendingPayment, placed.Order.Status)
	assert.Equal(t, "Ada Obi", placed.Order.CustomerName)
	assert.True(t, strings.HasPrefix(placed.Order.OrderCode, "JBL-"))

	failed := result.Lines[1]
	assert.Nil(t, failed.Order)
	assert.NotEmpty(t, failed.Error)

	// Only the successful line hit the database or the outbox.
	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventOrderCreated, f.emitter.events[0].EventType)
}

func TestCheckoutAllLinesFailed(t *testing.T) {
	f := newOrdersFixture(t)

	result, err := f.svc.Checkout(context.Background(), f.customer.ID, CheckoutRequest{
		Lines: []CheckoutLine{{PackageID: uuid.New(), Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Failed())
	assert.NotEmpty(t, result.Lines[0].Error)

	// Nothing persisted and nothing emitted for a fully rejected cart.
	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, f.emitter.events)
}

func TestCustomRequestThenAdminPrice(t *testing.T) {
	f := newOrdersFixture(t)

	order, err := f.svc.CreateCustomRequest(context.Background(), f.customer.ID, CustomRequest{
		Request:  "60th birthday surprise with gold balloons",
		Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusWaitingForPrice, order.Status)
	assert.Equal(t, int64(0), order.FinalNaira)
	assert.Equal(t, int64(0), order.EffectivePriceNaira())

	price := int64(750000)
	admin := Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}
	updated, err := f.svc.AdminRespond(context.Background(), admin, order.ID, AdminRespondRequest{
		AdminPriceNaira: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, updated.Status)
	assert.Equal(t, int64(750000), updated.EffectivePriceNaira())

	var priceEvents int
	for _, event := range f.emitter.events {
		if event.EventType == enums.EventOrderPriceSet {
			priceEvents++
		}
	}
	assert.Equal(t, 1, priceEvents)
	require.NotEmpty(t, f.audit.entries)
	assert.Equal(t, enums.AuditActionOrderPriceSet, f.audit.entries[len(f.audit.entries)-1].Action)
}

func TestAdminRespondEmitsResponseEvent(t *testing.T) {
	f := newOrdersFixture(t)
	pkg, class := f.seedClassPricedPackage(t, 250000)

	result, err := f.svc.Checkout(context.Background(), f.customer.ID, CheckoutRequest{
		Lines: []CheckoutLine{{PackageID: pkg.ID, ClassID: &class.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	order := result.Lines[0].Order

	response := "We will deliver by Friday."
	status := string(enums.OrderStatusProcessing)
	updated, err := f.svc.AdminRespond(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID, AdminRespondRequest{
		Status:   &status,
		Response: &response,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
	require.NotNil(t, updated.AdminResponse)
	assert.Equal(t, response, *updated.AdminResponse)

	last := f.emitter.events[len(f.emitter.events)-1]
	assert.Equal(t, enums.EventOrderAdminResponded, last.EventType)
}

func TestAdminRespondLastStatusWins(t *testing.T) {
	f := newOrdersFixture(t)
	pkg, class := f.seedClassPricedPackage(t, 250000)

	result, err := f.svc.Checkout(context.Background(), f.customer.ID, CheckoutRequest{
		Lines: []CheckoutLine{{PackageID: pkg.ID, ClassID: &class.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	order := result.Lines[0].Order

	admin := Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}
	first := string(enums.OrderStatusProcessing)
	_, err = f.svc.AdminRespond(context.Background(), admin, order.ID, AdminRespondRequest{Status: &first})
	require.NoError(t, err)

	second := string(enums.OrderStatusDelivered)
	updated, err := f.svc.AdminRespond(context.Background(), admin, order.ID, AdminRespondRequest{Status: &second})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)

	// Two responds with different statuses: the stored row carries the
	// second write.
	var stored models.Order
	require.NoError(t, f.conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
}

func TestAdminRespondRejectsUnknownStatus(t *testing.T) {
	f := newOrdersFixture(t)
	bogus := "shipped"
	_, err := f.svc.AdminRespond(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}, uuid.New(), AdminRespondRequest{
		Status: &bogus,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUploadProofMovesPaymentPending(t *testing.T) {
	f := newOrdersFixture(t)
	pkg, class := f.seedClassPricedPackage(t, 100000)

	result, err := f.svc.Checkout(context.Background(), f.customer.ID, CheckoutRequest{
		Lines: []CheckoutLine{{PackageID: pkg.ID, ClassID: &class.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	order := result.Lines[0].Order

	updated, err := f.svc.UploadProof(context.Background(), f.customer.ID, order.ID, UploadProofRequest{
		ProofURL:    "https://storage.googleapis.com/jubilee-media/proofs/2026/08/receipt.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodBankTransfer, updated.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPending, updated.PaymentStatus)
	require.NotNil(t, updated.ProofURL)

	// Another customer cannot attach a proof to this order.
	_, err = f.svc.UploadProof(context.Background(), uuid.New(), order.ID, UploadProofRequest{
		ProofURL:    "https://storage.googleapis.com/jubilee-media/proofs/2026/08/other.png",
		ContentType: "image/png",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
