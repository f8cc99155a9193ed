package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/orders"
	"github.com/jubileehq/jubilee-backend/pkg/db"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
)

func setupExpiryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
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
);`).Error)
	return conn
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) EmitIfNotExists(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit called without transaction")
	}
	r.events = append(r.events, event)
	return nil
}

func seedExpiryOrder(t *testing.T, conn *gorm.DB, age time.Duration, mutate func(*models.Order)) *models.Order {
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
	require.NoError(t, conn.Create(order).Error)
	if age > 0 {
		require.NoError(t, conn.Model(&models.Order{}).
			Where("id = ?", order.ID.String()).
			Update("created_at", time.Now().UTC().Add(-age)).Error)
	}
	return order
}

func newExpiryJob(t *testing.T, conn *gorm.DB, emitter *recordingEmitter) Job {
	t.Helper()
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     db.NewWithConn(conn),
		Orders: orders.NewRepository(conn),
		Outbox: emitter,
		TTL:    72 * time.Hour,
	})
	require.NoError(t, err)
	return job
}

func TestOrderExpiryJobCancelsStaleOrders(t *testing.T) {
	conn := setupExpiryTestDB(t)
	emitter := &recordingEmitter{}
	stale := seedExpiryOrder(t, conn, 96*time.Hour, nil)
	fresh := seedExpiryOrder(t, conn, time.Hour, nil)

	job := newExpiryJob(t, conn, emitter)
	require.NoError(t, job.Run(context.Background()))

	var staleRow models.Order
	require.NoError(t, conn.First(&staleRow, "id = ?", stale.ID.String()).Error)
	assert.Equal(t, enums.OrderStatusCancelled, staleRow.Status)

	var freshRow models.Order
	require.NoError(t, conn.First(&freshRow, "id = ?", fresh.ID.String()).Error)
	assert.Equal(t, enums.OrderStatusPendingPayment, freshRow.Status)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventOrderExpired, emitter.events[0].EventType)
	assert.Equal(t, stale.ID, emitter.events[0].AggregateID)
}

func TestOrderExpiryJobSkipsPaidOrders(t *testing.T) {
	conn := setupExpiryTestDB(t)
	emitter := &recordingEmitter{}
	seedExpiryOrder(t, conn, 96*time.Hour, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPaid
		o.Status = enums.OrderStatusProcessing
	})

	job := newExpiryJob(t, conn, emitter)
	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, emitter.events)
}

func TestOrderExpiryJobIsRepeatSafe(t *testing.T) {
	conn := setupExpiryTestDB(t)
	emitter := &recordingEmitter{}
	seedExpiryOrder(t, conn, 96*time.Hour, nil)

	job := newExpiryJob(t, conn, emitter)
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	// Second run finds the order already cancelled and emits nothing new.
	assert.Len(t, emitter.events, 1)
}
