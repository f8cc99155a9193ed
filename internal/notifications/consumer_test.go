package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/outbox/payloads"
)

type fakeStaffLister struct {
	staff []models.User
}

func (f fakeStaffLister) ListStaff(context.Context) ([]models.User, error) {
	return f.staff, nil
}

func newTestConsumer(repo *fakeRepository, staff fakeStaffLister) *Consumer {
	return &Consumer{
		repo:  repo,
		staff: staff,
		logg:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestConsumer_PaymentConfirmedFansOutToStaff(t *testing.T) {
	repo := &fakeRepository{}
	staff := fakeStaffLister{staff: []models.User{
		{ID: uuid.New(), Role: enums.UserRoleAdmin},
		{ID: uuid.New(), Role: enums.UserRoleSuperAdmin},
	}}
	consumer := newTestConsumer(repo, staff)
	customerID := uuid.New()

	payload := mustMarshal(t, payloads.OrderPaymentConfirmedEvent{
		OrderID:     uuid.New(),
		OrderCode:   "JBL-2026-00042",
		UserID:      customerID,
		Method:      enums.PaymentMethodGateway,
		AmountNaira: 750000,
	})

	err := consumer.handleEvent(context.Background(), enums.EventOrderPaymentConfirmed, payload, context.Background())
	if err != nil {
		t.Fatalf("unexpected handle error: %v", err)
	}

	if len(repo.created) != 3 {
		t.Fatalf("expected customer + 2 staff notifications, got %d", len(repo.created))
	}
	if repo.created[0].UserID != customerID {
		t.Fatalf("first notification should target the customer")
	}
	if repo.created[0].Type != enums.NotificationTypePayment {
		t.Fatalf("expected payment type, got %s", repo.created[0].Type)
	}
	for _, n := range repo.created[1:] {
		if n.UserID == customerID {
			t.Fatal("staff notification targeted the customer")
		}
	}
}

func TestConsumer_PriceSetNotifiesCustomerOnly(t *testing.T) {
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, fakeStaffLister{staff: []models.User{{ID: uuid.New()}}})
	customerID := uuid.New()

	payload := mustMarshal(t, payloads.OrderPriceSetEvent{
		OrderID:         uuid.New(),
		OrderCode:       "JBL-2026-000007",
		UserID:          customerID,
		AdminPriceNaira: 750000,
	})

	err := consumer.handleEvent(context.Background(), enums.EventOrderPriceSet, payload, context.Background())
	if err != nil {
		t.Fatalf("unexpected handle error: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected a single customer notification, got %d", len(repo.created))
	}
	if repo.created[0].Type != enums.NotificationTypePriceQuote {
		t.Fatalf("expected price quote type, got %s", repo.created[0].Type)
	}
	if repo.created[0].UserID != customerID {
		t.Fatal("quote notification should target the customer")
	}
}

func TestConsumer_AdminRespondedNotifiesCustomer(t *testing.T) {
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, fakeStaffLister{})
	customerID := uuid.New()

	payload := mustMarshal(t, payloads.OrderAdminRespondedEvent{
		OrderID:   uuid.New(),
		OrderCode: "JBL-2026-000013",
		UserID:    customerID,
		Response:  "We can do Saturday delivery.",
	})

	err := consumer.handleEvent(context.Background(), enums.EventOrderAdminResponded, payload, context.Background())
	if err != nil {
		t.Fatalf("unexpected handle error: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	if repo.created[0].Type != enums.NotificationTypeOrderUpdate {
		t.Fatalf("expected order update type, got %s", repo.created[0].Type)
	}
}

func TestConsumer_SkipsUnmappedEvents(t *testing.T) {
	if handledEvent(enums.EventOrderCreated) {
		t.Fatal("order created events should not produce notifications")
	}
	if !handledEvent(enums.EventOrderPaymentConfirmed) {
		t.Fatal("payment confirmed events must be handled")
	}
}
