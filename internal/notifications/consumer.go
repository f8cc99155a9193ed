package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
	"github.com/jubileehq/jubilee-backend/pkg/outbox/idempotency"
	"github.com/jubileehq/jubilee-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type staffLister interface {
	ListStaff(ctx context.Context) ([]models.User, error)
}

// Consumer watches order events and materializes in-app notifications: the
// customer hears about payments, quotes, and responses; staff hear about
// confirmed payments.
type Consumer struct {
	repo         repository
	staff        staffLister
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, staff staffLister, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if staff == nil {
		return nil, fmt.Errorf("staff lister required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		staff:        staff,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !handledEvent(eventType) {
		c.logg.Info(logCtx, "skipping event without notification mapping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func handledEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderPaymentConfirmed, enums.EventOrderAdminResponded, enums.EventOrderPriceSet:
		return true
	default:
		return false
	}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderPaymentConfirmed:
		var payload payloads.OrderPaymentConfirmedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment payload: %w", err)
		}
		return c.notifyPaymentConfirmed(ctx, payload, logCtx)
	case enums.EventOrderAdminResponded:
		var payload payloads.OrderAdminRespondedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse response payload: %w", err)
		}
		return c.notifyAdminResponded(ctx, payload, logCtx)
	case enums.EventOrderPriceSet:
		var payload payloads.OrderPriceSetEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse price payload: %w", err)
		}
		return c.notifyPriceSet(ctx, payload, logCtx)
	default:
		return nil
	}
}

// notifyPaymentConfirmed fans out one customer notification plus one per
// staff account. A single confirmation event drives the whole fan-out, so a
// replayed webhook cannot double-notify anyone.
func (c *Consumer) notifyPaymentConfirmed(ctx context.Context, payload payloads.OrderPaymentConfirmedEvent, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	orderID := payload.OrderID

	customer := &models.Notification{
		UserID:  payload.UserID,
		OrderID: &orderID,
		Type:    enums.NotificationTypePayment,
		Title:   "Payment confirmed",
		Message: fmt.Sprintf("Your payment of ₦%d for order %s has been confirmed.", payload.AmountNaira, payload.OrderCode),
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}
	if err := c.repo.Create(ctx, customer); err != nil {
		return err
	}

	staff, err := c.staff.ListStaff(ctx)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	for _, admin := range staff {
		notification := &models.Notification{
			UserID:  admin.ID,
			OrderID: &orderID,
			Type:    enums.NotificationTypePayment,
			Title:   "Order paid",
			Message: fmt.Sprintf("Order %s was paid (₦%d, %s).", payload.OrderCode, payload.AmountNaira, payload.Method),
			Link:    stringPtr(fmt.Sprintf("/admin/orders/%s", payload.OrderID)),
		}
		if err := c.repo.Create(ctx, notification); err != nil {
			return err
		}
	}

	c.logg.Info(logCtx, fmt.Sprintf("payment notifications created for %d staff", len(staff)))
	return nil
}

func (c *Consumer) notifyAdminResponded(ctx context.Context, payload payloads.OrderAdminRespondedEvent, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	orderID := payload.OrderID

	notification := &models.Notification{
		UserID:  payload.UserID,
		OrderID: &orderID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "Order update",
		Message: fmt.Sprintf("There is a new response on your order %s.", payload.OrderCode),
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "customer notified of order response")
	return nil
}

func (c *Consumer) notifyPriceSet(ctx context.Context, payload payloads.OrderPriceSetEvent, logCtx context.Context) error {
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}
	orderID := payload.OrderID

	notification := &models.Notification{
		UserID:  payload.UserID,
		OrderID: &orderID,
		Type:    enums.NotificationTypePriceQuote,
		Title:   "Your quote is ready",
		Message: fmt.Sprintf("We have priced your custom request %s at ₦%d.", payload.OrderCode, payload.AdminPriceNaira),
		Link:    stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "customer notified of price quote")
	return nil
}

func stringPtr(value string) *string {
	return &value
}
