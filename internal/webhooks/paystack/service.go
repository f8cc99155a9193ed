package paystackwebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/internal/payments"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
)

// EventChargeSuccess is the only Paystack event that moves an order; the
// rest are acked and dropped.
const EventChargeSuccess = "charge.success"

// Event is the envelope Paystack posts: an event name plus the raw object.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChargeReference extracts the transaction reference from the raw object,
// or "" when the event carries none. Used to key delivery deduplication.
func (e Event) ChargeReference() string {
	var probe struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(e.Data, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.Reference)
}

// ChargeData is the subset of the charge object the handler consumes.
type ChargeData struct {
	Reference  string         `json:"reference"`
	AmountKobo int64          `json:"amount"`
	Status     string         `json:"status"`
	PaidAt     string         `json:"paid_at"`
	Channel    string         `json:"channel"`
	Metadata   map[string]any `json:"metadata"`
}

type confirmer interface {
	ApplyConfirmation(ctx context.Context, orderID uuid.UUID, conf payments.Confirmation) (*models.Order, error)
}

type orderLookup interface {
	FindByGatewayReference(ctx context.Context, reference string) (*models.Order, error)
}

// ServiceParams bundles the webhook service dependencies.
type ServiceParams struct {
	Payments confirmer
	Orders   orderLookup
	Logger   *logger.Logger
}

// Service routes verified Paystack events into the payment confirmation path.
type Service struct {
	payments confirmer
	orders   orderLookup
	logg     *logger.Logger
}

// NewService validates dependencies and builds the event handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders lookup required")
	}
	return &Service{
		payments: params.Payments,
		orders:   params.Orders,
		logg:     params.Logger,
	}, nil
}

// HandleEvent processes one verified delivery. Unknown events return nil so
// the controller acks them; Paystack keeps retrying non-2xx responses.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil || len(event.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}

	switch event.Event {
	case EventChargeSuccess:
		var charge ChargeData
		if err := json.Unmarshal(event.Data, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
		}
		return s.handleChargeSuccess(ctx, charge)
	default:
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "event", event.Event)
			s.logg.Info(logCtx, "paystack event ignored")
		}
		return nil
	}
}

func (s *Service) handleChargeSuccess(ctx context.Context, charge ChargeData) error {
	if strings.TrimSpace(charge.Reference) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge reference required")
	}

	orderID, err := s.resolveOrderID(ctx, charge)
	if err != nil {
		return err
	}

	_, err = s.payments.ApplyConfirmation(ctx, orderID, payments.Confirmation{
		Method:    enums.PaymentMethodGateway,
		Reference: charge.Reference,
		PaidAt:    parsePaidAt(charge.PaidAt),
		Channel:   charge.Channel,
	})
	return err
}

// resolveOrderID prefers the order_id we planted in the initialize metadata
// and falls back to the stored gateway reference for charges initiated
// outside our checkout flow.
func (s *Service) resolveOrderID(ctx context.Context, charge ChargeData) (uuid.UUID, error) {
	if raw, ok := charge.Metadata["order_id"].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
	}

	order, err := s.orders.FindByGatewayReference(ctx, charge.Reference)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no order for charge reference")
	}
	return order.ID, nil
}

func parsePaidAt(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
