package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/internal/orders"
	"github.com/jubileehq/jubilee-backend/pkg/db"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/metrics"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
	"github.com/jubileehq/jubilee-backend/pkg/outbox/payloads"
	"github.com/jubileehq/jubilee-backend/pkg/paystack"
)

type gateway interface {
	Initialize(ctx context.Context, params paystack.InitializeParams) (*paystack.Authorization, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
	CreateVirtualAccount(ctx context.Context, customerCode, preferredBank string) (*paystack.VirtualAccount, error)
}

type settingsReader interface {
	Get(ctx context.Context) (*models.PaymentSettings, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CheckoutSession is what the frontend needs to hand off to the hosted page.
type CheckoutSession struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
	AmountNaira      int64  `json:"amount_naira"`
}

// VirtualAccountRequest asks the gateway for a dedicated NUBAN. The customer
// code is the gateway-side customer identity, passed through as-is.
type VirtualAccountRequest struct {
	CustomerCode  string  `json:"customer_code" validate:"required,max=64"`
	PreferredBank *string `json:"preferred_bank,omitempty" validate:"omitempty,max=64"`
}

// VirtualAccountDetails is the issued account the customer pays into.
type VirtualAccountDetails struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	Assigned      bool   `json:"assigned"`
}

// Confirmation carries the fields every confirmation path supplies, whether
// it came from the webhook, a verify call, or an admin marking a transfer.
type Confirmation struct {
	Method     enums.PaymentMethod
	Reference  string
	PaidAt     time.Time
	Channel    string
	VerifiedBy *uuid.UUID
}

// Service owns gateway checkout and the single payment confirmation path.
type Service interface {
	InitializeCheckout(ctx context.Context, customerID, orderID uuid.UUID) (*CheckoutSession, error)
	IssueVirtualAccount(ctx context.Context, customerID uuid.UUID, req VirtualAccountRequest) (*VirtualAccountDetails, error)
	ApplyConfirmation(ctx context.Context, orderID uuid.UUID, conf Confirmation) (*models.Order, error)
	VerifyAndConfirm(ctx context.Context, reference string) (*models.Order, error)
	ConfirmBankTransfer(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error)
}

// ServiceParams bundles the payment service dependencies.
type ServiceParams struct {
	DB       *db.Client
	Orders   orders.Repository
	Gateway  gateway
	Settings settingsReader
	Emitter  outboxEmitter
	Audit    audit.Service
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

type service struct {
	db       *db.Client
	orders   orders.Repository
	gateway  gateway
	settings settingsReader
	emitter  outboxEmitter
	audit    audit.Service
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
}

// NewService wires the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository is required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter is required")
	}
	return &service{
		db:       params.DB,
		orders:   params.Orders,
		gateway:  params.Gateway,
		settings: params.Settings,
		emitter:  params.Emitter,
		audit:    params.Audit,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// GatewayReference builds the reference sent to Paystack. It is a formatting
// convention for tracing, not a uniqueness guarantee; Paystack enforces
// uniqueness on its side.
func GatewayReference(orderID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("JB-%s-%d", orderID, now.UTC().UnixMilli())
}

// InitializeCheckout opens a hosted gateway session for the order's effective
// price and records the reference so the webhook can find its way back.
func (s *service) InitializeCheckout(ctx context.Context, customerID, orderID uuid.UUID) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
	}
	if order.Status == enums.OrderStatusWaitingForPrice && order.AdminPriceNaira == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is awaiting a price")
	}
	amount := order.EffectivePriceNaira()
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payable amount")
	}

	reference := GatewayReference(order.ID, time.Now())
	auth, err := s.gateway.Initialize(ctx, paystack.InitializeParams{
		Email:       order.CustomerEmail,
		AmountNaira: amount,
		Reference:   reference,
		Metadata: map[string]any{
			"order_id":   order.ID.String(),
			"order_code": order.OrderCode,
		},
	})
	if err != nil {
		s.metrics.IncGatewayError("initialize")
		return nil, err
	}

	order.PaymentMethod = enums.PaymentMethodGateway
	order.PaymentStatus = enums.PaymentStatusPending
	order.GatewayReference = &reference
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order reference")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":  order.ID.String(),
			"reference": reference,
		})
		s.logg.Info(logCtx, "gateway checkout initialized")
	}

	return &CheckoutSession{
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Reference:        reference,
		AmountNaira:      amount,
	}, nil
}

// IssueVirtualAccount requests a dedicated NUBAN from the gateway for the
// calling customer. The method must be switched on in payment settings; the
// gateway response is passed through without being persisted, matching the
// proxy behaviour of the two other gateway actions.
func (s *service) IssueVirtualAccount(ctx context.Context, customerID uuid.UUID, req VirtualAccountRequest) (*VirtualAccountDetails, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}
	if s.settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment settings unavailable")
	}

	current, err := s.settings.Get(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment settings")
	}
	if !current.VirtualAcctEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "virtual accounts are disabled")
	}

	preferredBank := ""
	if req.PreferredBank != nil {
		preferredBank = *req.PreferredBank
	}
	account, err := s.gateway.CreateVirtualAccount(ctx, req.CustomerCode, preferredBank)
	if err != nil {
		s.metrics.IncGatewayError("create_virtual_account")
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id": customerID.String(),
			"bank_name":   account.BankName,
		})
		s.logg.Info(logCtx, "virtual account issued")
	}

	return &VirtualAccountDetails{
		AccountName:   account.AccountName,
		AccountNumber: account.AccountNumber,
		BankName:      account.BankName,
		Assigned:      account.Assigned,
	}, nil
}

// ApplyConfirmation is the single path that marks an order paid. Every
// source (webhook, verify fallback, admin transfer confirmation) funnels
// through here, so duplicate deliveries collapse to a no-op and only one
// payment_confirmed event ever leaves the outbox per order.
func (s *service) ApplyConfirmation(ctx context.Context, orderID uuid.UUID, conf Confirmation) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !conf.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if s.db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client unavailable")
	}
	paidAt := conf.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	var confirmed *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if order.PaymentStatus == enums.PaymentStatusPaid {
			confirmed = order
			return nil
		}

		order.PaymentMethod = conf.Method
		order.PaymentStatus = enums.PaymentStatusPaid
		order.VerifiedAt = &paidAt
		order.VerifiedBy = conf.VerifiedBy
		if conf.Reference != "" {
			reference := conf.Reference
			order.GatewayReference = &reference
		}
		// A delivered or cancelled order keeps its status; late payment
		// evidence is still recorded but the lifecycle does not move back.
		if !order.Status.IsTerminal() {
			order.Status = enums.OrderStatusProcessing
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment confirmation")
		}

		if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(conf.VerifiedBy),
			Data: payloads.OrderPaymentConfirmedEvent{
				OrderID:     order.ID,
				OrderCode:   order.OrderCode,
				UserID:      order.CustomerID,
				Method:      conf.Method,
				AmountNaira: order.EffectivePriceNaira(),
				Reference:   conf.Reference,
				ConfirmedAt: paidAt,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue payment event")
		}

		confirmed = order
		s.metrics.IncConfirmation(conf.Method.String(), order.EffectivePriceNaira())
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id": order.ID.String(),
				"method":   conf.Method.String(),
				"channel":  conf.Channel,
			})
			s.logg.Info(logCtx, "payment confirmed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// VerifyAndConfirm pulls the transaction state from Paystack and funnels a
// successful one through ApplyConfirmation. Used when the webhook never
// arrived or the frontend lands on the callback URL first.
func (s *service) VerifyAndConfirm(ctx context.Context, reference string) (*models.Order, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway is not configured")
	}

	txn, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.metrics.IncGatewayError("verify")
		return nil, err
	}
	if !txn.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("transaction is %s, not successful", txn.Status))
	}

	order, err := s.orders.FindByGatewayReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if paid := txn.AmountNaira(); paid < order.EffectivePriceNaira() {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":       order.ID.String(),
				"expected_naira": order.EffectivePriceNaira(),
				"paid_naira":     paid,
			})
			s.logg.Warn(logCtx, "gateway amount below order price, confirmation refused")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "paid amount is below the order price")
	}

	return s.ApplyConfirmation(ctx, order.ID, Confirmation{
		Method:    enums.PaymentMethodGateway,
		Reference: txn.Reference,
		PaidAt:    parsePaidAt(txn.PaidAt),
		Channel:   txn.Channel,
	})
}

// ConfirmBankTransfer marks an uploaded transfer proof as verified by staff.
func (s *service) ConfirmBankTransfer(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ProofURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment proof")
	}

	verifiedBy := actor.ID
	confirmed, err := s.ApplyConfirmation(ctx, orderID, Confirmation{
		Method:     enums.PaymentMethodBankTransfer,
		PaidAt:     time.Now(),
		VerifiedBy: &verifiedBy,
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		targetID := confirmed.ID
		if err := s.audit.Record(ctx, audit.Entry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     enums.AuditActionPaymentVerified,
			TargetType: "order",
			TargetID:   &targetID,
		}); err != nil && s.logg != nil {
			logCtx := s.logg.WithField(ctx, "order_id", confirmed.ID.String())
			s.logg.Warn(logCtx, "audit write failed for payment verification")
		}
	}
	return confirmed, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.orders.FindByID(ctx, orderID)
}

func actorRef(verifiedBy *uuid.UUID) *outbox.ActorRef {
	if verifiedBy == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *verifiedBy, Role: string(enums.UserRoleAdmin)}
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
