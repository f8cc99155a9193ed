package deliveries

import (
	"context"
	"errors"
	"strings"
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
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
	"github.com/jubileehq/jubilee-backend/pkg/outbox/payloads"
)

// Actor identifies the staff member managing deliveries.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// ScheduleRequest books or moves a delivery slot for an order.
type ScheduleRequest struct {
	ScheduledFor time.Time `json:"scheduledFor" validate:"required"`
	Address      string    `json:"address" validate:"required,max=500"`
	CourierNote  *string   `json:"courierNote" validate:"omitempty,max=1000"`
}

type dedupeEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service schedules and completes deliveries; completion closes the order.
type Service interface {
	Schedule(ctx context.Context, actor Actor, orderID uuid.UUID, req ScheduleRequest) (*models.Delivery, error)
	Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Delivery, error)
	GetForOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	ListUpcoming(ctx context.Context, limit int) ([]models.Delivery, error)
}

// ServiceParams bundles the delivery service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Orders  orders.Repository
	Emitter dedupeEmitter
	Audit   audit.Service
	Logger  *logger.Logger
}

type service struct {
	db      *db.Client
	repo    Repository
	orders  orders.Repository
	emitter dedupeEmitter
	audit   audit.Service
	logg    *logger.Logger
}

// NewService wires the deliveries service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deliveries repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		orders:  params.Orders,
		emitter: params.Emitter,
		audit:   params.Audit,
		logg:    params.Logger,
	}, nil
}

// Schedule creates the delivery row for an order, or moves the slot when one
// already exists. A completed delivery cannot be rescheduled.
func (s *service) Schedule(ctx context.Context, actor Actor, orderID uuid.UUID, req ScheduleRequest) (*models.Delivery, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if req.ScheduledFor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery date required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be scheduled")
	}

	delivery, err := s.repo.FindByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		delivery = &models.Delivery{
			OrderID:      orderID,
			ScheduledFor: req.ScheduledFor,
			Address:      address,
			CourierNote:  req.CourierNote,
		}
		if err := s.repo.Create(ctx, delivery); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	default:
		if delivery.DeliveredAt != nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already completed")
		}
		delivery.ScheduledFor = req.ScheduledFor
		delivery.Address = address
		delivery.CourierNote = req.CourierNote
		if err := s.repo.Save(ctx, delivery); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery")
		}
	}

	s.recordAudit(ctx, actor, enums.AuditActionDeliveryScheduled, delivery.ID)
	return delivery, nil
}

// Complete marks the delivery done and closes out the order. The delivered
// event is deduplicated so replays cannot fan out twice.
func (s *service) Complete(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Delivery, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if s.db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client unavailable")
	}

	var completed *models.Delivery
	now := time.Now().UTC()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		delivery, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "delivery not found")
		}
		if delivery.DeliveredAt != nil {
			completed = delivery
			return nil
		}

		order, err := ordersRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		delivery.DeliveredAt = &now
		if err := repo.Save(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery")
		}

		if order.Status != enums.OrderStatusCancelled {
			order.Status = enums.OrderStatusDelivered
			if err := ordersRepo.Save(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
			}
		}

		if err := s.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				OrderCode:   order.OrderCode,
				UserID:      order.CustomerID,
				DeliveredAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue delivered event")
		}

		if s.audit != nil {
			targetID := delivery.ID
			if err := s.audit.RecordTx(ctx, tx, audit.Entry{
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				Action:     enums.AuditActionDeliveryCompleted,
				TargetType: "delivery",
				TargetID:   &targetID,
			}); err != nil {
				return err
			}
		}

		completed = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *service) GetForOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	delivery, err := s.repo.FindByOrderID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return delivery, nil
}

func (s *service) ListUpcoming(ctx context.Context, limit int) ([]models.Delivery, error) {
	rows, err := s.repo.ListUpcoming(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}
	return rows, nil
}

func (s *service) recordAudit(ctx context.Context, actor Actor, action enums.AuditAction, targetID uuid.UUID) {
	if s.audit == nil {
		return
	}
	id := targetID
	if err := s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetType: "delivery",
		TargetID:   &id,
	}); err != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "delivery_id", targetID.String())
		s.logg.Warn(logCtx, "audit write failed for delivery")
	}
}
