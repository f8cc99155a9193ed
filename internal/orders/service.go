package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/internal/catalog"
	"github.com/jubileehq/jubilee-backend/pkg/config"
	"github.com/jubileehq/jubilee-backend/pkg/db"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/outbox"
	"github.com/jubileehq/jubilee-backend/pkg/outbox/payloads"
	"github.com/jubileehq/jubilee-backend/pkg/pagination"
)

// Actor identifies the staff member performing an admin order mutation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// Customer is the snapshot taken onto each order row at creation time.
type Customer struct {
	ID       uuid.UUID
	Name     string
	Email    string
	WhatsApp *string
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the order lifecycle operations.
type Service interface {
	Checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error)
	CreateCustomRequest(ctx context.Context, customerID uuid.UUID, req CustomRequest) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor string) (*OrderListResult, error)
	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListAdmin(ctx context.Context, status, paymentStatus string, limit int, cursor string) (*OrderListResult, error)
	AdminRespond(ctx context.Context, actor Actor, orderID uuid.UUID, req AdminRespondRequest) (*models.Order, error)
	UploadProof(ctx context.Context, customerID, orderID uuid.UUID, req UploadProofRequest) (*models.Order, error)
}

type service struct {
	db      *db.Client
	repo    Repository
	catalog catalog.Repository
	users   userLoader
	emitter outboxEmitter
	audit   audit.Service
	cfg     config.OrdersConfig
	logg    *logger.Logger
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Catalog catalog.Repository
	Users   userLoader
	Emitter outboxEmitter
	Audit   audit.Service
	Config  config.OrdersConfig
	Logger  *logger.Logger
}

// NewService wires the order lifecycle dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user loader required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit service required")
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		catalog: params.Catalog,
		users:   params.Users,
		emitter: params.Emitter,
		audit:   params.Audit,
		cfg:     params.Config,
		logg:    params.Logger,
	}, nil
}

// Checkout inserts one order per cart line. Lines are deliberately not
// wrapped in a single transaction: a failing line reports its error in the
// result while the rest of the cart goes through. Callers check Failed() to
// tell an entirely rejected cart apart from a partial one.
func (s *service) Checkout(ctx context.Context, customerID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}

	result := &CheckoutResult{Lines: make([]LineResult, 0, len(req.Lines))}
	for _, line := range req.Lines {
		order, err := s.placeLine(ctx, customer, line)
		item := LineResult{PackageID: line.PackageID}
		if err != nil {
			item.Error = errorMessage(err)
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"package_id": line.PackageID.String(),
					"error":      err.Error(),
				})
				s.logg.Warn(logCtx, "checkout line failed")
			}
		} else {
			item.Order = order
		}
		result.Lines = append(result.Lines, item)
	}

	return result, nil
}

func (s *service) placeLine(ctx context.Context, customer Customer, line CheckoutLine) (*models.Order, error) {
	if line.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	pkg, err := s.catalog.FindPackageByID(ctx, line.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup package")
	}
	if !pkg.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "package is not available")
	}
	if pkg.IsCustom {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom packages go through the quote request flow")
	}

	var unitPrice int64
	var className *string
	switch {
	case line.ClassID != nil:
		class, err := s.catalog.FindClassByID(ctx, *line.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package class not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup class")
		}
		if class.PackageID != pkg.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "class does not belong to package")
		}
		unitPrice = class.PriceNaira
		className = &class.Name
	case pkg.BasePriceNaira != nil:
		unitPrice = *pkg.BasePriceNaira
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package requires a class selection")
	}

	total, final := ComputeFinalNaira(unitPrice, line.Quantity, 0)

	// The sequence call happens outside the transaction: a failed statement
	// would otherwise abort the whole insert on Postgres.
	code := GenerateOrderCode(ctx, s.repo, s.cfg.CodePrefix, time.Now(), s.logg)

	var created *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			OrderCode:        code,
			CustomerID:       customer.ID,
			CustomerName:     customer.Name,
			CustomerEmail:    customer.Email,
			CustomerWhatsApp: customer.WhatsApp,
			PackageID:        &pkg.ID,
			PackageName:      pkg.Name,
			ClassName:        className,
			Quantity:         line.Quantity,
			Note:             line.Note,
			TotalNaira:       total,
			FinalNaira:       final,
			PaymentMethod:    enums.PaymentMethodGateway,
			PaymentStatus:    enums.PaymentStatusUnpaid,
			DeliveryDate:     line.DeliveryDate,
			Address:          line.Address,
			Status:           enums.OrderStatusPendingPayment,
		}
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:      order.ID,
				OrderCode:    order.OrderCode,
				UserID:       customer.ID,
				Status:       order.Status,
				FinalNaira:   order.FinalNaira,
				PackageTitle: order.PackageName,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateCustomRequest opens a waiting_for_price order with a zero final
// amount; an admin quote moves it onward.
func (s *service) CreateCustomRequest(ctx context.Context, customerID uuid.UUID, req CustomRequest) (*models.Order, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	request := strings.TrimSpace(req.Request)
	if request == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request text required")
	}
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	code := GenerateOrderCode(ctx, s.repo, s.cfg.CodePrefix, time.Now(), s.logg)

	var created *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			OrderCode:        code,
			CustomerID:       customer.ID,
			CustomerName:     customer.Name,
			CustomerEmail:    customer.Email,
			CustomerWhatsApp: customer.WhatsApp,
			PackageName:      "Custom request",
			Quantity:         req.Quantity,
			CustomRequest:    &request,
			PaymentMethod:    enums.PaymentMethodGateway,
			PaymentStatus:    enums.PaymentStatusUnpaid,
			DeliveryDate:     req.DeliveryDate,
			Address:          req.Address,
			Status:           enums.OrderStatusWaitingForPrice,
		}
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				OrderCode:  order.OrderCode,
				UserID:     customer.ID,
				Status:     order.Status,
				IsCustom:   true,
				FinalNaira: 0,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor string) (*OrderListResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	parsed, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByCustomer(ctx, ListParams{CustomerID: customerID, Limit: limit, Cursor: parsed})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return listResult(rows, next), nil
}

func (s *service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		// Leaks no existence information to other customers.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	return order, nil
}

func (s *service) ListAdmin(ctx context.Context, status, paymentStatus string, limit int, cursor string) (*OrderListResult, error) {
	params := AdminListParams{Limit: limit}
	if status != "" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &parsed
	}
	if paymentStatus != "" {
		parsed, err := enums.ParsePaymentStatus(paymentStatus)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter")
		}
		params.PaymentStatus = &parsed
	}
	parsedCursor, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	params.Cursor = parsedCursor

	rows, next, err := s.repo.ListAdmin(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return listResult(rows, next), nil
}

// AdminRespond is the one admin write path on an order: status, price
// override, and response message land in a single update. There is no
// version column; concurrent responds are last-write-wins.
func (s *service) AdminRespond(ctx context.Context, actor Actor, orderID uuid.UUID, req AdminRespondRequest) (*models.Order, error) {
	if req.Status == nil && req.AdminPriceNaira == nil && req.Response == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	var newStatus *enums.OrderStatus
	if req.Status != nil {
		parsed, err := enums.ParseOrderStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		newStatus = &parsed
	}
	if req.AdminPriceNaira != nil && *req.AdminPriceNaira < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	var updated *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
		}

		priceSet := false
		if req.AdminPriceNaira != nil {
			order.AdminPriceNaira = req.AdminPriceNaira
			priceSet = true
			// A quoted custom request becomes payable unless the admin
			// explicitly chose another status in the same call.
			if order.Status == enums.OrderStatusWaitingForPrice && newStatus == nil {
				status := enums.OrderStatusPendingPayment
				newStatus = &status
			}
		}
		if newStatus != nil {
			order.Status = *newStatus
		}
		responded := false
		if req.Response != nil {
			trimmed := strings.TrimSpace(*req.Response)
			if trimmed != "" {
				order.AdminResponse = &trimmed
				responded = true
			}
		}

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if priceSet {
			if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPriceSet,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
				Data: payloads.OrderPriceSetEvent{
					OrderID:         order.ID,
					OrderCode:       order.OrderCode,
					UserID:          order.CustomerID,
					AdminPriceNaira: *req.AdminPriceNaira,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue price event")
			}
		}
		if responded {
			if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderAdminResponded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
				Data: payloads.OrderAdminRespondedEvent{
					OrderID:   order.ID,
					OrderCode: order.OrderCode,
					UserID:    order.CustomerID,
					Status:    order.Status,
					Response:  *order.AdminResponse,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue response event")
			}
		}

		action := enums.AuditActionOrderResponded
		if priceSet {
			action = enums.AuditActionOrderPriceSet
		}
		details := fmt.Sprintf("order %s updated: status=%s", order.OrderCode, order.Status)
		if priceSet {
			details = fmt.Sprintf("order %s priced at %d naira", order.OrderCode, *req.AdminPriceNaira)
		}
		if err := s.audit.RecordTx(ctx, tx, audit.Entry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     action,
			TargetType: "order",
			TargetID:   &order.ID,
			Details:    &details,
		}); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UploadProof records a bank-transfer receipt and moves the payment into the
// pending (awaiting verification) state.
func (s *service) UploadProof(ctx context.Context, customerID, orderID uuid.UUID, req UploadProofRequest) (*models.Order, error) {
	var updated *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
		}

		order.PaymentMethod = enums.PaymentMethodBankTransfer
		order.PaymentStatus = enums.PaymentStatusPending
		order.ProofURL = &req.ProofURL
		order.ProofContentType = &req.ContentType
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) loadCustomer(ctx context.Context, customerID uuid.UUID) (Customer, error) {
	if customerID == uuid.Nil {
		return Customer{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	user, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Customer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown customer")
		}
		return Customer{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer")
	}
	return Customer{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		WhatsApp: user.WhatsApp,
	}, nil
}

func parseCursor(value string) (*pagination.Cursor, error) {
	if value == "" {
		return nil, nil
	}
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}

func listResult(rows []models.Order, next *pagination.Cursor) *OrderListResult {
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &OrderListResult{Items: rows, Cursor: cursor}
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
