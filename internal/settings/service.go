package settings

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
)

// Actor identifies the staff member editing settings.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// UpdateRequest carries partial settings changes; nil fields stay untouched.
type UpdateRequest struct {
	BankName            *string `json:"bankName" validate:"omitempty,max=120"`
	AccountName         *string `json:"accountName" validate:"omitempty,max=120"`
	AccountNumber       *string `json:"accountNumber" validate:"omitempty,max=20"`
	GatewayEnabled      *bool   `json:"gatewayEnabled"`
	BankTransferEnabled *bool   `json:"bankTransferEnabled"`
	VirtualAcctEnabled  *bool   `json:"virtualAcctEnabled"`
}

// PublicSettings is the customer-facing view: which methods are open, plus
// transfer details when bank transfer is enabled.
type PublicSettings struct {
	GatewayEnabled      bool    `json:"gatewayEnabled"`
	BankTransferEnabled bool    `json:"bankTransferEnabled"`
	VirtualAcctEnabled  bool    `json:"virtualAcctEnabled"`
	BankName            *string `json:"bankName,omitempty"`
	AccountName         *string `json:"accountName,omitempty"`
	AccountNumber       *string `json:"accountNumber,omitempty"`
}

// Service exposes payment settings reads and the audited admin update.
type Service interface {
	Public(ctx context.Context) (*PublicSettings, error)
	Get(ctx context.Context) (*models.PaymentSettings, error)
	Update(ctx context.Context, actor Actor, req UpdateRequest) (*models.PaymentSettings, error)
}

type service struct {
	repo  Repository
	audit audit.Service
}

// NewService wires the settings service.
func NewService(repo Repository, auditSvc audit.Service) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings repository required")
	}
	return &service{repo: repo, audit: auditSvc}, nil
}

func (s *service) Public(ctx context.Context) (*PublicSettings, error) {
	settings, err := s.repo.Find(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment settings")
	}
	public := &PublicSettings{
		GatewayEnabled:      settings.GatewayEnabled,
		BankTransferEnabled: settings.BankTransferEnabled,
		VirtualAcctEnabled:  settings.VirtualAcctEnabled,
	}
	if settings.BankTransferEnabled {
		public.BankName = settings.BankName
		public.AccountName = settings.AccountName
		public.AccountNumber = settings.AccountNumber
	}
	return public, nil
}

func (s *service) Get(ctx context.Context) (*models.PaymentSettings, error) {
	settings, err := s.repo.Find(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment settings")
	}
	return settings, nil
}

func (s *service) Update(ctx context.Context, actor Actor, req UpdateRequest) (*models.PaymentSettings, error) {
	if actor.ID == uuid.Nil || !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}

	settings, err := s.repo.Find(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment settings")
	}

	if req.BankName != nil {
		settings.BankName = trimmedOrNil(*req.BankName)
	}
	if req.AccountName != nil {
		settings.AccountName = trimmedOrNil(*req.AccountName)
	}
	if req.AccountNumber != nil {
		settings.AccountNumber = trimmedOrNil(*req.AccountNumber)
	}
	if req.GatewayEnabled != nil {
		settings.GatewayEnabled = *req.GatewayEnabled
	}
	if req.BankTransferEnabled != nil {
		settings.BankTransferEnabled = *req.BankTransferEnabled
	}
	if req.VirtualAcctEnabled != nil {
		settings.VirtualAcctEnabled = *req.VirtualAcctEnabled
	}

	if !settings.GatewayEnabled && !settings.BankTransferEnabled && !settings.VirtualAcctEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one payment method must stay enabled")
	}
	enablingTransfer := req.BankTransferEnabled != nil && *req.BankTransferEnabled
	if enablingTransfer && (settings.BankName == nil || settings.AccountNumber == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank transfer needs bank name and account number")
	}

	updatedBy := actor.ID
	settings.UpdatedBy = &updatedBy
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment settings")
	}

	if s.audit != nil {
		targetID := settings.ID
		_ = s.audit.Record(ctx, audit.Entry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     enums.AuditActionSettingsUpdated,
			TargetType: "payment_settings",
			TargetID:   &targetID,
		})
	}
	return settings, nil
}

func trimmedOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
