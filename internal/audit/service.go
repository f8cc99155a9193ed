package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/pagination"
)

// Entry describes one audit record to append.
type Entry struct {
	ActorID    uuid.UUID
	ActorRole  enums.UserRole
	Action     enums.AuditAction
	TargetType string
	TargetID   *uuid.UUID
	Details    *string
}

// ListParams configures pagination and filters for the audit trail.
type ListParams struct {
	Action     string
	TargetType string
	TargetID   *uuid.UUID
	Limit      int
	Cursor     string
}

// ListResult wraps returned entries and the cursor for the next page.
type ListResult struct {
	Items  []models.AuditLogEntry `json:"items"`
	Cursor string                 `json:"cursor"`
}

// Service records and lists audit entries.
type Service interface {
	Record(ctx context.Context, entry Entry) error
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
}

// NewService wires the audit dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	return s.record(ctx, s.repo, entry)
}

// RecordTx appends the entry inside the caller's transaction so the audit row
// commits or rolls back together with the mutation it describes.
func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) error {
	return s.record(ctx, s.repo.WithTx(tx), entry)
}

func (s *service) record(ctx context.Context, repo Repository, entry Entry) error {
	if entry.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !entry.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid audit action")
	}
	if entry.TargetType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "target type required")
	}

	row := &models.AuditLogEntry{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		Details:    entry.Details,
	}
	if err := repo.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listParams{
		TargetType: params.TargetType,
		TargetID:   params.TargetID,
		Limit:      params.Limit,
	}
	if params.Action != "" {
		action, err := enums.ParseAuditAction(params.Action)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action filter")
		}
		query.Action = &action
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
