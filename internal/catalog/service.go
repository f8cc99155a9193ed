package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
)

// Actor identifies the admin performing a catalog mutation, for auditing.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// Service exposes the catalog read and admin-write operations.
type Service interface {
	ListCategories(ctx context.Context, includeComingSoon bool) ([]models.Category, error)
	ListPackages(ctx context.Context, categoryID uuid.UUID, activeOnly bool) ([]models.Package, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, error)
	GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error)

	CreateCategory(ctx context.Context, actor Actor, req CreateCategoryRequest) (*models.Category, error)
	UpdateCategory(ctx context.Context, actor Actor, id uuid.UUID, req UpdateCategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor Actor, id uuid.UUID) error

	CreatePackage(ctx context.Context, actor Actor, req CreatePackageRequest) (*models.Package, error)
	UpdatePackage(ctx context.Context, actor Actor, id uuid.UUID, req UpdatePackageRequest) (*models.Package, error)
	DeletePackage(ctx context.Context, actor Actor, id uuid.UUID) error

	CreateClass(ctx context.Context, actor Actor, req CreateClassRequest) (*models.PackageClass, error)
	UpdateClass(ctx context.Context, actor Actor, id uuid.UUID, req UpdateClassRequest) (*models.PackageClass, error)
	DeleteClass(ctx context.Context, actor Actor, id uuid.UUID) error
}

type service struct {
	repo  Repository
	audit audit.Service
}

// NewService wires catalog dependencies.
func NewService(repo Repository, auditSvc audit.Service) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if auditSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit service required")
	}
	return &service{repo: repo, audit: auditSvc}, nil
}

func (s *service) ListCategories(ctx context.Context, includeComingSoon bool) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx, includeComingSoon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func (s *service) ListPackages(ctx context.Context, categoryID uuid.UUID, activeOnly bool) ([]models.Package, error) {
	if categoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}
	if activeOnly && category.ComingSoon {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	packages, err := s.repo.ListPackagesByCategory(ctx, categoryID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	return packages, nil
}

func (s *service) GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	pkg, err := s.repo.FindPackageByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup package")
	}
	return pkg, nil
}

func (s *service) GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	pkg, err := s.repo.FindPackageBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup package")
	}
	return pkg, nil
}

func (s *service) CreateCategory(ctx context.Context, actor Actor, req CreateCategoryRequest) (*models.Category, error) {
	category := &models.Category{
		Name:       strings.TrimSpace(req.Name),
		Slug:       normalizeSlug(req.Slug),
		ComingSoon: req.ComingSoon,
		SortOrder:  req.SortOrder,
	}
	if category.Slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	s.recordAudit(ctx, actor, enums.AuditActionCategoryCreated, "category", &category.ID, fmt.Sprintf("created category %q", category.Name))
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, actor Actor, id uuid.UUID, req UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}

	if req.Name != nil {
		category.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		category.Slug = normalizeSlug(*req.Slug)
	}
	if req.ComingSoon != nil {
		category.ComingSoon = *req.ComingSoon
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	s.recordAudit(ctx, actor, enums.AuditActionCategoryUpdated, "category", &category.ID, fmt.Sprintf("updated category %q", category.Name))
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	s.recordAudit(ctx, actor, enums.AuditActionCategoryDeleted, "category", &id, "deleted category")
	return nil
}

func (s *service) CreatePackage(ctx context.Context, actor Actor, req CreatePackageRequest) (*models.Package, error) {
	if req.IsCustom && req.BasePriceNaira != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom packages cannot carry a fixed price")
	}
	if _, err := s.repo.FindCategoryByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	pkg := &models.Package{
		CategoryID:     req.CategoryID,
		Name:           strings.TrimSpace(req.Name),
		Slug:           normalizeSlug(req.Slug),
		Description:    req.Description,
		BasePriceNaira: req.BasePriceNaira,
		IsCustom:       req.IsCustom,
		ImageURL:       req.ImageURL,
		Active:         active,
	}
	if pkg.Slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	if err := s.repo.CreatePackage(ctx, pkg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package")
	}
	s.recordAudit(ctx, actor, enums.AuditActionPackageCreated, "package", &pkg.ID, fmt.Sprintf("created package %q", pkg.Name))
	return pkg, nil
}

func (s *service) UpdatePackage(ctx context.Context, actor Actor, id uuid.UUID, req UpdatePackageRequest) (*models.Package, error) {
	pkg, err := s.repo.FindPackageByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup package")
	}

	if req.Name != nil {
		pkg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		pkg.Slug = normalizeSlug(*req.Slug)
	}
	if req.Description != nil {
		pkg.Description = req.Description
	}
	if req.BasePriceNaira != nil {
		pkg.BasePriceNaira = req.BasePriceNaira
	}
	if req.IsCustom != nil {
		pkg.IsCustom = *req.IsCustom
	}
	if req.ImageURL != nil {
		pkg.ImageURL = req.ImageURL
	}
	if req.Active != nil {
		pkg.Active = *req.Active
	}
	if pkg.IsCustom && pkg.BasePriceNaira != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom packages cannot carry a fixed price")
	}
	if err := s.repo.UpdatePackage(ctx, pkg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package")
	}
	s.recordAudit(ctx, actor, enums.AuditActionPackageUpdated, "package", &pkg.ID, fmt.Sprintf("updated package %q", pkg.Name))
	return pkg, nil
}

func (s *service) DeletePackage(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.repo.FindPackageByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup package")
	}
	if err := s.repo.DeletePackage(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete package")
	}
	s.recordAudit(ctx, actor, enums.AuditActionPackageDeleted, "package", &id, "deleted package")
	return nil
}

func (s *service) CreateClass(ctx context.Context, actor Actor, req CreateClassRequest) (*models.PackageClass, error) {
	pkg, err := s.repo.FindPackageByID(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup package")
	}
	// Tiers only make sense on class-priced packages.
	if pkg.IsCustom || pkg.BasePriceNaira != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "package does not use class pricing")
	}

	class := &models.PackageClass{
		PackageID:   req.PackageID,
		Name:        strings.TrimSpace(req.Name),
		PriceNaira:  req.PriceNaira,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create class")
	}
	s.recordAudit(ctx, actor, enums.AuditActionPackageUpdated, "package_class", &class.ID, fmt.Sprintf("added class %q", class.Name))
	return class, nil
}

func (s *service) UpdateClass(ctx context.Context, actor Actor, id uuid.UUID, req UpdateClassRequest) (*models.PackageClass, error) {
	class, err := s.repo.FindClassByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "class not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup class")
	}

	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.PriceNaira != nil {
		class.PriceNaira = *req.PriceNaira
	}
	if req.Description != nil {
		class.Description = req.Description
	}
	if req.SortOrder != nil {
		class.SortOrder = *req.SortOrder
	}
	if err := s.repo.UpdateClass(ctx, class); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update class")
	}
	s.recordAudit(ctx, actor, enums.AuditActionPackageUpdated, "package_class", &class.ID, fmt.Sprintf("updated class %q", class.Name))
	return class, nil
}

func (s *service) DeleteClass(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.repo.FindClassByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "class not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup class")
	}
	if err := s.repo.DeleteClass(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete class")
	}
	s.recordAudit(ctx, actor, enums.AuditActionPackageUpdated, "package_class", &id, "deleted class")
	return nil
}

// recordAudit never fails the mutation; the catalog change has already
// committed by the time the entry is appended.
func (s *service) recordAudit(ctx context.Context, actor Actor, action enums.AuditAction, targetType string, targetID *uuid.UUID, details string) {
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    &details,
	})
}

func normalizeSlug(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
