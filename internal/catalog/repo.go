package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
)

// Repository exposes persistence for categories, packages, and classes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListCategories(ctx context.Context, includeComingSoon bool) ([]models.Category, error)
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListPackagesByCategory(ctx context.Context, categoryID uuid.UUID, activeOnly bool) ([]models.Package, error)
	FindPackageByID(ctx context.Context, id uuid.UUID) (*models.Package, error)
	FindPackageBySlug(ctx context.Context, slug string) (*models.Package, error)
	CreatePackage(ctx context.Context, pkg *models.Package) error
	UpdatePackage(ctx context.Context, pkg *models.Package) error
	DeletePackage(ctx context.Context, id uuid.UUID) error

	FindClassByID(ctx context.Context, id uuid.UUID) (*models.PackageClass, error)
	CreateClass(ctx context.Context, class *models.PackageClass) error
	UpdateClass(ctx context.Context, class *models.PackageClass) error
	DeleteClass(ctx context.Context, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListCategories(ctx context.Context, includeComingSoon bool) ([]models.Category, error) {
	query := r.db.WithContext(ctx).Model(&models.Category{})
	if !includeComingSoon {
		query = query.Where("coming_soon = ?", false)
	}
	var categories []models.Category
	if err := query.Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repositoryImpl) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repositoryImpl) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repositoryImpl) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repositoryImpl) UpdateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *repositoryImpl) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id).Error
}

func (r *repositoryImpl) ListPackagesByCategory(ctx context.Context, categoryID uuid.UUID, activeOnly bool) ([]models.Package, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("category_id = ?", categoryID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var packages []models.Package
	if err := query.
		Preload("Classes", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, price_naira ASC")
		}).
		Order("name ASC").
		Find(&packages).Error; err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *repositoryImpl) FindPackageByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).
		Preload("Classes", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, price_naira ASC")
		}).
		First(&pkg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repositoryImpl) FindPackageBySlug(ctx context.Context, slug string) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).
		Preload("Classes", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, price_naira ASC")
		}).
		Where("slug = ?", slug).
		First(&pkg).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repositoryImpl) CreatePackage(ctx context.Context, pkg *models.Package) error {
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *repositoryImpl) UpdatePackage(ctx context.Context, pkg *models.Package) error {
	return r.db.WithContext(ctx).Omit("Classes").Save(pkg).Error
}

func (r *repositoryImpl) DeletePackage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Package{}, "id = ?", id).Error
}

func (r *repositoryImpl) FindClassByID(ctx context.Context, id uuid.UUID) (*models.PackageClass, error) {
	var class models.PackageClass
	if err := r.db.WithContext(ctx).First(&class, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *repositoryImpl) CreateClass(ctx context.Context, class *models.PackageClass) error {
	if class.ID == uuid.Nil {
		class.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *repositoryImpl) UpdateClass(ctx context.Context, class *models.PackageClass) error {
	return r.db.WithContext(ctx).Save(class).Error
}

func (r *repositoryImpl) DeleteClass(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PackageClass{}, "id = ?", id).Error
}
