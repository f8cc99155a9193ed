package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  coming_soon INTEGER NOT NULL DEFAULT 0,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	packages := `
CREATE TABLE IF NOT EXISTS packages (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  base_price_naira INTEGER,
  is_custom INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	classes := `
CREATE TABLE IF NOT EXISTS package_classes (
  id TEXT PRIMARY KEY,
  package_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_naira INTEGER NOT NULL,
  description TEXT,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	for _, stmt := range []string{categories, packages, classes} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestListCategoriesHidesComingSoon(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	live := &models.Category{ID: uuid.New(), Name: "Birthdays", Slug: "birthdays", SortOrder: 1}
	soon := &models.Category{ID: uuid.New(), Name: "Weddings", Slug: "weddings", ComingSoon: true, SortOrder: 2}
	require.NoError(t, repo.CreateCategory(ctx, live))
	require.NoError(t, repo.CreateCategory(ctx, soon))

	visible, err := repo.ListCategories(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "birthdays", visible[0].Slug)

	all, err := repo.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListPackagesPreloadsOrderedClasses(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	category := &models.Category{ID: uuid.New(), Name: "Birthdays", Slug: "birthdays"}
	require.NoError(t, repo.CreateCategory(ctx, category))

	pkg := &models.Package{
		ID:         uuid.New(),
		CategoryID: category.ID,
		Name:       "Celebration Box",
		Slug:       "celebration-box",
		Active:     true,
	}
	require.NoError(t, repo.CreatePackage(ctx, pkg))

	vip := &models.PackageClass{ID: uuid.New(), PackageID: pkg.ID, Name: "VIP", PriceNaira: 500000, SortOrder: 1}
	standard := &models.PackageClass{ID: uuid.New(), PackageID: pkg.ID, Name: "Standard", PriceNaira: 150000, SortOrder: 3}
	special := &models.PackageClass{ID: uuid.New(), PackageID: pkg.ID, Name: "Special", PriceNaira: 300000, SortOrder: 2}
	for _, class := range []*models.PackageClass{vip, standard, special} {
		require.NoError(t, repo.CreateClass(ctx, class))
	}

	packages, err := repo.ListPackagesByCategory(ctx, category.ID, true)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	require.Len(t, packages[0].Classes, 3)
	assert.Equal(t, "VIP", packages[0].Classes[0].Name)
	assert.Equal(t, "Special", packages[0].Classes[1].Name)
	assert.Equal(t, "Standard", packages[0].Classes[2].Name)
}

func TestListPackagesFiltersInactive(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	category := &models.Category{ID: uuid.New(), Name: "Anniversaries", Slug: "anniversaries"}
	require.NoError(t, repo.CreateCategory(ctx, category))

	price := int64(250000)
	active := &models.Package{ID: uuid.New(), CategoryID: category.ID, Name: "Gold", Slug: "gold", BasePriceNaira: &price, Active: true}
	retired := &models.Package{ID: uuid.New(), CategoryID: category.ID, Name: "Old", Slug: "old", Active: false}
	require.NoError(t, repo.CreatePackage(ctx, active))
	require.NoError(t, repo.CreatePackage(ctx, retired))

	visible, err := repo.ListPackagesByCategory(ctx, category.ID, true)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "gold", visible[0].Slug)

	all, err := repo.ListPackagesByCategory(ctx, category.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
