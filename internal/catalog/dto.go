package catalog

import (
	"github.com/google/uuid"
)

// CreateCategoryRequest carries the fields for a new category.
type CreateCategoryRequest struct {
	Name       string `json:"name" validate:"required"`
	Slug       string `json:"slug" validate:"required"`
	ComingSoon bool   `json:"coming_soon"`
	SortOrder  int    `json:"sort_order"`
}

// UpdateCategoryRequest carries partial category updates.
type UpdateCategoryRequest struct {
	Name       *string `json:"name,omitempty"`
	Slug       *string `json:"slug,omitempty"`
	ComingSoon *bool   `json:"coming_soon,omitempty"`
	SortOrder  *int    `json:"sort_order,omitempty"`
}

// CreatePackageRequest carries the fields for a new package.
type CreatePackageRequest struct {
	CategoryID     uuid.UUID `json:"category_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	Slug           string    `json:"slug" validate:"required"`
	Description    *string   `json:"description,omitempty"`
	BasePriceNaira *int64    `json:"base_price_naira,omitempty" validate:"omitempty,min=0"`
	IsCustom       bool      `json:"is_custom"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Active         *bool     `json:"active,omitempty"`
}

// UpdatePackageRequest carries partial package updates.
type UpdatePackageRequest struct {
	Name           *string `json:"name,omitempty"`
	Slug           *string `json:"slug,omitempty"`
	Description    *string `json:"description,omitempty"`
	BasePriceNaira *int64  `json:"base_price_naira,omitempty" validate:"omitempty,min=0"`
	IsCustom       *bool   `json:"is_custom,omitempty"`
	ImageURL       *string `json:"image_url,omitempty"`
	Active         *bool   `json:"active,omitempty"`
}

// CreateClassRequest carries the fields for a new pricing tier.
type CreateClassRequest struct {
	PackageID   uuid.UUID `json:"package_id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	PriceNaira  int64     `json:"price_naira" validate:"min=0"`
	Description *string   `json:"description,omitempty"`
	SortOrder   int       `json:"sort_order"`
}

// UpdateClassRequest carries partial class updates.
type UpdateClassRequest struct {
	Name        *string `json:"name,omitempty"`
	PriceNaira  *int64  `json:"price_naira,omitempty" validate:"omitempty,min=0"`
	Description *string `json:"description,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}
