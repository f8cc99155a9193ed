package models

import (
	"time"

	"github.com/google/uuid"
)

// Package is a catalog entry. Pricing comes from exactly one of: a fixed
// BasePriceNaira, a set of PackageClass tiers, or neither for custom-quote
// items (IsCustom).
type Package struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID     uuid.UUID      `gorm:"column:category_id;type:uuid;not null;index"`
	Name           string         `gorm:"column:name;type:text;not null"`
	Slug           string         `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Description    *string        `gorm:"column:description;type:text"`
	BasePriceNaira *int64         `gorm:"column:base_price_naira"`
	IsCustom       bool           `gorm:"column:is_custom;not null;default:false"`
	ImageURL       *string        `gorm:"column:image_url;type:text"`
	Active         bool           `gorm:"column:active;not null;default:true"`
	Classes        []PackageClass `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PackageClass is a named pricing tier (e.g. VIP, Special, Standard).
type PackageClass struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID   uuid.UUID `gorm:"column:package_id;type:uuid;not null;index"`
	Name        string    `gorm:"column:name;type:text;not null"`
	PriceNaira  int64     `gorm:"column:price_naira;not null"`
	Description *string   `gorm:"column:description;type:text"`
	SortOrder   int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
