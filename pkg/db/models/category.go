package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups packages; coming-soon categories stay hidden from customers.
type Category struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;type:text;not null"`
	Slug       string    `gorm:"column:slug;type:text;not null;uniqueIndex"`
	ComingSoon bool      `gorm:"column:coming_soon;not null;default:false"`
	SortOrder  int       `gorm:"column:sort_order;not null;default:0"`
	Packages   []Package `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
