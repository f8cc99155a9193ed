package models

import (
	"time"

	"github.com/google/uuid"
)

// Delivery tracks the fulfillment schedule for one order.
type Delivery struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ScheduledFor time.Time  `gorm:"column:scheduled_for;not null"`
	Address      string     `gorm:"column:address;type:text;not null"`
	CourierNote  *string    `gorm:"column:courier_note;type:text"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
