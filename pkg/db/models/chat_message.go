package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/enums"
)

// ChatMessage is one append-only row in a customer's account-level chat,
// structurally the same as OrderMessage but keyed by user instead of order.
type ChatMessage struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	SenderID      uuid.UUID        `gorm:"column:sender_id;type:uuid;not null"`
	SenderRole    enums.SenderRole `gorm:"column:sender_role;type:sender_role;not null"`
	Body          *string          `gorm:"column:body;type:text"`
	AttachmentURL *string          `gorm:"column:attachment_url;type:text"`
	Read          bool             `gorm:"column:read;not null;default:false"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}
