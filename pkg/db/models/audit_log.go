package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/enums"
)

// AuditLogEntry is an append-only record of an admin action. The application
// only ever inserts and lists; rows are never updated or deleted.
type AuditLogEntry struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    uuid.UUID         `gorm:"column:actor_id;type:uuid;not null;index"`
	ActorRole  enums.UserRole    `gorm:"column:actor_role;type:user_role;not null"`
	Action     enums.AuditAction `gorm:"column:action;type:audit_action;not null;index"`
	TargetType string            `gorm:"column:target_type;type:text;not null"`
	TargetID   *uuid.UUID        `gorm:"column:target_id;type:uuid"`
	Details    *string           `gorm:"column:details;type:text"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
