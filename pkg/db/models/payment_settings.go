package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSettings carries the storefront-wide payment configuration an admin
// can edit: manual bank transfer details plus method toggles.
type PaymentSettings struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BankName            *string   `gorm:"column:bank_name;type:text"`
	AccountName         *string   `gorm:"column:account_name;type:text"`
	AccountNumber       *string   `gorm:"column:account_number;type:text"`
	GatewayEnabled      bool      `gorm:"column:gateway_enabled;not null;default:true"`
	BankTransferEnabled bool      `gorm:"column:bank_transfer_enabled;not null;default:true"`
	VirtualAcctEnabled  bool      `gorm:"column:virtual_acct_enabled;not null;default:false"`
	UpdatedBy           *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
