package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/enums"
)

// Order is one purchase request; package and customer fields are snapshots
// taken at order time, not live references.
type Order struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode string    `gorm:"column:order_code;type:text;not null;uniqueIndex"`

	CustomerID       uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	CustomerName     string     `gorm:"column:customer_name;type:text;not null"`
	CustomerEmail    string     `gorm:"column:customer_email;type:text;not null"`
	CustomerWhatsApp *string    `gorm:"column:customer_whatsapp;type:text"`

	PackageID     *uuid.UUID `gorm:"column:package_id;type:uuid"`
	PackageName   string     `gorm:"column:package_name;type:text;not null"`
	ClassName     *string    `gorm:"column:class_name;type:text"`
	Quantity      int        `gorm:"column:quantity;not null;default:1"`
	Note          *string    `gorm:"column:note;type:text"`
	CustomRequest *string    `gorm:"column:custom_request;type:text"`

	TotalNaira      int64  `gorm:"column:total_naira;not null;default:0"`
	DiscountNaira   int64  `gorm:"column:discount_naira;not null;default:0"`
	FinalNaira      int64  `gorm:"column:final_naira;not null;default:0"`
	AdminPriceNaira *int64 `gorm:"column:admin_price_naira"`

	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'gateway'"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	ProofURL         *string             `gorm:"column:proof_url;type:text"`
	ProofContentType *string             `gorm:"column:proof_content_type;type:text"`
	GatewayReference *string             `gorm:"column:gateway_reference;type:text;index"`
	VerifiedAt       *time.Time          `gorm:"column:verified_at"`
	VerifiedBy       *uuid.UUID          `gorm:"column:verified_by;type:uuid"`

	DeliveryDate  *time.Time `gorm:"column:delivery_date"`
	DeliveryNotes *string    `gorm:"column:delivery_notes;type:text"`
	Address       *string    `gorm:"column:address;type:text"`

	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	AdminResponse *string           `gorm:"column:admin_response;type:text"`

	Messages []OrderMessage `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery *Delivery      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePriceNaira is the single source of truth for what an order costs:
// the admin override when present, otherwise the computed final price.
func (o Order) EffectivePriceNaira() int64 {
	if o.AdminPriceNaira != nil {
		return *o.AdminPriceNaira
	}
	return o.FinalNaira
}
