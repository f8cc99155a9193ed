package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order placed by a customer.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	OrderCode    string            `json:"order_code"`
	UserID       uuid.UUID         `json:"user_id"`
	Status       enums.OrderStatus `json:"status"`
	IsCustom     bool              `json:"is_custom"`
	FinalNaira   int64             `json:"final_naira"`
	PackageTitle string            `json:"package_title,omitempty"`
}

// OrderAdminRespondedEvent is emitted when staff posts a response on an order.
type OrderAdminRespondedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	OrderCode string            `json:"order_code"`
	UserID    uuid.UUID         `json:"user_id"`
	Status    enums.OrderStatus `json:"status"`
	Response  string            `json:"response"`
}

// OrderPriceSetEvent carries the admin quote for a custom request.
type OrderPriceSetEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	OrderCode       string    `json:"order_code"`
	UserID          uuid.UUID `json:"user_id"`
	AdminPriceNaira int64     `json:"admin_price_naira"`
}

// OrderPaymentConfirmedEvent is emitted once a payment is verified, whether
// via webhook, the verify endpoint, or manual admin confirmation.
type OrderPaymentConfirmedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderCode   string              `json:"order_code"`
	UserID      uuid.UUID           `json:"user_id"`
	Method      enums.PaymentMethod `json:"method"`
	AmountNaira int64               `json:"amount_naira"`
	Reference   string              `json:"reference,omitempty"`
	ConfirmedAt time.Time           `json:"confirmed_at"`
}

// OrderExpiredEvent describes the payload when unpaid orders lapse.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderCode string    `json:"order_code"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// OrderDeliveredEvent closes out the order lifecycle.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderCode   string    `json:"order_code"`
	UserID      uuid.UUID `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}
