package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
)

// CheckoutLine is one cart line; each line becomes its own order row.
type CheckoutLine struct {
	PackageID    uuid.UUID  `json:"package_id" validate:"required"`
	ClassID      *uuid.UUID `json:"class_id,omitempty"`
	Quantity     int        `json:"quantity" validate:"required,min=1"`
	Note         *string    `json:"note,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Address      *string    `json:"address,omitempty"`
}

// CheckoutRequest carries the cart submitted by a customer.
type CheckoutRequest struct {
	Lines []CheckoutLine `json:"lines" validate:"required,min=1,max=20,dive"`
}

// LineResult reports the per-line outcome of a checkout. Lines are inserted
// independently, so one line can fail while its siblings succeed.
type LineResult struct {
	PackageID uuid.UUID     `json:"package_id"`
	Order     *models.Order `json:"order,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// CheckoutResult wraps the per-line outcomes.
type CheckoutResult struct {
	Lines []LineResult `json:"lines"`
}

// Failed reports whether every line failed.
func (r CheckoutResult) Failed() bool {
	for _, line := range r.Lines {
		if line.Error == "" {
			return false
		}
	}
	return len(r.Lines) > 0
}

// CustomRequest captures a free-text quote request.
type CustomRequest struct {
	Request      string     `json:"request" validate:"required"`
	Quantity     int        `json:"quantity" validate:"required,min=1"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Address      *string    `json:"address,omitempty"`
}

// AdminRespondRequest is the single admin mutation on an order: status,
// optional price override, and an optional response message. Any combination
// of the three may be present.
type AdminRespondRequest struct {
	Status          *string `json:"status,omitempty"`
	AdminPriceNaira *int64  `json:"admin_price_naira,omitempty" validate:"omitempty,min=0"`
	Response        *string `json:"response,omitempty"`
}

// UploadProofRequest records an uploaded bank-transfer receipt.
type UploadProofRequest struct {
	ProofURL    string `json:"proof_url" validate:"required,url"`
	ContentType string `json:"content_type" validate:"required"`
}

// OrderListResult wraps a page of orders plus the next cursor.
type OrderListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}
