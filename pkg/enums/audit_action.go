package enums

import "fmt"

// AuditAction tags what an admin mutation did, for the append-only audit log.
type AuditAction string

const (
	AuditActionCategoryCreated   AuditAction = "category_created"
	AuditActionCategoryUpdated   AuditAction = "category_updated"
	AuditActionCategoryDeleted   AuditAction = "category_deleted"
	AuditActionPackageCreated    AuditAction = "package_created"
	AuditActionPackageUpdated    AuditAction = "package_updated"
	AuditActionPackageDeleted    AuditAction = "package_deleted"
	AuditActionOrderResponded    AuditAction = "order_responded"
	AuditActionOrderPriceSet     AuditAction = "order_price_set"
	AuditActionOrderExpired      AuditAction = "order_expired"
	AuditActionPaymentVerified   AuditAction = "payment_verified"
	AuditActionSettingsUpdated   AuditAction = "settings_updated"
	AuditActionDeliveryScheduled AuditAction = "delivery_scheduled"
	AuditActionDeliveryCompleted AuditAction = "delivery_completed"
	AuditActionUserRoleChanged   AuditAction = "user_role_changed"
)

var validAuditActions = []AuditAction{
	AuditActionCategoryCreated,
	AuditActionCategoryUpdated,
	AuditActionCategoryDeleted,
	AuditActionPackageCreated,
	AuditActionPackageUpdated,
	AuditActionPackageDeleted,
	AuditActionOrderResponded,
	AuditActionOrderPriceSet,
	AuditActionOrderExpired,
	AuditActionPaymentVerified,
	AuditActionSettingsUpdated,
	AuditActionDeliveryScheduled,
	AuditActionDeliveryCompleted,
	AuditActionUserRoleChanged,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
