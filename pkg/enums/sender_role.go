package enums

import "fmt"

// SenderRole tags which side of a chat thread authored a message.
type SenderRole string

const (
	SenderRoleCustomer SenderRole = "customer"
	SenderRoleAdmin    SenderRole = "admin"
)

var validSenderRoles = []SenderRole{
	SenderRoleCustomer,
	SenderRoleAdmin,
}

// String implements fmt.Stringer.
func (s SenderRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SenderRole.
func (s SenderRole) IsValid() bool {
	for _, candidate := range validSenderRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSenderRole converts raw input into a SenderRole.
func ParseSenderRole(value string) (SenderRole, error) {
	for _, candidate := range validSenderRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sender role %q", value)
}
