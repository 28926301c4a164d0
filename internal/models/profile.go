package models

const (
	RoleDriver   = "DRIVER"
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Verification statuses as the admin review workflow sets them. An empty
// string means the driver has not started verification yet.
const (
	VerificationPending  = "PENDING"
	VerificationRejected = "REJECTED"
	VerificationApproved = "APPROVED"
)

// VerificationProfile is a read-only snapshot; only the admin review
// workflow mutates it on the backend.
type VerificationProfile struct {
	UserID             string
	Role               string
	VerificationStatus string
}

func (p VerificationProfile) IsDriver() bool {
	return p.Role == RoleDriver
}
