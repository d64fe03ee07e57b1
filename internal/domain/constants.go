package domain

// Account roles. A role is assigned once at account creation and never
// changes afterwards.
const (
	RoleAthlete = "athlete"
	RoleSponsor = "sponsor"
	RoleAdmin   = "admin"
)

// CreatableRole reports whether a role may be assigned through the public
// signup endpoint. Admin accounts are provisioned out of band.
func CreatableRole(role string) bool {
	return role == RoleAthlete || role == RoleSponsor
}

// Transfer statuses. COMPLETED and FAILED are terminal.
const (
	TransferStatusPending   = "PENDING"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusFailed    = "FAILED"
)

// Withdrawal statuses.
const (
	WithdrawalStatusPending    = "PENDING"
	WithdrawalStatusProcessing = "PROCESSING"
	WithdrawalStatusCompleted  = "COMPLETED"
	WithdrawalStatusFailed     = "FAILED"
)
