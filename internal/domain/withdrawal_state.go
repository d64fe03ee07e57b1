package domain

import "strings"

var withdrawalTransitions = map[string]map[string]struct{}{
	WithdrawalStatusPending: {
		WithdrawalStatusProcessing: {},
		WithdrawalStatusFailed:     {},
	},
	WithdrawalStatusProcessing: {
		WithdrawalStatusPending:   {},
		WithdrawalStatusCompleted: {},
		WithdrawalStatusFailed:    {},
	},
	WithdrawalStatusCompleted: {},
	WithdrawalStatusFailed:    {},
}

// NormalizeStatus canonicalizes a status value for comparison.
func NormalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// CanTransitionWithdrawal reports whether a withdrawal may move from current
// to next. COMPLETED and FAILED are terminal.
func CanTransitionWithdrawal(current, next string) bool {
	nextStates, ok := withdrawalTransitions[NormalizeStatus(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[NormalizeStatus(next)]
	return ok
}
