package service

import (
	"context"

	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
)

// LedgerStore is the durable, append-mostly record of transfers.
//
// AppendTransfer is an atomic compare-and-insert keyed on ExternalRef: if a
// transfer with the same reference and identical sponsor/athlete/amount
// already exists it is returned instead of inserting; if the existing row
// differs in any of those fields the append fails with domain.ErrConflict.
// Infrastructure failures are wrapped with domain.ErrStoreUnavailable.
type LedgerStore interface {
	AppendTransfer(ctx context.Context, t *models.Transfer) (*models.Transfer, error)
	GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	GetTransferByExternalRef(ctx context.Context, ref string) (*models.Transfer, error)
	ListTransfers(ctx context.Context, filter models.TransferFilter) ([]models.Transfer, error)

	SumCompletedToAthlete(ctx context.Context, athleteID uuid.UUID) (int64, error)
	SumCompletedFromSponsor(ctx context.Context, sponsorID uuid.UUID) (int64, error)
	CountDistinctAthletes(ctx context.Context, sponsorID uuid.UUID) (int64, error)
	CompletedTotals(ctx context.Context) (volumeMicros, count int64, err error)
}

// AccountStore holds participant identity and payout-address bindings.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListAccountsByRole(ctx context.Context, role string) ([]models.Account, error)
	CountAccountsByRole(ctx context.Context) (map[string]int64, error)
	UpdatePayoutAddress(ctx context.Context, id uuid.UUID, address string) (*models.Account, error)
}

// WithdrawalStore records outbound settlement entries.
//
// AppendWithdrawal is a guarded insert: the athlete's availability (completed
// inbound transfers minus non-failed withdrawals) is checked and the row
// inserted as one atomic step, failing with domain.ErrInsufficientBalance, so
// concurrent requests cannot both reserve the same funds.
// ClaimPendingWithdrawals atomically moves up to limit PENDING withdrawals to
// PROCESSING and returns them, so concurrent workers never dispatch the same
// withdrawal twice. ResolveWithdrawal enforces the withdrawal state machine.
type WithdrawalStore interface {
	AppendWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, athleteID *uuid.UUID) ([]models.Withdrawal, error)
	ClaimPendingWithdrawals(ctx context.Context, limit int32) ([]models.Withdrawal, error)
	ResolveWithdrawal(ctx context.Context, id uuid.UUID, status string, gatewayRef *string) (*models.Withdrawal, error)
	SumActiveWithdrawals(ctx context.Context, athleteID uuid.UUID) (int64, error)
	LedgerSummaries(ctx context.Context) ([]models.AthleteLedgerSummary, error)
}

// AuditStore appends immutable audit records.
type AuditStore interface {
	InsertAudit(ctx context.Context, e *models.AuditEntry) error
}

// Store is the full data access contract required by the services. Both the
// Postgres repository and the in-memory store satisfy it.
type Store interface {
	LedgerStore
	AccountStore
	WithdrawalStore
	AuditStore
}
