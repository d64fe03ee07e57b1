package service

import (
	"context"
	"errors"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/athlink/sponsorledger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferService admits transfer requests into the ledger.
type TransferService struct {
	ledger   LedgerStore
	accounts AccountStore
}

func NewTransferService(ledger LedgerStore, accounts AccountStore) *TransferService {
	return &TransferService{ledger: ledger, accounts: accounts}
}

// CreateTransfer validates and appends a sponsor-to-athlete transfer.
//
// Admission is idempotent on externalRef: a retry bearing a reference the
// ledger already holds returns the originally stored transfer unchanged, with
// created reporting false. domain.ErrConflict can only arise from the append
// itself, when concurrent first-time requests race on one reference with
// mismatched fields. Balances are never written here; they are always derived
// from the ledger.
func (s *TransferService) CreateTransfer(ctx context.Context, sponsorID, athleteID uuid.UUID, amountMicros int64, externalRef *string) (*models.Transfer, bool, error) {
	sponsor, err := s.accounts.GetAccount(ctx, sponsorID)
	if err != nil {
		return nil, false, accountLookupErr(err)
	}
	athlete, err := s.accounts.GetAccount(ctx, athleteID)
	if err != nil {
		return nil, false, accountLookupErr(err)
	}
	if sponsor.Role != domain.RoleSponsor || athlete.Role != domain.RoleAthlete {
		observability.IncrementTransferAdmission("rejected")
		return nil, false, domain.ErrInvalidAccount
	}

	if amountMicros <= 0 {
		observability.IncrementTransferAdmission("rejected")
		return nil, false, domain.ErrInvalidAmount
	}

	// Idempotent short-circuit: an existing transfer with this reference is
	// returned as-is, without re-validating the request against it.
	if externalRef != nil && *externalRef != "" {
		existing, err := s.ledger.GetTransferByExternalRef(ctx, *externalRef)
		if err == nil {
			observability.IncrementTransferAdmission("replayed")
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	} else {
		externalRef = nil
	}

	transfer := &models.Transfer{
		ID:           uuid.New(),
		SponsorID:    sponsorID,
		AthleteID:    athleteID,
		AmountMicros: amountMicros,
		ExternalRef:  externalRef,
		Status:       domain.TransferStatusPending,
	}
	// Settlement is synchronous in this design: the transfer resolves within
	// the same admission operation and is appended in its terminal state.
	transfer.Status = domain.TransferStatusCompleted

	stored, err := s.ledger.AppendTransfer(ctx, transfer)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.IncrementTransferAdmission("conflict")
		} else {
			observability.IncrementTransferAdmission("store_error")
		}
		return nil, false, err
	}

	created := stored.ID == transfer.ID
	if created {
		observability.IncrementTransferAdmission("created")
		zap.L().Info("transfer admitted",
			zap.String("transfer_id", stored.ID.String()),
			zap.String("sponsor_id", sponsorID.String()),
			zap.String("athlete_id", athleteID.String()),
			zap.Int64("amount_micros", amountMicros),
		)
	} else {
		// A concurrent request with the same reference won the insert.
		observability.IncrementTransferAdmission("replayed")
	}
	return stored, created, nil
}

func accountLookupErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		observability.IncrementTransferAdmission("rejected")
		return domain.ErrInvalidAccount
	}
	return err
}
