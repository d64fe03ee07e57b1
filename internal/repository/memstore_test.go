package repository

import (
	"context"
	"testing"
	"time"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemAccount(t *testing.T, store *MemStore, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.CreateAccount(context.Background(), &models.Account{
		ID:          id,
		Role:        role,
		DisplayName: role + "-" + id.String()[:8],
	}))
	return id
}

func memTransfer(sponsorID, athleteID uuid.UUID, micros int64, ref *string) *models.Transfer {
	return &models.Transfer{
		ID:           uuid.New(),
		SponsorID:    sponsorID,
		AthleteID:    athleteID,
		AmountMicros: micros,
		ExternalRef:  ref,
		Status:       domain.TransferStatusCompleted,
	}
}

func ref(s string) *string { return &s }

func TestMemStoreAppendTransferCompareAndInsert(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	sponsor := seedMemAccount(t, store, domain.RoleSponsor)
	athlete := seedMemAccount(t, store, domain.RoleAthlete)

	first := memTransfer(sponsor, athlete, 1_000_000, ref("r-1"))
	stored, err := store.AppendTransfer(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)

	// Identical payload with the same reference returns the original row.
	dup := memTransfer(sponsor, athlete, 1_000_000, ref("r-1"))
	replayed, err := store.AppendTransfer(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replayed.ID)

	// Any field mismatch under the same reference is a conflict.
	diffAmount := memTransfer(sponsor, athlete, 2_000_000, ref("r-1"))
	_, err = store.AppendTransfer(ctx, diffAmount)
	require.ErrorIs(t, err, domain.ErrConflict)

	otherSponsor := seedMemAccount(t, store, domain.RoleSponsor)
	diffSponsor := memTransfer(otherSponsor, athlete, 1_000_000, ref("r-1"))
	_, err = store.AppendTransfer(ctx, diffSponsor)
	require.ErrorIs(t, err, domain.ErrConflict)

	transfers, err := store.ListTransfers(ctx, models.TransferFilter{})
	require.NoError(t, err)
	assert.Len(t, transfers, 1)

	// Transfers without a reference never collide.
	_, err = store.AppendTransfer(ctx, memTransfer(sponsor, athlete, 1_000_000, nil))
	require.NoError(t, err)
	_, err = store.AppendTransfer(ctx, memTransfer(sponsor, athlete, 1_000_000, nil))
	require.NoError(t, err)
	transfers, err = store.ListTransfers(ctx, models.TransferFilter{})
	require.NoError(t, err)
	assert.Len(t, transfers, 3)
}

func TestMemStoreListTransfersFilterAndPaging(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	sponsor := seedMemAccount(t, store, domain.RoleSponsor)
	athleteA := seedMemAccount(t, store, domain.RoleAthlete)
	athleteB := seedMemAccount(t, store, domain.RoleAthlete)

	var last uuid.UUID
	for i := 0; i < 3; i++ {
		tr := memTransfer(sponsor, athleteA, int64(i+1)*1_000_000, nil)
		_, err := store.AppendTransfer(ctx, tr)
		require.NoError(t, err)
		last = tr.ID
	}
	_, err := store.AppendTransfer(ctx, memTransfer(sponsor, athleteB, 9_000_000, nil))
	require.NoError(t, err)

	// Participant filter matches both sides.
	forA, err := store.ListTransfers(ctx, models.TransferFilter{ParticipantID: &athleteA})
	require.NoError(t, err)
	assert.Len(t, forA, 3)

	forSponsor, err := store.ListTransfers(ctx, models.TransferFilter{ParticipantID: &sponsor})
	require.NoError(t, err)
	assert.Len(t, forSponsor, 4)

	// Newest first.
	all, err := store.ListTransfers(ctx, models.TransferFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.NotEqual(t, last, all[0].ID) // athleteB's transfer was appended last
	assert.Equal(t, athleteB, all[0].AthleteID)

	// Limit and offset.
	page, err := store.ListTransfers(ctx, models.TransferFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	empty, err := store.ListTransfers(ctx, models.TransferFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemStoreAppendWithdrawalGuardsAvailability(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	sponsor := seedMemAccount(t, store, domain.RoleSponsor)
	athlete := seedMemAccount(t, store, domain.RoleAthlete)

	withdrawal := func(micros int64) *models.Withdrawal {
		return &models.Withdrawal{
			ID:           uuid.New(),
			AthleteID:    athlete,
			AmountMicros: micros,
			Address:      "addr-1",
			Status:       domain.WithdrawalStatusPending,
		}
	}

	// Nothing received yet, nothing may be withdrawn.
	err := store.AppendWithdrawal(ctx, withdrawal(1))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = store.AppendTransfer(ctx, memTransfer(sponsor, athlete, 2_000_000, nil))
	require.NoError(t, err)

	first := withdrawal(1_500_000)
	require.NoError(t, store.AppendWithdrawal(ctx, first))

	// The pending withdrawal reserves its amount.
	err = store.AppendWithdrawal(ctx, withdrawal(1_000_000))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// A failed withdrawal releases the reservation.
	claimed, err := store.ClaimPendingWithdrawals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	_, err = store.ResolveWithdrawal(ctx, first.ID, domain.WithdrawalStatusFailed, nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendWithdrawal(ctx, withdrawal(1_000_000)))
}

func TestMemStoreWithdrawalClaimAndResolve(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	sponsor := seedMemAccount(t, store, domain.RoleSponsor)
	athlete := seedMemAccount(t, store, domain.RoleAthlete)

	_, err := store.AppendTransfer(ctx, memTransfer(sponsor, athlete, 3_000_000, nil))
	require.NoError(t, err)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		w := &models.Withdrawal{
			ID:           uuid.New(),
			AthleteID:    athlete,
			AmountMicros: 1_000_000,
			Address:      "addr-1",
			Status:       domain.WithdrawalStatusPending,
			CreatedAt:    time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, store.AppendWithdrawal(ctx, w))
		ids = append(ids, w.ID)
	}

	claimed, err := store.ClaimPendingWithdrawals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, ids[0], claimed[0].ID, "oldest pending first")
	for _, w := range claimed {
		assert.Equal(t, domain.WithdrawalStatusProcessing, w.Status)
	}

	// A claimed withdrawal cannot be claimed again.
	rest, err := store.ClaimPendingWithdrawals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[2], rest[0].ID)

	gwRef := "GW-1"
	resolved, err := store.ResolveWithdrawal(ctx, claimed[0].ID, domain.WithdrawalStatusCompleted, &gwRef)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusCompleted, resolved.Status)
	require.NotNil(t, resolved.GatewayRef)

	// Replaying the same resolution is a no-op, not an error.
	again, err := store.ResolveWithdrawal(ctx, claimed[0].ID, domain.WithdrawalStatusCompleted, &gwRef)
	require.NoError(t, err)
	assert.Equal(t, resolved.Status, again.Status)

	// A settled withdrawal cannot move again.
	_, err = store.ResolveWithdrawal(ctx, claimed[0].ID, domain.WithdrawalStatusFailed, nil)
	require.Error(t, err)

	_, err = store.ResolveWithdrawal(ctx, uuid.New(), domain.WithdrawalStatusCompleted, nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemStoreSums(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	sponsor := seedMemAccount(t, store, domain.RoleSponsor)
	athlete := seedMemAccount(t, store, domain.RoleAthlete)

	_, err := store.AppendTransfer(ctx, memTransfer(sponsor, athlete, 2_000_000, nil))
	require.NoError(t, err)
	pending := memTransfer(sponsor, athlete, 5_000_000, nil)
	pending.Status = domain.TransferStatusPending
	_, err = store.AppendTransfer(ctx, pending)
	require.NoError(t, err)

	// Only completed transfers count toward balances.
	sum, err := store.SumCompletedToAthlete(ctx, athlete)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), sum)

	sent, err := store.SumCompletedFromSponsor(ctx, sponsor)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), sent)

	volume, count, err := store.CompletedTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), volume)
	assert.Equal(t, int64(1), count)

	summaries, err := store.LedgerSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(2_000_000), summaries[0].ReceivedMicros)
}
