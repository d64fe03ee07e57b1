package service

import (
	"context"
	"sync"
	"testing"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceDerivedFromLedger(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	balances := NewBalanceService(store, store, store)
	ctx := context.Background()

	sponsorA := seedAccount(t, store, domain.RoleSponsor, "acme")
	sponsorB := seedAccount(t, store, domain.RoleSponsor, "globex")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")

	// Empty ledger derives a zero balance, not an error.
	balance, err := balances.BalanceOf(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, _, err = transfers.CreateTransfer(ctx, sponsorA.ID, athlete.ID, 2_500_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsorB.ID, athlete.ID, 1_000_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsorA.ID, athlete.ID, 500_000, nil)
	require.NoError(t, err)

	balance, err = balances.BalanceOf(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("4")), "got %s", balance)

	totalA, err := balances.TotalSentBy(ctx, sponsorA.ID)
	require.NoError(t, err)
	assert.True(t, totalA.Equal(decimal.RequireFromString("3")), "got %s", totalA)

	countA, err := balances.UniqueCounterpartiesOf(ctx, sponsorA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countA)
}

func TestBalanceExactDecimalArithmetic(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	balances := NewBalanceService(store, store, store)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")

	// 0.1 + 0.2 must be exactly 0.3.
	for _, amount := range []string{"0.1", "0.2"} {
		micros, err := domain.ParseAmount(amount)
		require.NoError(t, err)
		_, _, err = transfers.CreateTransfer(ctx, sponsor.ID, athlete.ID, micros, nil)
		require.NoError(t, err)
	}

	balance, err := balances.BalanceOf(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("0.3")), "got %s", balance)
}

func TestBalanceUnknownAthleteIsZero(t *testing.T) {
	store := repository.NewMemStore()
	balances := NewBalanceService(store, store, store)

	balance, err := balances.BalanceOf(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAvailableBalanceSubtractsWithdrawals(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	balances := NewBalanceService(store, store, store)
	withdrawals := NewWithdrawalService(store, &stubGateway{ref: "GW-1"})
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAthleteWithAddress(t, store, "runner", "addr-1")

	_, _, err := transfers.CreateTransfer(ctx, sponsor.ID, athlete.ID, 10_000_000, nil)
	require.NoError(t, err)

	_, err = withdrawals.Request(ctx, athlete.ID, 4_000_000)
	require.NoError(t, err)

	// BalanceOf stays the pure sum of completed inbound transfers.
	balance, err := balances.BalanceOf(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")), "got %s", balance)

	available, err := balances.AvailableBalanceOf(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, available.Equal(decimal.RequireFromString("6")), "got %s", available)
}

// Interleaved admissions to different athletes must never bleed into each
// other's derived balances.
func TestBalanceConcurrentTransfersToDifferentAthletes(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	balances := NewBalanceService(store, store, store)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athletes := []struct {
		id     uuid.UUID
		micros int64
	}{
		{seedAccount(t, store, domain.RoleAthlete, "runner").ID, 250_000},
		{seedAccount(t, store, domain.RoleAthlete, "swimmer").ID, 500_000},
		{seedAccount(t, store, domain.RoleAthlete, "cyclist").ID, 750_000},
	}

	const perAthlete = 8
	errs := make([]error, len(athletes)*perAthlete)

	var wg sync.WaitGroup
	for a, target := range athletes {
		for i := 0; i < perAthlete; i++ {
			wg.Add(1)
			go func(slot int, athleteID uuid.UUID, micros int64) {
				defer wg.Done()
				_, _, err := transfers.CreateTransfer(ctx, sponsor.ID, athleteID, micros, nil)
				errs[slot] = err
			}(a*perAthlete+i, target.id, target.micros)
		}
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, target := range athletes {
		balance, err := balances.BalanceOf(ctx, target.id)
		require.NoError(t, err)
		want := domain.ToDecimal(perAthlete * target.micros)
		assert.True(t, balance.Equal(want), "athlete %s: got %s, want %s", target.id, balance, want)
	}

	total, err := balances.TotalSentBy(ctx, sponsor.ID)
	require.NoError(t, err)
	want := domain.ToDecimal(perAthlete * (250_000 + 500_000 + 750_000))
	assert.True(t, total.Equal(want), "got %s, want %s", total, want)
}

func TestSystemTotals(t *testing.T) {
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	balances := NewBalanceService(store, store, store)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athleteA := seedAccount(t, store, domain.RoleAthlete, "runner")
	athleteB := seedAccount(t, store, domain.RoleAthlete, "swimmer")
	seedAccount(t, store, domain.RoleAdmin, "ops")

	_, _, err := transfers.CreateTransfer(ctx, sponsor.ID, athleteA.ID, 1_500_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsor.ID, athleteB.ID, 2_500_000, nil)
	require.NoError(t, err)

	totals, err := balances.SystemTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000), totals.TotalVolumeMicros)
	assert.Equal(t, int64(2), totals.TotalTransactions)
	assert.Equal(t, int64(4), totals.TotalAccounts)
	assert.Equal(t, int64(2), totals.TotalAthletes)
	assert.Equal(t, int64(1), totals.TotalSponsors)
}
