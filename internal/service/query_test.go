package service

import (
	"context"
	"testing"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryFixture(t *testing.T) (*repository.MemStore, *TransferService, *QueryService) {
	t.Helper()
	store := repository.NewMemStore()
	transfers := NewTransferService(store, store)
	balances := NewBalanceService(store, store, store)
	queries := NewQueryService(store, balances, store)
	return store, transfers, queries
}

func TestListTransactionsRoleScoped(t *testing.T) {
	store, transfers, queries := newQueryFixture(t)
	ctx := context.Background()

	sponsorA := seedAccount(t, store, domain.RoleSponsor, "acme")
	sponsorB := seedAccount(t, store, domain.RoleSponsor, "globex")
	athleteA := seedAccount(t, store, domain.RoleAthlete, "runner")
	athleteB := seedAccount(t, store, domain.RoleAthlete, "swimmer")
	admin := seedAccount(t, store, domain.RoleAdmin, "ops")

	_, _, err := transfers.CreateTransfer(ctx, sponsorA.ID, athleteA.ID, 1_000_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsorA.ID, athleteB.ID, 2_000_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsorB.ID, athleteB.ID, 3_000_000, nil)
	require.NoError(t, err)

	all, err := queries.ListTransactions(ctx, admin.ID, domain.RoleAdmin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := queries.ListTransactions(ctx, sponsorA.ID, domain.RoleSponsor, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, tr := range mine {
		assert.Equal(t, sponsorA.ID, tr.SponsorID)
	}

	received, err := queries.ListTransactions(ctx, athleteB.ID, domain.RoleAthlete, 0, 0)
	require.NoError(t, err)
	require.Len(t, received, 2)
	for _, tr := range received {
		assert.Equal(t, athleteB.ID, tr.AthleteID)
	}

	// An athlete with no transfers sees an empty list, not everyone else's.
	athleteC := seedAccount(t, store, domain.RoleAthlete, "cyclist")
	none, err := queries.ListTransactions(ctx, athleteC.ID, domain.RoleAthlete, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetBalanceAuthorization(t *testing.T) {
	store, transfers, queries := newQueryFixture(t)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")
	otherAthlete := seedAccount(t, store, domain.RoleAthlete, "swimmer")
	admin := seedAccount(t, store, domain.RoleAdmin, "ops")

	_, _, err := transfers.CreateTransfer(ctx, sponsor.ID, athlete.ID, 2_500_000, nil)
	require.NoError(t, err)

	// Athlete reads its own balance.
	balance, err := queries.GetBalance(ctx, athlete.ID, domain.RoleAthlete, athlete.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("2.5")), "got %s", balance)

	// Athlete cannot read another athlete's balance.
	_, err = queries.GetBalance(ctx, otherAthlete.ID, domain.RoleAthlete, athlete.ID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	// Sponsor cannot read an athlete's balance either.
	_, err = queries.GetBalance(ctx, sponsor.ID, domain.RoleSponsor, athlete.ID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	// Sponsor reads its own sent total.
	total, err := queries.GetBalance(ctx, sponsor.ID, domain.RoleSponsor, sponsor.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("2.5")), "got %s", total)

	// Admin reads anyone.
	balance, err = queries.GetBalance(ctx, admin.ID, domain.RoleAdmin, athlete.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("2.5")), "got %s", balance)
}

func TestGetSponsorStats(t *testing.T) {
	store, transfers, queries := newQueryFixture(t)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	rival := seedAccount(t, store, domain.RoleSponsor, "globex")
	athleteA := seedAccount(t, store, domain.RoleAthlete, "runner")
	athleteB := seedAccount(t, store, domain.RoleAthlete, "swimmer")
	admin := seedAccount(t, store, domain.RoleAdmin, "ops")

	_, _, err := transfers.CreateTransfer(ctx, sponsor.ID, athleteA.ID, 1_000_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsor.ID, athleteB.ID, 2_000_000, nil)
	require.NoError(t, err)
	_, _, err = transfers.CreateTransfer(ctx, sponsor.ID, athleteB.ID, 500_000, nil)
	require.NoError(t, err)

	stats, err := queries.GetSponsorStats(ctx, sponsor.ID, domain.RoleSponsor, sponsor.ID)
	require.NoError(t, err)
	assert.True(t, stats.TotalSent.Equal(decimal.RequireFromString("3.5")), "got %s", stats.TotalSent)
	assert.Equal(t, int64(2), stats.UniqueCounterparties)

	_, err = queries.GetSponsorStats(ctx, rival.ID, domain.RoleSponsor, sponsor.ID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	adminStats, err := queries.GetSponsorStats(ctx, admin.ID, domain.RoleAdmin, sponsor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), adminStats.UniqueCounterparties)

	// Target must be a sponsor.
	_, err = queries.GetSponsorStats(ctx, admin.ID, domain.RoleAdmin, athleteA.ID)
	require.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestGetSystemTotalsAdminOnly(t *testing.T) {
	store, transfers, queries := newQueryFixture(t)
	ctx := context.Background()

	sponsor := seedAccount(t, store, domain.RoleSponsor, "acme")
	athlete := seedAccount(t, store, domain.RoleAthlete, "runner")

	_, _, err := transfers.CreateTransfer(ctx, sponsor.ID, athlete.ID, 1_000_000, nil)
	require.NoError(t, err)

	_, err = queries.GetSystemTotals(ctx, domain.RoleSponsor)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = queries.GetSystemTotals(ctx, domain.RoleAthlete)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	totals, err := queries.GetSystemTotals(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), totals.TotalVolumeMicros)
	assert.Equal(t, int64(1), totals.TotalTransactions)
}
