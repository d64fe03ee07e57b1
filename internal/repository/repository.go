package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed store.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// unavailable wraps infrastructure failures so callers can retry on
// domain.ErrStoreUnavailable while keeping the underlying detail.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}

func (r *Repository) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (id, role, display_name, payout_address, created_at)
		VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`
	err := r.db.QueryRow(ctx, query, a.ID, a.Role, a.DisplayName, a.PayoutAddress).Scan(&a.CreatedAt)
	if err != nil {
		return unavailable("create account", err)
	}
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a := &models.Account{}
	query := `SELECT id, role, display_name, payout_address, created_at FROM accounts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.Role, &a.DisplayName, &a.PayoutAddress, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("get account", err)
	}
	return a, nil
}

func (r *Repository) ListAccountsByRole(ctx context.Context, role string) ([]models.Account, error) {
	query := `SELECT id, role, display_name, payout_address, created_at
		FROM accounts WHERE role = $1 ORDER BY display_name, id`
	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, unavailable("list accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Role, &a.DisplayName, &a.PayoutAddress, &a.CreatedAt); err != nil {
			return nil, unavailable("scan account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) CountAccountsByRole(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM accounts GROUP BY role`)
	if err != nil {
		return nil, unavailable("count accounts", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, unavailable("scan account count", err)
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

func (r *Repository) UpdatePayoutAddress(ctx context.Context, id uuid.UUID, address string) (*models.Account, error) {
	a := &models.Account{}
	query := `UPDATE accounts SET payout_address = $2 WHERE id = $1
		RETURNING id, role, display_name, payout_address, created_at`
	err := r.db.QueryRow(ctx, query, id, address).Scan(&a.ID, &a.Role, &a.DisplayName, &a.PayoutAddress, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("update payout address", err)
	}
	return a, nil
}

const transferColumns = `id, sponsor_id, athlete_id, amount_micros, external_ref, status, created_at`

// AppendTransfer inserts a transfer atomically. The unique index on
// external_ref plus ON CONFLICT DO NOTHING make the uniqueness check and the
// insert a single compare-and-insert, so two concurrent requests bearing the
// same reference cannot both create a row.
func (r *Repository) AppendTransfer(ctx context.Context, t *models.Transfer) (*models.Transfer, error) {
	query := `INSERT INTO transfers (id, sponsor_id, athlete_id, amount_micros, external_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (external_ref) WHERE external_ref IS NOT NULL DO NOTHING
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query, t.ID, t.SponsorID, t.AthleteID, t.AmountMicros, t.ExternalRef, t.Status).Scan(&t.CreatedAt)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, unavailable("append transfer", err)
	}

	// The reference is already taken. Identical duplicate -> idempotent
	// replay; anything else is an ambiguous reuse of the reference.
	if t.ExternalRef == nil {
		return nil, unavailable("append transfer", errors.New("insert returned no row"))
	}
	existing, err := r.GetTransferByExternalRef(ctx, *t.ExternalRef)
	if err != nil {
		return nil, err
	}
	if existing.SponsorID != t.SponsorID || existing.AthleteID != t.AthleteID || existing.AmountMicros != t.AmountMicros {
		return nil, domain.ErrConflict
	}
	return existing, nil
}

func (r *Repository) GetTransfer(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	t := &models.Transfer{}
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.SponsorID, &t.AthleteID, &t.AmountMicros, &t.ExternalRef, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("get transfer", err)
	}
	return t, nil
}

func (r *Repository) GetTransferByExternalRef(ctx context.Context, ref string) (*models.Transfer, error) {
	t := &models.Transfer{}
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE external_ref = $1`
	err := r.db.QueryRow(ctx, query, ref).Scan(&t.ID, &t.SponsorID, &t.AthleteID, &t.AmountMicros, &t.ExternalRef, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("get transfer by ref", err)
	}
	return t, nil
}

func (r *Repository) ListTransfers(ctx context.Context, filter models.TransferFilter) ([]models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE ($1::uuid IS NULL OR sponsor_id = $1 OR athlete_id = $1)
		ORDER BY created_at DESC, id`
	args := []any{filter.ParticipantID}
	if filter.Limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list transfers", err)
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		var t models.Transfer
		if err := rows.Scan(&t.ID, &t.SponsorID, &t.AthleteID, &t.AmountMicros, &t.ExternalRef, &t.Status, &t.CreatedAt); err != nil {
			return nil, unavailable("scan transfer", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func (r *Repository) SumCompletedToAthlete(ctx context.Context, athleteID uuid.UUID) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_micros), 0) FROM transfers WHERE athlete_id = $1 AND status = $2`
	if err := r.db.QueryRow(ctx, query, athleteID, domain.TransferStatusCompleted).Scan(&sum); err != nil {
		return 0, unavailable("sum athlete transfers", err)
	}
	return sum, nil
}

func (r *Repository) SumCompletedFromSponsor(ctx context.Context, sponsorID uuid.UUID) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_micros), 0) FROM transfers WHERE sponsor_id = $1 AND status = $2`
	if err := r.db.QueryRow(ctx, query, sponsorID, domain.TransferStatusCompleted).Scan(&sum); err != nil {
		return 0, unavailable("sum sponsor transfers", err)
	}
	return sum, nil
}

func (r *Repository) CountDistinctAthletes(ctx context.Context, sponsorID uuid.UUID) (int64, error) {
	var n int64
	query := `SELECT COUNT(DISTINCT athlete_id) FROM transfers WHERE sponsor_id = $1`
	if err := r.db.QueryRow(ctx, query, sponsorID).Scan(&n); err != nil {
		return 0, unavailable("count distinct athletes", err)
	}
	return n, nil
}

func (r *Repository) CompletedTotals(ctx context.Context) (int64, int64, error) {
	var volume, count int64
	query := `SELECT COALESCE(SUM(amount_micros), 0), COUNT(*) FROM transfers WHERE status = $1`
	if err := r.db.QueryRow(ctx, query, domain.TransferStatusCompleted).Scan(&volume, &count); err != nil {
		return 0, 0, unavailable("ledger totals", err)
	}
	return volume, count, nil
}

const withdrawalColumns = `id, athlete_id, amount_micros, address, status, gateway_ref, created_at, updated_at`

// AppendWithdrawal admits a withdrawal only if the athlete's availability
// covers it. The account row is locked for the duration of the transaction,
// so the availability check and the insert act as one compare-and-insert and
// concurrent requests cannot both reserve the same funds.
func (r *Repository) AppendWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return unavailable("begin append withdrawal", err)
	}
	defer tx.Rollback(ctx)

	var athleteID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, w.AthleteID).Scan(&athleteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return unavailable("lock athlete", err)
	}

	var available int64
	availQuery := `SELECT
		COALESCE((SELECT SUM(amount_micros) FROM transfers WHERE athlete_id = $1 AND status = $2), 0)
		- COALESCE((SELECT SUM(amount_micros) FROM withdrawals WHERE athlete_id = $1 AND status != $3), 0)`
	if err := tx.QueryRow(ctx, availQuery, w.AthleteID, domain.TransferStatusCompleted, domain.WithdrawalStatusFailed).Scan(&available); err != nil {
		return unavailable("sum availability", err)
	}
	if w.AmountMicros > available {
		return domain.ErrInsufficientBalance
	}

	insert := `INSERT INTO withdrawals (id, athlete_id, amount_micros, address, status, gateway_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, insert, w.ID, w.AthleteID, w.AmountMicros, w.Address, w.Status, w.GatewayRef).Scan(&w.CreatedAt, &w.UpdatedAt); err != nil {
		return unavailable("append withdrawal", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit append withdrawal", err)
	}
	return nil
}

func (r *Repository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&w.ID, &w.AthleteID, &w.AmountMicros, &w.Address, &w.Status, &w.GatewayRef, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("get withdrawal", err)
	}
	return w, nil
}

func (r *Repository) ListWithdrawals(ctx context.Context, athleteID *uuid.UUID) ([]models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals
		WHERE ($1::uuid IS NULL OR athlete_id = $1)
		ORDER BY created_at DESC, id`
	rows, err := r.db.Query(ctx, query, athleteID)
	if err != nil {
		return nil, unavailable("list withdrawals", err)
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.AthleteID, &w.AmountMicros, &w.Address, &w.Status, &w.GatewayRef, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, unavailable("scan withdrawal", err)
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}

// ClaimPendingWithdrawals marks a batch PROCESSING and returns it.
// FOR UPDATE SKIP LOCKED keeps concurrent worker instances from claiming the
// same rows.
func (r *Repository) ClaimPendingWithdrawals(ctx context.Context, limit int32) ([]models.Withdrawal, error) {
	query := `UPDATE withdrawals SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM withdrawals WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + withdrawalColumns
	rows, err := r.db.Query(ctx, query, domain.WithdrawalStatusProcessing, domain.WithdrawalStatusPending, limit)
	if err != nil {
		return nil, unavailable("claim withdrawals", err)
	}
	defer rows.Close()

	var claimed []models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.AthleteID, &w.AmountMicros, &w.Address, &w.Status, &w.GatewayRef, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, unavailable("scan claimed withdrawal", err)
		}
		claimed = append(claimed, w)
	}
	return claimed, rows.Err()
}

func (r *Repository) ResolveWithdrawal(ctx context.Context, id uuid.UUID, status string, gatewayRef *string) (*models.Withdrawal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, unavailable("begin resolve withdrawal", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM withdrawals WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("lock withdrawal", err)
	}

	w := &models.Withdrawal{}
	if domain.NormalizeStatus(current) == domain.NormalizeStatus(status) {
		// Replayed resolution, nothing to change.
		err = tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id).
			Scan(&w.ID, &w.AthleteID, &w.AmountMicros, &w.Address, &w.Status, &w.GatewayRef, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, unavailable("reread withdrawal", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, unavailable("commit resolve withdrawal", err)
		}
		return w, nil
	}
	if !domain.CanTransitionWithdrawal(current, status) {
		return nil, fmt.Errorf("invalid withdrawal state transition: %s -> %s", current, status)
	}

	query := `UPDATE withdrawals SET status = $2, gateway_ref = COALESCE($3, gateway_ref), updated_at = NOW()
		WHERE id = $1 RETURNING ` + withdrawalColumns
	err = tx.QueryRow(ctx, query, id, status, gatewayRef).
		Scan(&w.ID, &w.AthleteID, &w.AmountMicros, &w.Address, &w.Status, &w.GatewayRef, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, unavailable("resolve withdrawal", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, unavailable("commit resolve withdrawal", err)
	}
	return w, nil
}

func (r *Repository) SumActiveWithdrawals(ctx context.Context, athleteID uuid.UUID) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_micros), 0) FROM withdrawals WHERE athlete_id = $1 AND status != $2`
	if err := r.db.QueryRow(ctx, query, athleteID, domain.WithdrawalStatusFailed).Scan(&sum); err != nil {
		return 0, unavailable("sum withdrawals", err)
	}
	return sum, nil
}

func (r *Repository) LedgerSummaries(ctx context.Context) ([]models.AthleteLedgerSummary, error) {
	query := `
		SELECT athlete_id,
			COALESCE(SUM(amount_micros) FILTER (WHERE kind = 'in'), 0) AS received,
			COALESCE(SUM(amount_micros) FILTER (WHERE kind = 'out'), 0) AS withdrawn
		FROM (
			SELECT athlete_id, amount_micros, 'in' AS kind FROM transfers WHERE status = $1
			UNION ALL
			SELECT athlete_id, amount_micros, 'out' AS kind FROM withdrawals WHERE status != $2
		) ledger
		GROUP BY athlete_id
	`
	rows, err := r.db.Query(ctx, query, domain.TransferStatusCompleted, domain.WithdrawalStatusFailed)
	if err != nil {
		return nil, unavailable("ledger summaries", err)
	}
	defer rows.Close()

	var summaries []models.AthleteLedgerSummary
	for rows.Next() {
		var s models.AthleteLedgerSummary
		if err := rows.Scan(&s.AthleteID, &s.ReceivedMicros, &s.WithdrawnMicros); err != nil {
			return nil, unavailable("scan ledger summary", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *Repository) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	query := `INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, e.EntityType, e.EntityID, e.ActorID, e.Action, e.PrevState, e.NextState).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return unavailable("insert audit", err)
	}
	return nil
}
