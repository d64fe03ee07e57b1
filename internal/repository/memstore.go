package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/athlink/sponsorledger/internal/domain"
	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
)

// MemStore is an in-memory store with the same contract as Repository.
// It backs local development (no DATABASE_URL) and the unit test suites.
// A single mutex makes every append a natural compare-and-insert.
type MemStore struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]models.Account
	transfers   []models.Transfer
	byRef       map[string]int
	withdrawals map[uuid.UUID]models.Withdrawal
	audit       []models.AuditEntry
	seq         int64
	order       map[uuid.UUID]int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts:    make(map[uuid.UUID]models.Account),
		byRef:       make(map[string]int),
		withdrawals: make(map[uuid.UUID]models.Withdrawal),
		order:       make(map[uuid.UUID]int64),
	}
}

func (s *MemStore) CreateAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.accounts[a.ID] = *a
	return nil
}

func (s *MemStore) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s *MemStore) ListAccountsByRole(_ context.Context, role string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []models.Account
	for _, a := range s.accounts {
		if a.Role == role {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].DisplayName != accounts[j].DisplayName {
			return accounts[i].DisplayName < accounts[j].DisplayName
		}
		return accounts[i].ID.String() < accounts[j].ID.String()
	})
	return accounts, nil
}

func (s *MemStore) CountAccountsByRole(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, a := range s.accounts {
		counts[a.Role]++
	}
	return counts, nil
}

func (s *MemStore) UpdatePayoutAddress(_ context.Context, id uuid.UUID, address string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a.PayoutAddress = &address
	s.accounts[id] = a
	return &a, nil
}

func (s *MemStore) AppendTransfer(_ context.Context, t *models.Transfer) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ExternalRef != nil {
		if idx, ok := s.byRef[*t.ExternalRef]; ok {
			existing := s.transfers[idx]
			if existing.SponsorID != t.SponsorID || existing.AthleteID != t.AthleteID || existing.AmountMicros != t.AmountMicros {
				return nil, domain.ErrConflict
			}
			return &existing, nil
		}
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.seq++
	s.order[t.ID] = s.seq
	s.transfers = append(s.transfers, *t)
	if t.ExternalRef != nil {
		s.byRef[*t.ExternalRef] = len(s.transfers) - 1
	}
	stored := *t
	return &stored, nil
}

func (s *MemStore) GetTransfer(_ context.Context, id uuid.UUID) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transfers {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemStore) GetTransferByExternalRef(_ context.Context, ref string) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t := s.transfers[idx]
	return &t, nil
}

func (s *MemStore) ListTransfers(_ context.Context, filter models.TransferFilter) ([]models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		if filter.ParticipantID != nil && t.SponsorID != *filter.ParticipantID && t.AthleteID != *filter.ParticipantID {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return s.order[matched[i].ID] > s.order[matched[j].ID]
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *MemStore) SumCompletedToAthlete(_ context.Context, athleteID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, t := range s.transfers {
		if t.AthleteID == athleteID && t.Status == domain.TransferStatusCompleted {
			sum += t.AmountMicros
		}
	}
	return sum, nil
}

func (s *MemStore) SumCompletedFromSponsor(_ context.Context, sponsorID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, t := range s.transfers {
		if t.SponsorID == sponsorID && t.Status == domain.TransferStatusCompleted {
			sum += t.AmountMicros
		}
	}
	return sum, nil
}

func (s *MemStore) CountDistinctAthletes(_ context.Context, sponsorID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	for _, t := range s.transfers {
		if t.SponsorID == sponsorID {
			seen[t.AthleteID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *MemStore) CompletedTotals(_ context.Context) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var volume, count int64
	for _, t := range s.transfers {
		if t.Status == domain.TransferStatusCompleted {
			volume += t.AmountMicros
			count++
		}
	}
	return volume, count, nil
}

// AppendWithdrawal checks availability and inserts under the same lock, the
// in-memory equivalent of the repository's guarded transaction.
func (s *MemStore) AppendWithdrawal(_ context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var received int64
	for _, t := range s.transfers {
		if t.AthleteID == w.AthleteID && t.Status == domain.TransferStatusCompleted {
			received += t.AmountMicros
		}
	}
	var reserved int64
	for _, o := range s.withdrawals {
		if o.AthleteID == w.AthleteID && o.Status != domain.WithdrawalStatusFailed {
			reserved += o.AmountMicros
		}
	}
	if w.AmountMicros > received-reserved {
		return domain.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	s.seq++
	s.order[w.ID] = s.seq
	s.withdrawals[w.ID] = *w
	return nil
}

func (s *MemStore) GetWithdrawal(_ context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (s *MemStore) ListWithdrawals(_ context.Context, athleteID *uuid.UUID) ([]models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Withdrawal
	for _, w := range s.withdrawals {
		if athleteID != nil && w.AthleteID != *athleteID {
			continue
		}
		matched = append(matched, w)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return s.order[matched[i].ID] > s.order[matched[j].ID]
	})
	return matched, nil
}

func (s *MemStore) ClaimPendingWithdrawals(_ context.Context, limit int32) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.Status == domain.WithdrawalStatusPending {
			pending = append(pending, w)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return s.order[pending[i].ID] < s.order[pending[j].ID]
	})
	if int(limit) < len(pending) {
		pending = pending[:limit]
	}

	for i := range pending {
		pending[i].Status = domain.WithdrawalStatusProcessing
		pending[i].UpdatedAt = time.Now().UTC()
		s.withdrawals[pending[i].ID] = pending[i]
	}
	return pending, nil
}

func (s *MemStore) ResolveWithdrawal(_ context.Context, id uuid.UUID, status string, gatewayRef *string) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if domain.NormalizeStatus(w.Status) == domain.NormalizeStatus(status) {
		return &w, nil
	}
	if !domain.CanTransitionWithdrawal(w.Status, status) {
		return nil, fmt.Errorf("invalid withdrawal state transition: %s -> %s", w.Status, status)
	}
	w.Status = domain.NormalizeStatus(status)
	if gatewayRef != nil {
		w.GatewayRef = gatewayRef
	}
	w.UpdatedAt = time.Now().UTC()
	s.withdrawals[id] = w
	return &w, nil
}

func (s *MemStore) SumActiveWithdrawals(_ context.Context, athleteID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, w := range s.withdrawals {
		if w.AthleteID == athleteID && w.Status != domain.WithdrawalStatusFailed {
			sum += w.AmountMicros
		}
	}
	return sum, nil
}

func (s *MemStore) LedgerSummaries(_ context.Context) ([]models.AthleteLedgerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAthlete := make(map[uuid.UUID]*models.AthleteLedgerSummary)
	get := func(id uuid.UUID) *models.AthleteLedgerSummary {
		if sum, ok := byAthlete[id]; ok {
			return sum
		}
		sum := &models.AthleteLedgerSummary{AthleteID: id}
		byAthlete[id] = sum
		return sum
	}
	for _, t := range s.transfers {
		if t.Status == domain.TransferStatusCompleted {
			get(t.AthleteID).ReceivedMicros += t.AmountMicros
		}
	}
	for _, w := range s.withdrawals {
		if w.Status != domain.WithdrawalStatusFailed {
			get(w.AthleteID).WithdrawnMicros += w.AmountMicros
		}
	}

	summaries := make([]models.AthleteLedgerSummary, 0, len(byAthlete))
	for _, sum := range byAthlete {
		summaries = append(summaries, *sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].AthleteID.String() < summaries[j].AthleteID.String()
	})
	return summaries, nil
}

func (s *MemStore) InsertAudit(_ context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.audit) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, *e)
	return nil
}

// AuditEntries returns a snapshot of the audit log, newest last.
func (s *MemStore) AuditEntries() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
