package store

import (
	"context"
	"sync"
	"time"

	"github.com/finvault/bankcore/internal/domain"
)

// MemoryStore is a mutex-guarded in-process Store. It backs the test suite
// and STORE_BACKEND=memory local runs, and provides the same atomicity
// guarantees as the postgres implementation: transfers take both account
// locks in ascending id order, and uniqueness checks are linearizable.
type MemoryStore struct {
	mu         sync.RWMutex // guards the maps and id counters below
	users      map[int64]*domain.User
	byUsername map[string]int64
	byEmail    map[string]int64
	accounts   map[int64]*memAccount

	nextUserID    int64
	nextAccountID int64

	ledgerMu       sync.Mutex // guards the entry log; never held across account locks
	entries        []domain.LedgerEntry
	nextTransferID int64
	nextEntryID    int64
}

// memAccount carries its own lock so transfers on disjoint account pairs
// proceed fully in parallel.
type memAccount struct {
	mu      sync.Mutex
	account domain.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]*domain.User),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		accounts:   make(map[int64]*memAccount),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[u.Username]; ok {
		return 0, domain.ErrUsernameTaken
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return 0, domain.ErrEmailTaken
	}

	s.nextUserID++
	stored := *u
	stored.ID = s.nextUserID
	stored.CreatedAt = time.Now()
	s.users[stored.ID] = &stored
	s.byUsername[stored.Username] = stored.ID
	s.byEmail[stored.Email] = stored.ID
	return stored.ID, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, ownerID int64, balance domain.Amount) (int64, error) {
	if balance < 0 {
		return 0, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccountID++
	id := s.nextAccountID
	s.accounts[id] = &memAccount{account: domain.Account{
		ID:          id,
		OwnerUserID: ownerID,
		Balance:     balance,
		CreatedAt:   time.Now(),
	}}
	return id, nil
}

// lookup returns the live account cell. Callers lock cell.mu before touching
// the balance; s.mu is released first so the lock order is always
// account.mu -> ledgerMu, never the reverse.
func (s *MemoryStore) lookup(id int64) (*memAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	cell, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()
	snapshot := cell.account
	return &snapshot, nil
}

func (s *MemoryStore) Credit(_ context.Context, accountID int64, amount domain.Amount) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	cell, err := s.lookup(accountID)
	if err != nil {
		return err
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()
	cell.account.Balance += amount
	s.appendEntries(domain.LedgerEntry{AccountID: accountID, Delta: amount})
	return nil
}

func (s *MemoryStore) Debit(_ context.Context, accountID int64, amount domain.Amount) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	cell, err := s.lookup(accountID)
	if err != nil {
		return err
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()
	if cell.account.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	cell.account.Balance -= amount
	s.appendEntries(domain.LedgerEntry{AccountID: accountID, Delta: -amount})
	return nil
}

func (s *MemoryStore) ExecTransfer(_ context.Context, fromID, toID int64, amount domain.Amount) (*domain.Transfer, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if fromID == toID {
		return nil, domain.ErrSameAccount
	}

	from, err := s.lookup(fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.lookup(toID)
	if err != nil {
		return nil, err
	}

	// Deterministic lock order by ascending id prevents deadlock between
	// opposing-direction concurrent transfers.
	first, second := from, to
	if toID < fromID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.account.Balance < amount {
		return nil, domain.ErrInsufficientFunds
	}
	from.account.Balance -= amount
	to.account.Balance += amount

	transferID := s.appendEntries(
		domain.LedgerEntry{AccountID: fromID, Delta: -amount},
		domain.LedgerEntry{AccountID: toID, Delta: amount},
	)

	return &domain.Transfer{
		ID:            transferID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		Status:        "completed",
		CreatedAt:     time.Now(),
	}, nil
}

// appendEntries records entries under ledgerMu and returns the transfer id
// assigned when more than one leg is written together.
func (s *MemoryStore) appendEntries(entries ...domain.LedgerEntry) int64 {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	var transferID int64
	if len(entries) > 1 {
		s.nextTransferID++
		transferID = s.nextTransferID
	}
	now := time.Now()
	for _, e := range entries {
		s.nextEntryID++
		e.ID = s.nextEntryID
		e.CreatedAt = now
		if len(entries) > 1 {
			e.TransferID = transferID
		}
		s.entries = append(s.entries, e)
	}
	return transferID
}

func (s *MemoryStore) GetEntries(_ context.Context, accountID int64) ([]domain.LedgerEntry, error) {
	if _, err := s.lookup(accountID); err != nil {
		return nil, err
	}

	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	var out []domain.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AccountID == accountID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() {}
