package store

import (
	"context"

	"github.com/finvault/bankcore/internal/domain"
)

// Store is the persistence boundary for users, accounts, and the ledger.
// It is the sole mutator of balances and user records; nothing above it
// touches those tables directly.
type Store interface {
	// CreateUser persists a new user. Fails with domain.ErrUsernameTaken or
	// domain.ErrEmailTaken on a uniqueness violation; the check is atomic
	// with respect to concurrent registrations.
	CreateUser(ctx context.Context, u *domain.User) (int64, error)

	// GetUserByUsername fails with domain.ErrUserNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// CreateAccount opens an account owned by ownerID with the given balance.
	CreateAccount(ctx context.Context, ownerID int64, balance domain.Amount) (int64, error)

	// GetAccount fails with domain.ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)

	// Credit and Debit apply a single administrative balance mutation and
	// record one ledger entry. Debit fails with domain.ErrInsufficientFunds
	// without mutating state if the balance would go negative.
	Credit(ctx context.Context, accountID int64, amount domain.Amount) error
	Debit(ctx context.Context, accountID int64, amount domain.Amount) error

	// ExecTransfer atomically moves amount between two accounts and records
	// the transfer plus its two zero-sum ledger entries. Either everything
	// is applied or nothing is.
	ExecTransfer(ctx context.Context, fromID, toID int64, amount domain.Amount) (*domain.Transfer, error)

	// GetEntries returns the ledger entries touching an account, newest first.
	GetEntries(ctx context.Context, accountID int64) ([]domain.LedgerEntry, error)

	Close()
}
