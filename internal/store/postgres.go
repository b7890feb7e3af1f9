package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvault/bankcore/internal/domain"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on top of a pgx connection pool.
// Uniqueness is enforced by the users_username_key / users_email_key
// constraints; transfers run in a single transaction with row locks
// acquired in ascending account-id order.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		"INSERT INTO users (username, email, phone, password_hash) VALUES ($1, $2, $3, $4) RETURNING id",
		u.Username, u.Email, u.Phone, u.PasswordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return 0, domain.ErrUsernameTaken
			case "users_email_key":
				return 0, domain.ErrEmailTaken
			}
		}
		return 0, fmt.Errorf("user insert failed: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx,
		"SELECT id, username, email, phone, password_hash, created_at FROM users WHERE username = $1",
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user query failed: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, ownerID int64, balance domain.Amount) (int64, error) {
	if balance < 0 {
		return 0, domain.ErrInvalidAmount
	}
	var id int64
	err := s.db.QueryRow(ctx,
		"INSERT INTO accounts (owner_user_id, balance) VALUES ($1, $2) RETURNING id",
		ownerID, int64(balance),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("account insert failed: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRow(ctx,
		"SELECT id, owner_user_id, balance, created_at FROM accounts WHERE id = $1",
		id,
	).Scan(&a.ID, &a.OwnerUserID, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("account query failed: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) Credit(ctx context.Context, accountID int64, amount domain.Amount) error {
	return s.adjustBalance(ctx, accountID, amount)
}

func (s *PostgresStore) Debit(ctx context.Context, accountID int64, amount domain.Amount) error {
	return s.adjustBalance(ctx, accountID, -amount)
}

// adjustBalance applies a single administrative mutation plus its ledger
// entry inside one transaction.
func (s *PostgresStore) adjustBalance(ctx context.Context, accountID int64, delta domain.Amount) error {
	if delta == 0 {
		return domain.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 FOR UPDATE", accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("lock acquisition failed: %w", err)
	}
	if delta < 0 && balance < int64(-delta) {
		return domain.ErrInsufficientFunds
	}

	if _, err = tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1 WHERE id = $2", int64(delta), accountID); err != nil {
		return fmt.Errorf("balance update failed: %w", err)
	}
	if _, err = tx.Exec(ctx, "INSERT INTO ledger_entries (account_id, delta) VALUES ($1, $2)", accountID, int64(delta)); err != nil {
		return fmt.Errorf("ledger entry failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

// ExecTransfer executes the double-entry transfer within a transaction with
// deterministic locking.
func (s *PostgresStore) ExecTransfer(ctx context.Context, fromID, toID int64, amount domain.Amount) (*domain.Transfer, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if fromID == toID {
		return nil, domain.ErrSameAccount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Acquire row locks in ascending id order to avoid deadlock between
	// opposing-direction concurrent transfers.
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}

	balances := map[int64]int64{}
	for _, id := range []int64{first, second} {
		var balance int64
		err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 FOR UPDATE", id).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrAccountNotFound
			}
			return nil, fmt.Errorf("lock acquisition failed: %w", err)
		}
		balances[id] = balance
	}

	if balances[fromID] < int64(amount) {
		return nil, domain.ErrInsufficientFunds
	}

	var transfer domain.Transfer
	err = tx.QueryRow(ctx,
		"INSERT INTO transfers (from_account_id, to_account_id, amount, status) VALUES ($1, $2, $3, 'completed') RETURNING id, created_at",
		fromID, toID, int64(amount),
	).Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("transfer insert failed: %w", err)
	}

	// Both legs in one statement so they are durably recorded together.
	_, err = tx.Exec(ctx,
		"INSERT INTO ledger_entries (transfer_id, account_id, delta) VALUES ($1, $2, $3), ($1, $4, $5)",
		transfer.ID, fromID, -int64(amount), toID, int64(amount),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger entry failed: %w", err)
	}

	if _, err = tx.Exec(ctx, "UPDATE accounts SET balance = balance - $1 WHERE id = $2", int64(amount), fromID); err != nil {
		return nil, fmt.Errorf("debit failed: %w", err)
	}
	if _, err = tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1 WHERE id = $2", int64(amount), toID); err != nil {
		return nil, fmt.Errorf("credit failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	transfer.FromAccountID = fromID
	transfer.ToAccountID = toID
	transfer.Amount = amount
	transfer.Status = "completed"
	return &transfer, nil
}

func (s *PostgresStore) GetEntries(ctx context.Context, accountID int64) ([]domain.LedgerEntry, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("account existence check failed: %w", err)
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	rows, err := s.db.Query(ctx,
		"SELECT id, COALESCE(transfer_id, 0), account_id, delta, created_at FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, id DESC",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("entries query failed: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransferID, &e.AccountID, &e.Delta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("entry scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
