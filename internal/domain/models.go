package domain

import "time"

// User is an authenticated principal. Username and email are unique.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account holds a user's balance in the ledger. Balance never goes negative.
type Account struct {
	ID          int64     `json:"id"`
	OwnerUserID int64     `json:"owner_user_id"`
	Balance     Amount    `json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transfer is the immutable record of a completed two-account mutation.
type Transfer struct {
	ID            int64     `json:"id"`
	FromAccountID int64     `json:"from_account_id"`
	ToAccountID   int64     `json:"to_account_id"`
	Amount        Amount    `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerEntry is one leg of a balance mutation. The deltas for a given
// TransferID always sum to zero; administrative credits and debits carry
// TransferID zero and a single leg.
type LedgerEntry struct {
	ID         int64     `json:"id"`
	TransferID int64     `json:"transfer_id,omitempty"`
	AccountID  int64     `json:"account_id"`
	Delta      Amount    `json:"delta"`
	CreatedAt  time.Time `json:"created_at"`
}
