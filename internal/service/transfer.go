package service

import (
	"context"

	"github.com/finvault/bankcore/internal/domain"
	"github.com/finvault/bankcore/internal/store"
)

// TransferService orchestrates atomic two-account mutations on top of the
// store's transactional transfer primitive.
type TransferService struct {
	store store.Store
}

func NewTransferService(s store.Store) *TransferService {
	return &TransferService{store: s}
}

// Transfer moves amount between two accounts, all or nothing. Existence is
// checked with from-account precedence so a request naming two unknown
// accounts reports the from side.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID int64, amount domain.Amount) (*domain.Transfer, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if fromID == toID {
		return nil, domain.ErrSameAccount
	}

	if _, err := s.store.GetAccount(ctx, fromID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAccount(ctx, toID); err != nil {
		return nil, err
	}

	return s.store.ExecTransfer(ctx, fromID, toID, amount)
}
