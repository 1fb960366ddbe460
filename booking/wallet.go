package booking

import (
	"context"
	"errors"
	"eventers-ticketing-backend/ledger"
	"eventers-ticketing-backend/model"
	"fmt"
)

const historyLimit = 50

type WalletStatement struct {
	Wallet       *model.Wallet       `json:"wallet"`
	Transactions []model.Transaction `json:"transactions"`
}

// Wallet returns a principal's balance with its most recent ledger entries.
func (s *Service) Wallet(ctx context.Context, userModel, userID string) (*WalletStatement, error) {
	um := model.UserModel(userModel)
	if !um.Valid() {
		return nil, newError(KindValidation, "unknown user model %q", userModel)
	}
	if userID == "" {
		return nil, newError(KindValidation, "userId is required")
	}

	w, err := s.ledger.Wallet(ctx, userID, um)
	if errors.Is(err, ledger.ErrWalletNotFound) {
		return nil, newError(KindNotFound, "wallet of %s %s not found", um, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}

	txns, err := s.ledger.Transactions(ctx, w.WalletID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	return &WalletStatement{Wallet: w, Transactions: txns}, nil
}
