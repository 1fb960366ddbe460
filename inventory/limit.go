package inventory

import (
	"context"
	"eventers-ticketing-backend/model"
	"fmt"
)

// CommittedCounter reports how many seats of a variant a client already holds
// on tickets that were not refunded.
type CommittedCounter interface {
	CommittedCount(ctx context.Context, clientID, eventID string, variant model.VariantType) (int, error)
}

type variantReader interface {
	Variant(ctx context.Context, eventID string, variant model.VariantType) (*model.Variant, error)
}

// LimitChecker answers whether a client may buy more of a variant. The answer
// is advisory: Reserve is what actually guards capacity.
type LimitChecker struct {
	variants variantReader
	tickets  CommittedCounter
}

func NewLimitChecker(variants variantReader, tickets CommittedCounter) *LimitChecker {
	return &LimitChecker{variants: variants, tickets: tickets}
}

func (l *LimitChecker) CheckLimit(ctx context.Context, clientID, eventID string, variant model.VariantType, qty int) (*model.LimitResult, error) {
	v, err := l.variants.Variant(ctx, eventID, variant)
	if err != nil {
		return nil, fmt.Errorf("checkLimit: %w", err)
	}

	committed, err := l.tickets.CommittedCount(ctx, clientID, eventID, variant)
	if err != nil {
		return nil, fmt.Errorf("checkLimit: error counting committed tickets: %w", err)
	}

	remaining := v.MaxPerUser - committed
	if remaining < 0 {
		remaining = 0
	}

	// a bare probe asks whether one more seat fits
	if qty < 1 {
		qty = 1
	}

	return &model.LimitResult{
		CanBook:        committed+qty <= v.MaxPerUser,
		RemainingLimit: remaining,
		MaxPerUser:     v.MaxPerUser,
		Committed:      committed,
	}, nil
}
