// Package inventory owns the per-event ticket variant counters. Every change
// to tickets_sold goes through a single conditional UPDATE so concurrent
// checkouts can never push a variant past its capacity.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"eventers-ticketing-backend/model"
	"fmt"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInsufficient  = errors.New("insufficient inventory")
	ErrInvalidQty    = errors.New("quantity must be positive")
)

// NewInventory returns an inventory store backed by db.
func NewInventory(db *sql.DB) *Inventory {
	return &Inventory{db: db}
}

// Inventory represents the client for the events and event_variants tables
type Inventory struct {
	db *sql.DB
}

// Event loads the event with a snapshot of its variant counters.
func (i *Inventory) Event(ctx context.Context, eventID string) (*model.Event, error) {
	row := i.db.QueryRowContext(ctx,
		`SELECT event_id, hosted_by, title, status, starts_at FROM events WHERE event_id = ?`, eventID)

	e := model.Event{Variants: make(map[model.VariantType]*model.Variant)}
	var startsAt sql.NullTime
	err := row.Scan(&e.EventID, &e.HostedBy, &e.Title, &e.Status, &startsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event: error scanning event %s: %w", eventID, err)
	}
	if startsAt.Valid {
		e.StartsAt = &startsAt.Time
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT variant, price, total_tickets, tickets_sold, max_per_user FROM event_variants WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("event: error querying variants for %s: %w", eventID, err)
	}
	defer rows.Close()

	for rows.Next() {
		v := model.Variant{}
		if err := rows.Scan(&v.Type, &v.Price, &v.TotalTickets, &v.TicketsSold, &v.MaxPerUser); err != nil {
			return nil, fmt.Errorf("event: error scanning variant: %w", err)
		}
		if !v.Type.Valid() {
			return nil, fmt.Errorf("event: unknown variant %q stored for %s", v.Type, eventID)
		}
		e.Variants[v.Type] = &v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("event: error iterating variants: %w", err)
	}

	return &e, nil
}

// Variant returns the current counters of a single variant.
func (i *Inventory) Variant(ctx context.Context, eventID string, variant model.VariantType) (*model.Variant, error) {
	row := i.db.QueryRowContext(ctx,
		`SELECT variant, price, total_tickets, tickets_sold, max_per_user FROM event_variants WHERE event_id = ? AND variant = ?`,
		eventID, variant)

	v := model.Variant{}
	err := row.Scan(&v.Type, &v.Price, &v.TotalTickets, &v.TicketsSold, &v.MaxPerUser)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("variant: error scanning %s/%s: %w", eventID, variant, err)
	}
	return &v, nil
}

// Reserve takes qty seats of variant if and only if capacity remains.
func (i *Inventory) Reserve(ctx context.Context, eventID string, variant model.VariantType, qty int) error {
	if qty <= 0 {
		return ErrInvalidQty
	}

	n, err := i.exec(ctx,
		`UPDATE event_variants SET tickets_sold = tickets_sold + ?
		 WHERE event_id = ? AND variant = ? AND tickets_sold + ? <= total_tickets`,
		qty, eventID, variant, qty)
	if err != nil {
		return fmt.Errorf("reserve: %s/%s: %w", eventID, variant, err)
	}
	if n == 0 {
		return ErrInsufficient
	}
	return nil
}

// Release gives back qty previously reserved seats.
func (i *Inventory) Release(ctx context.Context, eventID string, variant model.VariantType, qty int) error {
	if qty <= 0 {
		return ErrInvalidQty
	}

	n, err := i.exec(ctx,
		`UPDATE event_variants SET tickets_sold = tickets_sold - ?
		 WHERE event_id = ? AND variant = ? AND tickets_sold >= ?`,
		qty, eventID, variant, qty)
	if err != nil {
		return fmt.Errorf("release: %s/%s: %w", eventID, variant, err)
	}
	if n == 0 {
		return fmt.Errorf("release: %s/%s: fewer than %d seats sold", eventID, variant, qty)
	}
	return nil
}

func (i *Inventory) exec(ctx context.Context, q string, args ...interface{}) (int64, error) {
	result, err := i.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return result.RowsAffected()
}
