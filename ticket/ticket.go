// Package ticket persists purchase aggregates: the ticket row, one row per
// purchased variant, and one credential row per seat. Status changes are
// conditional updates so each lifecycle transition happens at most once.
package ticket

import (
	"context"
	"database/sql"
	"errors"
	"eventers-ticketing-backend/model"
	"fmt"
	"strings"
	"time"
)

const (
	ticketTable     = "tickets"
	variantTable    = "ticket_variants"
	credentialTable = "ticket_credentials"
	checkInTable    = "check_ins"
)

var (
	ErrNotFound      = errors.New("ticket not found")
	ErrStateConflict = errors.New("ticket is not in the expected state")
)

var ticketCols = []string{"ticket_id", "client_id", "event_id", "vendor_id", "email", "phone", "ticket_count",
	"total_amount", "payment_status", "ticket_status", "settlement_status", "payment_transaction_id", "created_at", "updated_at"}
var variantCols = []string{"ticket_id", "variant", "count", "price_per_ticket", "subtotal"}
var credentialCols = []string{"qr_id", "ticket_id", "event_id", "variant", "qr_code_link", "status"}
var checkInCols = []string{"qr_id", "ticket_id", "checked_in_at", "verified_by"}

// NewStore returns a ticket store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type Store struct {
	db *sql.DB
}

// Create writes the whole aggregate in one transaction.
func (s *Store) Create(ctx context.Context, t *model.Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create: error begining db transaction: %w", err)
	}

	values := []interface{}{
		t.TicketID, t.ClientID, t.EventID, t.VendorID, t.Email, t.Phone, t.TicketCount,
		t.TotalAmount, t.PaymentStatus, t.TicketStatus, t.SettlementStatus, t.PaymentTransactionID, t.CreatedAt, t.UpdatedAt,
	}
	if err := insert(ctx, tx, ticketTable, ticketCols, values); err != nil {
		tx.Rollback()
		return fmt.Errorf("create: error inserting ticket %s: %w", t.TicketID, err)
	}

	for _, tv := range t.TicketVariants {
		err := insert(ctx, tx, variantTable, variantCols,
			[]interface{}{t.TicketID, tv.Variant, tv.Count, tv.PricePerTicket, tv.Subtotal})
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("create: error inserting variant %s: %w", tv.Variant, err)
		}

		for _, c := range tv.QRCodes {
			err := insert(ctx, tx, credentialTable, credentialCols,
				[]interface{}{c.QRID, t.TicketID, t.EventID, tv.Variant, c.QRCodeLink, c.Status})
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("create: error inserting credential %s: %w", c.QRID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create: error commiting ticket %s: %w", t.TicketID, err)
	}
	return nil
}

// Get loads the full aggregate.
func (s *Store) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_id = ?`, strings.Join(ticketCols, ", ")), ticketID)

	t := model.Ticket{}
	err := row.Scan(&t.TicketID, &t.ClientID, &t.EventID, &t.VendorID, &t.Email, &t.Phone, &t.TicketCount,
		&t.TotalAmount, &t.PaymentStatus, &t.TicketStatus, &t.SettlementStatus, &t.PaymentTransactionID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: error scanning ticket %s: %w", ticketID, err)
	}

	if err := s.loadVariants(ctx, &t); err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	if err := s.loadCheckIns(ctx, &t); err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return &t, nil
}

// GetByCredential loads the aggregate owning the credential qrID.
func (s *Store) GetByCredential(ctx context.Context, qrID string) (*model.Ticket, error) {
	var ticketID string
	err := s.db.QueryRowContext(ctx, `SELECT ticket_id FROM ticket_credentials WHERE qr_id = ?`, qrID).Scan(&ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getByCredential: error looking up %s: %w", qrID, err)
	}
	return s.Get(ctx, ticketID)
}

func (s *Store) loadVariants(ctx context.Context, t *model.Ticket) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT variant, count, price_per_ticket, subtotal FROM ticket_variants WHERE ticket_id = ? ORDER BY variant`, t.TicketID)
	if err != nil {
		return fmt.Errorf("loadVariants: error querying: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tv := model.TicketVariant{}
		if err := rows.Scan(&tv.Variant, &tv.Count, &tv.PricePerTicket, &tv.Subtotal); err != nil {
			return fmt.Errorf("loadVariants: error scanning: %w", err)
		}
		t.TicketVariants = append(t.TicketVariants, tv)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loadVariants: %w", err)
	}

	creds, err := s.db.QueryContext(ctx,
		`SELECT qr_id, variant, qr_code_link, status FROM ticket_credentials WHERE ticket_id = ? ORDER BY qr_id`, t.TicketID)
	if err != nil {
		return fmt.Errorf("loadVariants: error querying credentials: %w", err)
	}
	defer creds.Close()

	for creds.Next() {
		var variant model.VariantType
		c := model.Credential{}
		if err := creds.Scan(&c.QRID, &variant, &c.QRCodeLink, &c.Status); err != nil {
			return fmt.Errorf("loadVariants: error scanning credential: %w", err)
		}
		for i := range t.TicketVariants {
			if t.TicketVariants[i].Variant == variant {
				t.TicketVariants[i].QRCodes = append(t.TicketVariants[i].QRCodes, c)
			}
		}
	}
	return creds.Err()
}

func (s *Store) loadCheckIns(ctx context.Context, t *model.Ticket) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT qr_id, checked_in_at, verified_by FROM check_ins WHERE ticket_id = ? ORDER BY checked_in_at`, t.TicketID)
	if err != nil {
		return fmt.Errorf("loadCheckIns: error querying: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ci := model.CheckIn{}
		if err := rows.Scan(&ci.QRID, &ci.CheckedInAt, &ci.VerifiedBy); err != nil {
			return fmt.Errorf("loadCheckIns: error scanning: %w", err)
		}
		t.CheckInHistory = append(t.CheckInHistory, ci)
		if c := t.Credential(ci.QRID); c != nil {
			c.CheckInHistory = append(c.CheckInHistory, ci)
		}
	}
	return rows.Err()
}

// CommittedCount sums the seats of variant the client holds on non-refunded tickets.
func (s *Store) CommittedCount(ctx context.Context, clientID, eventID string, variant model.VariantType) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(tv.count) FROM tickets t
		 INNER JOIN ticket_variants tv ON tv.ticket_id = t.ticket_id
		 WHERE t.client_id = ? AND t.event_id = ? AND tv.variant = ? AND t.ticket_status <> ?`,
		clientID, eventID, variant, model.TicketRefunded).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("committedCount: %w", err)
	}
	return int(n.Int64), nil
}

// MarkPaid records a captured payment. It reports false when the ticket had
// already left the pending settlement state or was refunded.
func (s *Store) MarkPaid(ctx context.Context, ticketID, intentID string) (bool, error) {
	n, err := s.exec(ctx,
		`UPDATE tickets SET payment_status = ?, settlement_status = ?, payment_transaction_id = ?, updated_at = ?
		 WHERE ticket_id = ? AND settlement_status = ? AND ticket_status <> ?`,
		model.PaymentSuccessful, model.SettlementPaid, intentID, time.Now().UTC(), ticketID, model.SettlementPending, model.TicketRefunded)
	if err != nil {
		return false, fmt.Errorf("markPaid: %s: %w", ticketID, err)
	}
	return n == 1, nil
}

// AdvanceSettlement moves the settlement marker from one step to the next.
func (s *Store) AdvanceSettlement(ctx context.Context, ticketID string, from, to model.SettlementStatus) error {
	n, err := s.exec(ctx,
		`UPDATE tickets SET settlement_status = ?, updated_at = ? WHERE ticket_id = ? AND settlement_status = ?`,
		to, time.Now().UTC(), ticketID, from)
	if err != nil {
		return fmt.Errorf("advanceSettlement: %s: %w", ticketID, err)
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

// Refund flips an unused ticket and its unused credentials to refunded.
func (s *Store) Refund(ctx context.Context, ticketID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("refund: error begining db transaction: %w", err)
	}

	n, err := txExec(ctx, tx,
		`UPDATE tickets SET ticket_status = ?, updated_at = ? WHERE ticket_id = ? AND ticket_status = ?`,
		model.TicketRefunded, time.Now().UTC(), ticketID, model.TicketUnused)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("refund: %s: %w", ticketID, err)
	}
	if n == 0 {
		tx.Rollback()
		return ErrStateConflict
	}

	_, err = txExec(ctx, tx,
		`UPDATE ticket_credentials SET status = ? WHERE ticket_id = ? AND status = ?`,
		model.TicketRefunded, ticketID, model.TicketUnused)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("refund: error updating credentials of %s: %w", ticketID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("refund: could not commit %s: %w", ticketID, err)
	}
	return nil
}

// CheckIn consumes credential qrID. firstUse is true when this scan also
// moved the aggregate from unused to used.
func (s *Store) CheckIn(ctx context.Context, ticketID, qrID, verifiedBy string, at time.Time) (firstUse bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("checkIn: error begining db transaction: %w", err)
	}

	n, err := txExec(ctx, tx,
		`UPDATE ticket_credentials SET status = ? WHERE qr_id = ? AND ticket_id = ? AND status = ?`,
		model.TicketUsed, qrID, ticketID, model.TicketUnused)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("checkIn: %s: %w", qrID, err)
	}
	if n == 0 {
		tx.Rollback()
		return false, ErrStateConflict
	}

	if err := insert(ctx, tx, checkInTable, checkInCols, []interface{}{qrID, ticketID, at, verifiedBy}); err != nil {
		tx.Rollback()
		return false, fmt.Errorf("checkIn: error recording scan of %s: %w", qrID, err)
	}

	n, err = txExec(ctx, tx,
		`UPDATE tickets SET ticket_status = ?, updated_at = ? WHERE ticket_id = ? AND ticket_status = ?`,
		model.TicketUsed, at, ticketID, model.TicketUnused)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("checkIn: error updating ticket %s: %w", ticketID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("checkIn: could not commit %s: %w", qrID, err)
	}
	return n == 1, nil
}

func (s *Store) exec(ctx context.Context, q string, args ...interface{}) (int64, error) {
	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func txExec(ctx context.Context, tx *sql.Tx, q string, args ...interface{}) (int64, error) {
	result, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func insert(ctx context.Context, tx *sql.Tx, table string, cols []string, values []interface{}) error {
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = "?"
	}

	tsql := fmt.Sprintf(`INSERT INTO %s(%s) VALUES (%s)`, table, strings.Join(cols, ", "), strings.Join(params, ", "))
	if _, err := tx.ExecContext(ctx, tsql, values...); err != nil {
		return fmt.Errorf("insert: unable to insert record in %s: %w", table, err)
	}
	return nil
}
