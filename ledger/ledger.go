// Package ledger keeps one balance per principal and an append-only log of
// the movements that produced it. Balances only change through Credit and
// Debit, each of which applies a single relative UPDATE in the same database
// transaction that appends the log entry.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"eventers-ticketing-backend/model"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	walletTable      = "wallets"
	transactionTable = "transactions"

	// mysql ER_DUP_ENTRY
	errDuplicateEntry = 1062
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidAmount  = errors.New("amount must be positive")
)

var transactionCols = []string{"transaction_id", "wallet_id", "amount", "currency", "payment_status", "payment_type", "reference", "created_at"}

// Entry describes one movement against a principal's wallet. Reference ties
// the movement to its cause (usually a ticket id); the pair (PaymentType,
// Reference) may be applied to a wallet only once.
type Entry struct {
	UserID    string
	UserModel model.UserModel
	Amount    decimal.Decimal
	Type      model.PaymentType
	Reference string
}

func NewLedger(db *sql.DB, currency string) *Ledger {
	return &Ledger{db: db, currency: currency}
}

type Ledger struct {
	db       *sql.DB
	currency string
}

// Credit adds e.Amount to the wallet, creating the wallet if needed. applied
// is false when the same entry had already been posted.
func (l *Ledger) Credit(ctx context.Context, e Entry) (txn *model.Transaction, applied bool, err error) {
	return l.post(ctx, e, model.Credit)
}

// Debit subtracts e.Amount from the wallet. A negative balance is not
// rejected here.
func (l *Ledger) Debit(ctx context.Context, e Entry) (txn *model.Transaction, applied bool, err error) {
	return l.post(ctx, e, model.Debit)
}

func (l *Ledger) post(ctx context.Context, e Entry, direction model.TransactionStatus) (*model.Transaction, bool, error) {
	if !e.Amount.IsPositive() {
		return nil, false, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("post: error begining db transaction: %w", err)
	}

	walletID, err := ensureWallet(ctx, tx, e.UserID, e.UserModel)
	if err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("post: %w", err)
	}

	txn := &model.Transaction{
		TransactionID: uuid.New().String(),
		WalletID:      walletID,
		Amount:        e.Amount,
		Currency:      l.currency,
		PaymentStatus: direction,
		PaymentType:   e.Type,
		Reference:     e.Reference,
		CreatedAt:     time.Now().UTC(),
	}

	err = insert(ctx, tx, transactionTable, transactionCols, []interface{}{
		txn.TransactionID, txn.WalletID, txn.Amount, txn.Currency, txn.PaymentStatus, txn.PaymentType, txn.Reference, txn.CreatedAt,
	})
	if isDuplicate(err) {
		tx.Rollback()
		return nil, false, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("post: error appending %s/%s for wallet %s: %w", direction, e.Type, walletID, err)
	}

	delta := e.Amount
	if direction == model.Debit {
		delta = delta.Neg()
	}
	_, err = tx.ExecContext(ctx, `UPDATE wallets SET balance = balance + ?, updated_at = ? WHERE wallet_id = ?`,
		delta, txn.CreatedAt, walletID)
	if err != nil {
		tx.Rollback()
		return nil, false, fmt.Errorf("post: error updating balance of wallet %s: %w", walletID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("post: could not commit %s for wallet %s: %w", direction, walletID, err)
	}
	return txn, true, nil
}

// Wallet returns the principal's wallet.
func (l *Ledger) Wallet(ctx context.Context, userID string, userModel model.UserModel) (*model.Wallet, error) {
	w := model.Wallet{}
	err := l.db.QueryRowContext(ctx,
		`SELECT wallet_id, user_id, user_model, balance, updated_at FROM wallets WHERE user_id = ? AND user_model = ?`,
		userID, userModel).Scan(&w.WalletID, &w.UserID, &w.UserModel, &w.Balance, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: error scanning wallet of %s/%s: %w", userModel, userID, err)
	}
	return &w, nil
}

// Transactions returns the newest limit entries of a wallet.
func (l *Ledger) Transactions(ctx context.Context, walletID string, limit int) ([]model.Transaction, error) {
	rows, err := l.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM transactions WHERE wallet_id = ? ORDER BY created_at DESC LIMIT ?`, strings.Join(transactionCols, ", ")),
		walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("transactions: error querying wallet %s: %w", walletID, err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t := model.Transaction{}
		err := rows.Scan(&t.TransactionID, &t.WalletID, &t.Amount, &t.Currency, &t.PaymentStatus, &t.PaymentType, &t.Reference, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("transactions: error scanning: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func ensureWallet(ctx context.Context, tx *sql.Tx, userID string, userModel model.UserModel) (string, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets(wallet_id, user_id, user_model, balance, updated_at) VALUES (?, ?, ?, 0, ?)
		 ON DUPLICATE KEY UPDATE wallet_id = wallet_id`,
		uuid.New().String(), userID, userModel, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("ensureWallet: error creating wallet for %s/%s: %w", userModel, userID, err)
	}

	var walletID string
	err = tx.QueryRowContext(ctx, `SELECT wallet_id FROM wallets WHERE user_id = ? AND user_model = ?`, userID, userModel).Scan(&walletID)
	if err != nil {
		return "", fmt.Errorf("ensureWallet: error reading wallet of %s/%s: %w", userModel, userID, err)
	}
	return walletID, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
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
