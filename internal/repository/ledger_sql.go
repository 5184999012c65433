package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cosmetics-shop-api/internal/model"

	"github.com/jmoiron/sqlx"
)

const ownershipColumns = `user_id, cosmetic_id, purchase_price, purchased_at, refunded, refunded_at, parent_bundle_id`

// ledgerTx implements LedgerTx on an open transaction.
type ledgerTx struct {
	tx *sqlx.Tx
}

// WithinLedgerTx runs fn in one transaction, rolling back if it fails.
func (s *Store) WithinLedgerTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

func (l *ledgerTx) GetCosmetic(ctx context.Context, id string) (*model.CosmeticItem, error) {
	return getCosmetic(ctx, l.tx, id)
}

// ExistingCosmeticIDs reports which of ids exist in the catalog.
func (l *ledgerTx) ExistingCosmeticIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query, args, err := sqlx.In(`SELECT id FROM cosmetics WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var existing []string
	if err := l.tx.SelectContext(ctx, &existing, l.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to check cosmetics: %w", err)
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

func (l *ledgerTx) GetAccount(ctx context.Context, id string) (*model.UserAccount, error) {
	return getAccount(ctx, l.tx, "id", id)
}

func (l *ledgerTx) GetOwnership(ctx context.Context, userID, cosmeticID string) (*model.Ownership, error) {
	return getOwnership(ctx, l.tx, userID, cosmeticID)
}

func getOwnership(ctx context.Context, q sqlx.ExtContext, userID, cosmeticID string) (*model.Ownership, error) {
	var o model.Ownership
	query := q.Rebind(`SELECT ` + ownershipColumns + ` FROM ownerships WHERE user_id = ? AND cosmetic_id = ?`)
	if err := sqlx.GetContext(ctx, q, &o, query, userID, cosmeticID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ownership: %w", err)
	}
	return &o, nil
}

func (l *ledgerTx) ListActiveByBundle(ctx context.Context, userID, bundleID string) ([]model.Ownership, error) {
	var rows []model.Ownership
	query := l.tx.Rebind(`SELECT ` + ownershipColumns + ` FROM ownerships
		WHERE user_id = ? AND parent_bundle_id = ? AND refunded = FALSE`)
	if err := l.tx.SelectContext(ctx, &rows, query, userID, bundleID); err != nil {
		return nil, fmt.Errorf("failed to list bundle ownerships: %w", err)
	}
	return rows, nil
}

// Debit subtracts amount only if the balance covers it.
func (l *ledgerTx) Debit(ctx context.Context, userID string, amount int) (int, error) {
	res, err := l.tx.ExecContext(ctx,
		l.tx.Rebind(`UPDATE accounts SET balance = balance - ? WHERE id = ? AND balance >= ?`),
		amount, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, model.ErrInsufficientFunds
	}
	return l.balance(ctx, userID)
}

func (l *ledgerTx) Credit(ctx context.Context, userID string, amount int) (int, error) {
	res, err := l.tx.ExecContext(ctx,
		l.tx.Rebind(`UPDATE accounts SET balance = balance + ? WHERE id = ?`), amount, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("account %s: %w", userID, model.ErrNotFound)
	}
	return l.balance(ctx, userID)
}

func (l *ledgerTx) balance(ctx context.Context, userID string) (int, error) {
	var balance int
	if err := l.tx.GetContext(ctx, &balance, l.tx.Rebind(`SELECT balance FROM accounts WHERE id = ?`), userID); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

func (l *ledgerTx) InsertOwnership(ctx context.Context, o model.Ownership) error {
	query := l.tx.Rebind(`INSERT INTO ownerships (` + ownershipColumns + `) VALUES (?, ?, ?, ?, FALSE, NULL, ?)`)
	_, err := l.tx.ExecContext(ctx, query,
		o.UserID, o.CosmeticID, o.PurchasePrice, o.PurchasedAt.UTC(), nullable(o.ParentBundleID))
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyOwned
		}
		return fmt.Errorf("failed to insert ownership: %w", err)
	}
	return nil
}

// ReactivateOwnership only touches a row that is still refunded, so two
// racing re-purchases cannot both succeed.
func (l *ledgerTx) ReactivateOwnership(ctx context.Context, o model.Ownership) error {
	query := l.tx.Rebind(`UPDATE ownerships
		SET refunded = FALSE, refunded_at = NULL, purchase_price = ?, purchased_at = ?, parent_bundle_id = ?
		WHERE user_id = ? AND cosmetic_id = ? AND refunded = TRUE`)
	res, err := l.tx.ExecContext(ctx, query,
		o.PurchasePrice, o.PurchasedAt.UTC(), nullable(o.ParentBundleID), o.UserID, o.CosmeticID)
	if err != nil {
		return fmt.Errorf("failed to reactivate ownership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrAlreadyOwned
	}
	return nil
}

func (l *ledgerTx) MarkRefunded(ctx context.Context, userID, cosmeticID string, at time.Time) error {
	query := l.tx.Rebind(`UPDATE ownerships SET refunded = TRUE, refunded_at = ?
		WHERE user_id = ? AND cosmetic_id = ? AND refunded = FALSE`)
	res, err := l.tx.ExecContext(ctx, query, at.UTC(), userID, cosmeticID)
	if err != nil {
		return fmt.Errorf("failed to refund ownership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("ownership %s/%s: %w", userID, cosmeticID, model.ErrNotFound)
	}
	return nil
}

func (l *ledgerTx) MarkRefundedByBundle(ctx context.Context, userID, bundleID string, at time.Time) (int64, error) {
	query := l.tx.Rebind(`UPDATE ownerships SET refunded = TRUE, refunded_at = ?
		WHERE user_id = ? AND parent_bundle_id = ? AND refunded = FALSE`)
	res, err := l.tx.ExecContext(ctx, query, at.UTC(), userID, bundleID)
	if err != nil {
		return 0, fmt.Errorf("failed to refund bundle contents: %w", err)
	}
	return res.RowsAffected()
}

// ownedRow is an ownership joined with the catalog fields shown to users.
type ownedRow struct {
	model.Ownership
	Name          string `db:"name"`
	TypeDisplay   string `db:"type_display"`
	RarityDisplay string `db:"rarity_display"`
	ImageSmall    string `db:"image_small"`
	ImageIcon     string `db:"image_icon"`
	ImageFeatured string `db:"image_featured"`
	Price         int    `db:"price"`
}

func (r *ownedRow) summary() model.CosmeticSummary {
	images := model.Images{SmallIcon: r.ImageSmall, Icon: r.ImageIcon, Featured: r.ImageFeatured}
	return model.CosmeticSummary{
		ID:     r.CosmeticID,
		Name:   r.Name,
		Type:   r.TypeDisplay,
		Rarity: r.RarityDisplay,
		Image:  images.Best(),
		Price:  r.Price,
	}
}

const ownedSelect = `SELECT o.user_id, o.cosmetic_id, o.purchase_price, o.purchased_at, o.refunded, o.refunded_at,
		o.parent_bundle_id, COALESCE(c.name, o.cosmetic_id) AS name,
		COALESCE(c.type_display, '') AS type_display, COALESCE(c.rarity_display, '') AS rarity_display,
		COALESCE(c.image_small, '') AS image_small, COALESCE(c.image_icon, '') AS image_icon,
		COALESCE(c.image_featured, '') AS image_featured, COALESCE(c.price, 0) AS price
	FROM ownerships o LEFT JOIN cosmetics c ON c.id = o.cosmetic_id`

// ListOwned returns the user's active ownerships, newest first.
func (s *Store) ListOwned(ctx context.Context, userID string) ([]model.OwnedCosmetic, error) {
	var rows []ownedRow
	query := s.db.Rebind(ownedSelect + ` WHERE o.user_id = ? AND o.refunded = FALSE ORDER BY o.purchased_at DESC, o.cosmetic_id ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list owned cosmetics: %w", err)
	}

	owned := make([]model.OwnedCosmetic, 0, len(rows))
	for i := range rows {
		owned = append(owned, model.OwnedCosmetic{
			Cosmetic:       rows[i].summary(),
			PurchasePrice:  rows[i].PurchasePrice,
			PurchasedAt:    rows[i].PurchasedAt,
			ParentBundleID: rows[i].ParentBundleID,
		})
	}
	return owned, nil
}

// ListHistory returns every ownership row of the user, refunded ones included.
func (s *Store) ListHistory(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	var rows []ownedRow
	query := s.db.Rebind(ownedSelect + ` WHERE o.user_id = ? ORDER BY o.purchased_at DESC, o.cosmetic_id ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list purchase history: %w", err)
	}

	entries := make([]model.HistoryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, model.HistoryEntry{Ownership: rows[i].Ownership, CosmeticName: rows[i].Name})
	}
	return entries, nil
}

// GetOwnership returns the user's row for a cosmetic, or nil if there is none.
func (s *Store) GetOwnership(ctx context.Context, userID, cosmeticID string) (*model.Ownership, error) {
	return getOwnership(ctx, s.db, userID, cosmeticID)
}

func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
