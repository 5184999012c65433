package repository

import (
	"context"
	"time"

	"cosmetics-shop-api/internal/model"
)

// CatalogWriter applies one reconciliation step at a time. All calls made
// through one writer share a transaction.
type CatalogWriter interface {
	// UpsertCatalog inserts unseen items and refreshes display and bundle
	// fields of existing ones. Price and flags of existing rows are untouched.
	UpsertCatalog(ctx context.Context, items []model.CosmeticItem) (int, error)

	// ResetShopFlags clears the in-shop flag on every row that has it.
	ResetShopFlags(ctx context.Context) (int64, error)

	// UpsertShop writes resolved shop items including price and in-shop flag.
	UpsertShop(ctx context.Context, items []model.CosmeticItem) (int, error)

	// ResetNewFlags clears the is-new flag on every row that has it.
	ResetNewFlags(ctx context.Context) (int64, error)

	// MarkNew upserts items with is-new forced on.
	MarkNew(ctx context.Context, items []model.CosmeticItem) (int, error)
}

// CatalogRepository defines cosmetic catalog data access methods.
type CatalogRepository interface {
	// WithinCatalogTx runs fn in one transaction, rolling back if it fails.
	WithinCatalogTx(ctx context.Context, fn func(w CatalogWriter) error) error

	GetCosmetic(ctx context.Context, id string) (*model.CosmeticItem, error)
	GetCosmetics(ctx context.Context, ids []string) ([]model.CosmeticItem, error)
	SearchCosmetics(ctx context.Context, filter model.CatalogFilter) (*model.CatalogPage, error)

	// GetStats returns row counts for the admin dashboard.
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// AccountRepository defines user account data access methods.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.UserAccount) error
	GetAccount(ctx context.Context, id string) (*model.UserAccount, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.UserAccount, error)
}

// LedgerTx is the view of the store available inside a ledger transaction.
type LedgerTx interface {
	GetCosmetic(ctx context.Context, id string) (*model.CosmeticItem, error)
	ExistingCosmeticIDs(ctx context.Context, ids []string) (map[string]bool, error)
	GetAccount(ctx context.Context, id string) (*model.UserAccount, error)

	// GetOwnership returns nil without error when the user never owned the item.
	GetOwnership(ctx context.Context, userID, cosmeticID string) (*model.Ownership, error)
	ListActiveByBundle(ctx context.Context, userID, bundleID string) ([]model.Ownership, error)

	// Debit fails with model.ErrInsufficientFunds instead of going negative.
	Debit(ctx context.Context, userID string, amount int) (int, error)
	Credit(ctx context.Context, userID string, amount int) (int, error)

	// InsertOwnership fails with model.ErrAlreadyOwned on a key conflict.
	InsertOwnership(ctx context.Context, o model.Ownership) error
	// ReactivateOwnership revives a refunded row. It fails with
	// model.ErrAlreadyOwned if the row is not refunded anymore.
	ReactivateOwnership(ctx context.Context, o model.Ownership) error
	// MarkRefunded fails with model.ErrNotFound if no active row matches.
	MarkRefunded(ctx context.Context, userID, cosmeticID string, at time.Time) error
	MarkRefundedByBundle(ctx context.Context, userID, bundleID string, at time.Time) (int64, error)
}

// LedgerRepository defines ownership data access methods.
type LedgerRepository interface {
	WithinLedgerTx(ctx context.Context, fn func(tx LedgerTx) error) error

	ListOwned(ctx context.Context, userID string) ([]model.OwnedCosmetic, error)
	ListHistory(ctx context.Context, userID string) ([]model.HistoryEntry, error)
	GetOwnership(ctx context.Context, userID, cosmeticID string) (*model.Ownership, error)
}

// SyncRunRepository records sync cycle history.
type SyncRunRepository interface {
	StartSyncRun(ctx context.Context, trigger string, startedAt time.Time) (int64, error)
	FinishSyncRun(ctx context.Context, run *model.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
}
