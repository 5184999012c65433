package model

import "time"

// UserAccount is a storefront customer holding a virtual currency balance.
type UserAccount struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Balance      int       `json:"balance" db:"balance"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Ownership links a user to a cosmetic they bought, directly or through a bundle.
// A row is never deleted; refunds flip Refunded and re-purchases reactivate it.
type Ownership struct {
	UserID         string     `json:"user_id" db:"user_id"`
	CosmeticID     string     `json:"cosmetic_id" db:"cosmetic_id"`
	PurchasePrice  int        `json:"purchase_price" db:"purchase_price"`
	PurchasedAt    time.Time  `json:"purchased_at" db:"purchased_at"`
	Refunded       bool       `json:"refunded" db:"refunded"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`
	ParentBundleID *string    `json:"parent_bundle_id,omitempty" db:"parent_bundle_id"`
}

// Active reports whether the row currently grants the item.
func (o *Ownership) Active() bool {
	return !o.Refunded
}

// FromBundle reports whether the row was granted by a bundle purchase.
func (o *Ownership) FromBundle() bool {
	return o.ParentBundleID != nil && *o.ParentBundleID != ""
}

// OwnedCosmetic is an active ownership joined with its catalog item.
type OwnedCosmetic struct {
	Cosmetic       CosmeticSummary `json:"cosmetic"`
	PurchasePrice  int             `json:"purchase_price"`
	PurchasedAt    time.Time       `json:"purchased_at"`
	ParentBundleID *string         `json:"parent_bundle_id,omitempty"`
}

// HistoryEntry is one ownership row as shown in a purchase history.
type HistoryEntry struct {
	Ownership
	CosmeticName string `json:"cosmetic_name"`
}

// PurchaseHistory is a user's full purchase and refund record.
type PurchaseHistory struct {
	Entries       []HistoryEntry `json:"entries"`
	TotalSpent    int            `json:"total_spent"`
	TotalRefunded int            `json:"total_refunded"`
}

// UserProfile is the public view of an account and what it owns.
type UserProfile struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Balance    int             `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	OwnedCount int             `json:"owned_count"`
	Owned      []OwnedCosmetic `json:"owned"`
}
