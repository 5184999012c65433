package model

// PurchaseResult is returned for every purchase attempt, accepted or declined.
type PurchaseResult struct {
	Success          bool             `json:"success"`
	Message          string           `json:"message"`
	RemainingBalance int              `json:"remaining_balance"`
	Cosmetic         *CosmeticSummary `json:"cosmetic,omitempty"`
	GrantedItemIDs   []string         `json:"granted_item_ids,omitempty"`
}

// RefundResult is returned for every refund attempt, accepted or declined.
type RefundResult struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	RefundedAmount   int      `json:"refunded_amount"`
	RemainingBalance int      `json:"remaining_balance"`
	RevokedItemIDs   []string `json:"revoked_item_ids,omitempty"`
}
