package model

import "time"

// Sync run statuses.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncRun records the outcome of one synchronization cycle.
type SyncRun struct {
	ID                int64      `json:"id" db:"id"`
	Trigger           string     `json:"trigger" db:"trigger_source"`
	Status            string     `json:"status" db:"status"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CatalogItems      int        `json:"catalog_items" db:"catalog_items"`
	ShopItems         int        `json:"shop_items" db:"shop_items"`
	NewItems          int        `json:"new_items" db:"new_items"`
	DroppedRecords    int        `json:"dropped_records" db:"dropped_records"`
	UnresolvedBundles int        `json:"unresolved_bundles" db:"unresolved_bundles"`
	ErrorMessage      string     `json:"error_message,omitempty" db:"error_message"`
}

// SyncStats summarizes what a cycle wrote.
type SyncStats struct {
	CatalogItems      int `json:"catalog_items"`
	ShopItems         int `json:"shop_items"`
	NewItems          int `json:"new_items"`
	DroppedRecords    int `json:"dropped_records"`
	UnresolvedBundles int `json:"unresolved_bundles"`
}
