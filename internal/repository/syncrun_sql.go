package repository

import (
	"context"
	"fmt"
	"time"

	"cosmetics-shop-api/internal/model"
)

const syncRunColumns = `id, trigger_source, status, started_at, finished_at, catalog_items, shop_items,
	new_items, dropped_records, unresolved_bundles, error_message`

// StartSyncRun records a cycle as running and returns its id.
func (s *Store) StartSyncRun(ctx context.Context, trigger string, startedAt time.Time) (int64, error) {
	query := `INSERT INTO sync_runs (trigger_source, status, started_at, error_message) VALUES (?, ?, ?, '')`
	args := []interface{}{trigger, model.SyncStatusRunning, startedAt.UTC()}

	if s.dialect.supportsReturning() {
		var id int64
		if err := s.db.GetContext(ctx, &id, s.db.Rebind(query+` RETURNING id`), args...); err != nil {
			return 0, fmt.Errorf("failed to start sync run: %w", err)
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to start sync run: %w", err)
	}
	return res.LastInsertId()
}

// FinishSyncRun stores the outcome of a cycle.
func (s *Store) FinishSyncRun(ctx context.Context, run *model.SyncRun) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	query := s.db.Rebind(`UPDATE sync_runs SET status = ?, finished_at = ?, catalog_items = ?, shop_items = ?,
		new_items = ?, dropped_records = ?, unresolved_bundles = ?, error_message = ? WHERE id = ?`)
	_, err := s.db.ExecContext(ctx, query,
		run.Status, finished, run.CatalogItems, run.ShopItems, run.NewItems,
		run.DroppedRecords, run.UnresolvedBundles, run.ErrorMessage, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs first.
func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs := []model.SyncRun{}
	query := s.db.Rebind(`SELECT ` + syncRunColumns + ` FROM sync_runs ORDER BY id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
