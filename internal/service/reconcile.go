package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/catalog"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
)

// Snapshot is everything one sync cycle learned from upstream, already
// normalized and resolved.
type Snapshot struct {
	Catalog  []model.CosmeticItem
	Shop     *catalog.Resolution
	NewItems []model.CosmeticItem
}

// Reconciler applies a snapshot to the store.
type Reconciler struct {
	repo repository.CatalogRepository
	log  logrus.FieldLogger
}

// NewReconciler creates a new reconciler.
func NewReconciler(repo repository.CatalogRepository, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		repo: repo,
		log:  log.WithField("component", "reconciler"),
	}
}

// Apply runs the four reconciliation steps in order inside one transaction.
// If any step fails nothing is written and the previous state stays in place.
// After a successful run the in-shop rows are exactly the snapshot's offers
// and the is-new rows are exactly its new items.
func (r *Reconciler) Apply(ctx context.Context, snap Snapshot) (model.SyncStats, error) {
	var stats model.SyncStats
	var shopItems []model.CosmeticItem
	if snap.Shop != nil {
		shopItems = snap.Shop.List()
		stats.ShopItems = len(snap.Shop.OfferIDs())
	}

	err := r.repo.WithinCatalogTx(ctx, func(w repository.CatalogWriter) error {
		n, err := w.UpsertCatalog(ctx, snap.Catalog)
		if err != nil {
			return fmt.Errorf("upsert catalog: %w", err)
		}
		stats.CatalogItems = n

		cleared, err := w.ResetShopFlags(ctx)
		if err != nil {
			return fmt.Errorf("reset shop flags: %w", err)
		}
		if _, err := w.UpsertShop(ctx, shopItems); err != nil {
			return fmt.Errorf("upsert shop: %w", err)
		}

		stale, err := w.ResetNewFlags(ctx)
		if err != nil {
			return fmt.Errorf("reset new flags: %w", err)
		}
		n, err = w.MarkNew(ctx, snap.NewItems)
		if err != nil {
			return fmt.Errorf("mark new items: %w", err)
		}
		stats.NewItems = n

		r.log.WithFields(logrus.Fields{
			"catalog":       stats.CatalogItems,
			"shop_cleared":  cleared,
			"shop_resolved": len(shopItems),
			"new_cleared":   stale,
			"new":           stats.NewItems,
		}).Debug("Reconciliation steps applied")
		return nil
	})
	if err != nil {
		return model.SyncStats{}, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return stats, nil
}
