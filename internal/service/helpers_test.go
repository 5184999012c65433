package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/pkg/logger"
)

func openStore(t *testing.T) *repository.Store {
	t.Helper()
	s, err := repository.Open(context.Background(), repository.Options{
		Driver: repository.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "shop.db"),
	}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func cosmetic(id string, price int) model.CosmeticItem {
	added := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return model.CosmeticItem{
		ID:     id,
		Name:   "Item " + id,
		Type:   model.Attribute{Value: "outfit", DisplayValue: "Outfit"},
		Rarity: model.Attribute{Value: "rare", DisplayValue: "Rare"},
		Images: model.Images{Icon: "http://img/" + id},
		Added:  &added,
		Price:  price,
		InShop: true,
	}
}

func bundleOf(id string, price int, contained ...string) model.CosmeticItem {
	b := cosmetic(id, price)
	b.Name = "Bundle " + id
	b.Type = model.Attribute{Value: "bundle", DisplayValue: "Bundle"}
	b.IsBundle = true
	b.ContainedItemIDs = contained
	b.Bundle = &model.BundleInfo{Name: b.Name}
	return b
}

// stock writes items as shop rows, keeping their price and flags.
func stock(t *testing.T, s *repository.Store, items ...model.CosmeticItem) {
	t.Helper()
	err := s.WithinCatalogTx(context.Background(), func(w repository.CatalogWriter) error {
		_, err := w.UpsertShop(context.Background(), items)
		return err
	})
	require.NoError(t, err)
}

func newAccount(t *testing.T, s *repository.Store, id string, balance int) {
	t.Helper()
	require.NoError(t, s.CreateAccount(context.Background(), &model.UserAccount{
		ID:           id,
		Username:     "user-" + id,
		PasswordHash: "x",
		Balance:      balance,
		CreatedAt:    time.Now().UTC(),
	}))
}
