package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmetics-shop-api/internal/catalog"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/internal/upstream"
	"cosmetics-shop-api/pkg/logger"
)

type fakeFetcher struct {
	mu       sync.Mutex
	catalog  *upstream.CategorySet
	newItems *upstream.NewItems
	shop     *upstream.Shop
	shopErr  error
	calls    int

	entered chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context) (*upstream.CategorySet, error) {
	f.mu.Lock()
	f.calls++
	entered, release := f.entered, f.release
	set := f.catalog
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return set, nil
}

func (f *fakeFetcher) FetchNewItems(context.Context) (*upstream.NewItems, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newItems, nil
}

func (f *fakeFetcher) FetchShop(context.Context) (*upstream.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shop, f.shopErr
}

func (f *fakeFetcher) set(shop *upstream.Shop, newItems ...upstream.BRItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shop = shop
	f.newItems = &upstream.NewItems{Items: upstream.CategorySet{BR: newItems}}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingInvalidator struct{ n int32 }

func (c *countingInvalidator) Invalidate(context.Context) { atomic.AddInt32(&c.n, 1) }

func br(id, name, rarity string) upstream.BRItem {
	return upstream.BRItem{
		ID:     id,
		Name:   name,
		Type:   &upstream.Attribute{Value: "outfit", DisplayValue: "Outfit"},
		Rarity: &upstream.Attribute{Value: rarity, DisplayValue: rarity},
		Images: upstream.BRImages{Icon: "http://img/" + id},
	}
}

var (
	itemA = br("CID_A", "Alpha", "rare")
	itemB = br("CID_B", "Bravo", "epic")
	itemC = br("CID_C", "Charlie", "legendary")
	itemD = br("CID_D", "Delta", "uncommon")
	itemE = br("CID_E", "Echo", "common")
)

func bundleShop() *upstream.Shop {
	return &upstream.Shop{Entries: []upstream.ShopEntry{
		{
			FinalPrice: 1800,
			Bundle:     &upstream.BundleDescriptor{Name: "Team Pack"},
			BRItems:    []upstream.BRItem{itemA, itemB},
		},
		{FinalPrice: 0, BRItems: []upstream.BRItem{itemC}},
		{
			// Unresolvable: nothing matches and the display asset is unknown.
			FinalPrice:      900,
			Bundle:          &upstream.BundleDescriptor{Name: "Mystery"},
			DevName:         "1 x Nobody for 900 MtxCurrency",
			NewDisplayAsset: &upstream.DisplayAsset{CosmeticID: "CID_NOPE"},
		},
	}}
}

func newFakeFetcher() *fakeFetcher {
	f := &fakeFetcher{
		catalog: &upstream.CategorySet{BR: []upstream.BRItem{itemA, itemB, itemC, itemD, itemE}},
	}
	f.set(bundleShop(), itemE)
	return f
}

func newScheduler(t *testing.T, f Fetcher, inv Invalidator) (*SyncScheduler, *repository.Store) {
	t.Helper()
	s := openStore(t)
	sched := NewSyncScheduler(f, NewReconciler(s, logger.Discard()), s, inv, SyncConfig{
		Interval:     time.Hour,
		CycleTimeout: 5 * time.Second,
	}, logger.Discard())
	t.Cleanup(sched.Stop)
	return sched, s
}

func flagged(t *testing.T, s *repository.Store, ids ...string) (inShop, isNew []string) {
	t.Helper()
	items, err := s.GetCosmetics(context.Background(), ids)
	require.NoError(t, err)
	for _, it := range items {
		if it.InShop {
			inShop = append(inShop, it.ID)
		}
		if it.IsNew {
			isNew = append(isNew, it.ID)
		}
	}
	return inShop, isNew
}

var allIDs = []string{"CID_A", "CID_B", "CID_C", "CID_D", "CID_E", "BUNDLE_CID_A"}

func TestSyncCycleFlagsMatchResolvedOffers(t *testing.T) {
	f := newFakeFetcher()
	inv := &countingInvalidator{}
	sched, s := newScheduler(t, f, inv)
	ctx := context.Background()

	run, err := sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusSuccess, run.Status)
	assert.Equal(t, 5, run.CatalogItems)
	assert.Equal(t, 2, run.ShopItems)
	assert.Equal(t, 1, run.NewItems)
	assert.Equal(t, 1, run.UnresolvedBundles)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inv.n))

	inShop, isNew := flagged(t, s, allIDs...)
	assert.ElementsMatch(t, []string{"BUNDLE_CID_A", "CID_C"}, inShop)
	assert.ElementsMatch(t, []string{"CID_E"}, isNew)

	a, err := s.GetCosmetic(ctx, "CID_A")
	require.NoError(t, err)
	assert.Zero(t, a.Price)

	c, err := s.GetCosmetic(ctx, "CID_C")
	require.NoError(t, err)
	assert.Equal(t, catalog.PriceForRarity("legendary"), c.Price)

	bundle, err := s.GetCosmetic(ctx, "BUNDLE_CID_A")
	require.NoError(t, err)
	assert.Equal(t, 1800, bundle.Price)
	assert.Equal(t, []string{"CID_A", "CID_B"}, bundle.ContainedItemIDs)

	// Next rotation: only D is offered and A is the new item.
	f.set(&upstream.Shop{Entries: []upstream.ShopEntry{{FinalPrice: 500, BRItems: []upstream.BRItem{itemD}}}}, itemA)
	_, err = sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)

	inShop, isNew = flagged(t, s, allIDs...)
	assert.ElementsMatch(t, []string{"CID_D"}, inShop)
	assert.ElementsMatch(t, []string{"CID_A"}, isNew)

	runs, err := s.ListSyncRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestBundleChildRegainsPriceAfterRotation(t *testing.T) {
	f := newFakeFetcher()
	sched, s := newScheduler(t, f, nil)
	ctx := context.Background()

	_, err := sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)
	a, err := s.GetCosmetic(ctx, "CID_A")
	require.NoError(t, err)
	require.Zero(t, a.Price)

	f.set(&upstream.Shop{Entries: []upstream.ShopEntry{{FinalPrice: 500, BRItems: []upstream.BRItem{itemD}}}}, itemE)
	_, err = sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)

	for id, rarity := range map[string]string{"CID_A": "rare", "CID_B": "epic", "CID_D": "uncommon"} {
		got, err := s.GetCosmetic(ctx, id)
		require.NoError(t, err)
		if id == "CID_D" {
			assert.Equal(t, 500, got.Price, id)
			continue
		}
		assert.Equal(t, catalog.PriceForRarity(rarity), got.Price, id)
		assert.False(t, got.InShop, id)
	}

	newAccount(t, s, "broke", 0)
	ledger := NewLedgerService(s, s, logger.Discard())
	res, err := ledger.Purchase(ctx, "broke", "CID_A")
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	require.NotNil(t, res)
	assert.False(t, res.Success)

	// Offered again, the bundle zeroes its contents once more.
	f.set(bundleShop(), itemE)
	_, err = sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)
	a, err = s.GetCosmetic(ctx, "CID_A")
	require.NoError(t, err)
	assert.Zero(t, a.Price)
}

func TestSyncCycleIsIdempotent(t *testing.T) {
	f := newFakeFetcher()
	sched, s := newScheduler(t, f, nil)
	ctx := context.Background()

	_, err := sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)
	first, err := s.GetCosmetics(ctx, allIDs)
	require.NoError(t, err)

	_, err = sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)
	second, err := s.GetCosmetics(ctx, allIDs)
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)
}

func TestFailedCycleKeepsPreviousState(t *testing.T) {
	f := newFakeFetcher()
	inv := &countingInvalidator{}
	sched, s := newScheduler(t, f, inv)
	ctx := context.Background()

	_, err := sched.RunNow(ctx, TriggerManual)
	require.NoError(t, err)

	f.mu.Lock()
	f.shopErr = model.ErrUpstreamUnavailable
	f.mu.Unlock()

	run, err := sched.RunNow(ctx, TriggerSchedule)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	require.NotNil(t, run)
	assert.Equal(t, model.SyncStatusFailed, run.Status)
	assert.NotEmpty(t, run.ErrorMessage)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inv.n))

	inShop, _ := flagged(t, s, allIDs...)
	assert.ElementsMatch(t, []string{"BUNDLE_CID_A", "CID_C"}, inShop)

	last := sched.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, model.SyncStatusFailed, last.Status)

	// The scheduler keeps working once upstream recovers.
	f.mu.Lock()
	f.shopErr = nil
	f.mu.Unlock()
	run, err = sched.RunNow(ctx, TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusSuccess, run.Status)
}

func TestRunNowRejectsOverlap(t *testing.T) {
	f := newFakeFetcher()
	f.entered = make(chan struct{}, 1)
	f.release = make(chan struct{})
	sched, _ := newScheduler(t, f, nil)

	done := make(chan error, 1)
	go func() {
		_, err := sched.RunNow(context.Background(), TriggerManual)
		done <- err
	}()
	<-f.entered

	_, err := sched.RunNow(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, model.ErrSyncInProgress)

	f.mu.Lock()
	f.entered = nil
	f.mu.Unlock()
	close(f.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.callCount())
}

func TestStartRunsFirstCycleAndStops(t *testing.T) {
	f := newFakeFetcher()
	sched, s := newScheduler(t, f, nil)

	sched.Start()
	require.Eventually(t, func() bool {
		run := sched.LastRun()
		return run != nil && run.Status == model.SyncStatusSuccess
	}, 5*time.Second, 10*time.Millisecond)
	sched.Stop()

	assert.Equal(t, TriggerStartup, sched.LastRun().Trigger)
	runs, err := s.ListSyncRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStopBeforeStartupDelay(t *testing.T) {
	f := newFakeFetcher()
	s := openStore(t)
	sched := NewSyncScheduler(f, NewReconciler(s, logger.Discard()), s, nil, SyncConfig{
		Interval:     time.Hour,
		StartupDelay: time.Hour,
	}, logger.Discard())

	sched.Start()
	sched.Stop()
	assert.Zero(t, f.callCount())
	assert.Nil(t, sched.LastRun())
}
