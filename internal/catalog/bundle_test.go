package catalog

import (
	"io"
	"sort"
	"testing"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/upstream"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func brItem(id, name, rarity string) upstream.BRItem {
	return upstream.BRItem{
		ID:     id,
		Name:   name,
		Type:   attr("outfit", "Outfit"),
		Rarity: attr(rarity, rarity),
		Images: upstream.BRImages{Featured: "http://img/" + id + ".png"},
	}
}

func testCatalog(t *testing.T) []model.CosmeticItem {
	t.Helper()
	set := upstream.CategorySet{
		BR: []upstream.BRItem{
			brItem("CID_A", "Alpha", "rare"),
			brItem("CID_B", "Bravo", "epic"),
			brItem("CID_C", "Charlie", "legendary"),
			brItem("CID_D", "Dynamite", "uncommon"),
		},
	}
	items, _ := NormalizeAll(set.Records())
	return items
}

func TestResolveExplicitBundle(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{{
		FinalPrice: 1800,
		Bundle:     &upstream.BundleDescriptor{Name: "Team Pack"},
		BRItems:    []upstream.BRItem{brItem("CID_A", "Alpha", "rare"), brItem("CID_B", "Bravo", "epic")},
	}})

	require.Len(t, res.Items, 3)
	bundle, ok := res.Items["BUNDLE_CID_A"]
	require.True(t, ok)
	assert.True(t, bundle.IsBundle)
	assert.True(t, bundle.InShop)
	assert.Equal(t, 1800, bundle.Price)
	assert.Equal(t, []string{"CID_A", "CID_B"}, bundle.ContainedItemIDs)
	assert.Equal(t, "Team Pack", bundle.Name)
	assert.Equal(t, "Contains 2 items", bundle.Bundle.Info)
	assert.Equal(t, "http://img/CID_A.png", bundle.Bundle.Image)

	for _, id := range []string{"CID_A", "CID_B"} {
		child := res.Items[id]
		assert.Zero(t, child.Price, id)
		assert.False(t, child.InShop, id)
	}
	assert.Equal(t, 1, res.ExplicitBundles)
	assert.Equal(t, []string{"BUNDLE_CID_A"}, res.OfferIDs())
}

func TestResolveImplicitBundle(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{{
		FinalPrice:      1500,
		DevName:         "[VIRTUAL]1 x dynamite for -1 MtxCurrency",
		Bundle:          &upstream.BundleDescriptor{Name: "Boom", Image: "http://img/boom.png"},
		NewDisplayAsset: &upstream.DisplayAsset{CosmeticID: "CID_X"},
	}})

	bundle, ok := res.Items["BUNDLE_CID_X"]
	require.True(t, ok)
	assert.Equal(t, []string{"CID_D"}, bundle.ContainedItemIDs)
	assert.Equal(t, 1500, bundle.Price)
	assert.Equal(t, "http://img/boom.png", bundle.Images.Featured)

	child := res.Items["CID_D"]
	assert.Zero(t, child.Price)
	assert.False(t, child.InShop)
	assert.Equal(t, 1, res.ImplicitBundles)
}

func TestResolveImplicitBundleFallsBackToDisplayAsset(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{{
		FinalPrice:      900,
		DevName:         "[VIRTUAL]1 x Unknown Thing for 900 MtxCurrency",
		Bundle:          &upstream.BundleDescriptor{},
		NewDisplayAsset: &upstream.DisplayAsset{CosmeticID: "CID_C"},
	}})

	bundle, ok := res.Items["BUNDLE_CID_C"]
	require.True(t, ok)
	assert.Equal(t, []string{"CID_C"}, bundle.ContainedItemIDs)
	assert.Equal(t, "Bundle Charlie", bundle.Name)
}

func TestResolveUnresolvableBundle(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{
		{
			DevName:         "[VIRTUAL]1 x Ghost for 100 MtxCurrency",
			Bundle:          &upstream.BundleDescriptor{Name: "Ghost"},
			NewDisplayAsset: &upstream.DisplayAsset{CosmeticID: "CID_MISSING"},
		},
		{FinalPrice: 1200, BRItems: []upstream.BRItem{brItem("CID_A", "Alpha", "rare")}},
	})

	assert.Equal(t, 1, res.Unresolved)
	assert.Len(t, res.Items, 1)
	assert.True(t, res.Items["CID_A"].InShop)
}

func TestResolveIndividualItems(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{
		{FinalPrice: 1000, BRItems: []upstream.BRItem{brItem("CID_A", "Alpha", "rare")}},
		{FinalPrice: 0, BRItems: []upstream.BRItem{brItem("CID_C", "Charlie", "legendary")}},
		// A bundle descriptor with a single item is sold on its own.
		{FinalPrice: 700, Bundle: &upstream.BundleDescriptor{Name: "Solo"}, BRItems: []upstream.BRItem{brItem("CID_B", "Bravo", "epic")}},
	})

	require.Len(t, res.Items, 3)
	assert.Equal(t, 1000, res.Items["CID_A"].Price)
	assert.Equal(t, 2000, res.Items["CID_C"].Price)
	assert.Equal(t, 700, res.Items["CID_B"].Price)
	for _, item := range res.Items {
		assert.True(t, item.InShop)
		assert.False(t, item.IsBundle)
	}
	assert.Equal(t, 3, res.Individual)
}

func TestResolveFirstSeenWins(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{
		{
			FinalPrice: 1800,
			Bundle:     &upstream.BundleDescriptor{Name: "Pack"},
			BRItems:    []upstream.BRItem{brItem("CID_A", "Alpha", "rare"), brItem("CID_B", "Bravo", "epic")},
		},
		{FinalPrice: 999, BRItems: []upstream.BRItem{brItem("CID_A", "Alpha", "rare")}},
	})

	child := res.Items["CID_A"]
	assert.Zero(t, child.Price)
	assert.False(t, child.InShop)
	assert.Zero(t, res.Individual)
}

func TestResolveBundleContentsAreNeverOffers(t *testing.T) {
	r := NewResolver(testCatalog(t), quietLogger())
	res := r.Resolve([]upstream.ShopEntry{
		{
			FinalPrice: 1800,
			Bundle:     &upstream.BundleDescriptor{Name: "Pack"},
			BRItems:    []upstream.BRItem{brItem("CID_A", "Alpha", "rare"), brItem("CID_B", "Bravo", "epic")},
		},
		{
			FinalPrice:      500,
			DevName:         "1 x Dynamite",
			Bundle:          &upstream.BundleDescriptor{Name: "Boom"},
			NewDisplayAsset: &upstream.DisplayAsset{CosmeticID: "CID_D"},
		},
		{FinalPrice: 2000, BRItems: []upstream.BRItem{brItem("CID_C", "Charlie", "legendary")}},
	})

	offers := res.OfferIDs()
	sort.Strings(offers)
	assert.Equal(t, []string{"BUNDLE_CID_A", "BUNDLE_CID_D", "CID_C"}, offers)

	for _, item := range res.Items {
		if !item.IsBundle {
			continue
		}
		assert.NotEmpty(t, item.ContainedItemIDs)
		for _, id := range item.ContainedItemIDs {
			child, ok := res.Items[id]
			require.True(t, ok, id)
			assert.Zero(t, child.Price)
			assert.False(t, child.InShop)
		}
	}
}

func TestResolveCountsDroppedRecords(t *testing.T) {
	r := NewResolver(nil, quietLogger())
	res := r.Resolve([]upstream.ShopEntry{{
		FinalPrice: 800,
		BRItems:    []upstream.BRItem{{ID: "CID_BROKEN", Name: "Broken"}},
	}})
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.DroppedRecords)
}
