package catalog

import (
	"fmt"
	"strings"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/upstream"

	"github.com/sirupsen/logrus"
)

// BundleIDPrefix starts every synthesized bundle id.
const BundleIDPrefix = "BUNDLE_"

var (
	bundleType   = model.Attribute{Value: "bundle", DisplayValue: "Bundle"}
	bundleRarity = model.Attribute{Value: "legendary", DisplayValue: "Bundle"}
)

// BundleID builds the id of a bundle keyed by one of its items.
func BundleID(key string) string {
	return BundleIDPrefix + key
}

// Resolution is the resolved shop: every item that is on sale or absorbed into
// a bundle on sale, keyed by id, plus counters for the pass.
type Resolution struct {
	Items map[string]model.CosmeticItem
	order []string

	ExplicitBundles int
	ImplicitBundles int
	Individual      int
	Unresolved      int
	DroppedRecords  int
}

func newResolution() *Resolution {
	return &Resolution{Items: make(map[string]model.CosmeticItem)}
}

// put stores item unless its id is already taken. The first writer wins.
func (r *Resolution) put(item model.CosmeticItem) bool {
	if _, exists := r.Items[item.ID]; exists {
		return false
	}
	r.Items[item.ID] = item
	r.order = append(r.order, item.ID)
	return true
}

// List returns the resolved items in the order they were first seen.
func (r *Resolution) List() []model.CosmeticItem {
	out := make([]model.CosmeticItem, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.Items[id])
	}
	return out
}

// OfferIDs returns the ids that are directly purchasable in the shop.
func (r *Resolution) OfferIDs() []string {
	var ids []string
	for _, id := range r.order {
		if r.Items[id].InShop {
			ids = append(ids, id)
		}
	}
	return ids
}

// Resolver turns shop entries into resolved items. It needs the full normalized
// catalog of the current cycle to match implicit bundle contents by name.
type Resolver struct {
	byID   map[string]model.CosmeticItem
	byName map[string]string
	log    logrus.FieldLogger
}

// NewResolver indexes the catalog. When several items share a name the first
// one listed wins.
func NewResolver(catalog []model.CosmeticItem, log logrus.FieldLogger) *Resolver {
	r := &Resolver{
		byID:   make(map[string]model.CosmeticItem, len(catalog)),
		byName: make(map[string]string, len(catalog)),
		log:    log.WithField("component", "bundle_resolver"),
	}
	for _, item := range catalog {
		if _, ok := r.byID[item.ID]; !ok {
			r.byID[item.ID] = item
		}
		key := nameKey(item.Name)
		if key == "" {
			continue
		}
		if _, ok := r.byName[key]; !ok {
			r.byName[key] = item.ID
		}
	}
	return r
}

// Resolve processes entries in order. It has no side effects beyond logging.
func (r *Resolver) Resolve(entries []upstream.ShopEntry) *Resolution {
	res := newResolution()
	for i := range entries {
		r.resolveEntry(res, &entries[i])
	}

	r.log.WithFields(logrus.Fields{
		"entries":          len(entries),
		"items":            len(res.Items),
		"explicit_bundles": res.ExplicitBundles,
		"implicit_bundles": res.ImplicitBundles,
		"individual":       res.Individual,
		"unresolved":       res.Unresolved,
		"dropped_records":  res.DroppedRecords,
	}).Info("Resolved shop entries")
	return res
}

func (r *Resolver) resolveEntry(res *Resolution, entry *upstream.ShopEntry) {
	records := entry.Records()
	items, report := NormalizeAll(records)
	res.DroppedRecords += report.DroppedTotal()

	switch {
	case entry.Bundle != nil && len(items) > 1:
		r.explicitBundle(res, entry, items)
	case entry.Bundle != nil && len(records) == 0 && entry.DisplayCosmeticID() != "":
		if err := r.implicitBundle(res, entry); err != nil {
			res.Unresolved++
			r.log.WithError(err).WithField("dev_name", entry.DevName).Warn("Skipping shop entry")
		}
	case entry.Bundle != nil && len(records) == 0:
		res.Unresolved++
		r.log.WithField("dev_name", entry.DevName).Warn("Skipping bundle entry without items or display asset")
	default:
		for _, item := range items {
			if entry.FinalPrice > 0 {
				item.Price = entry.FinalPrice
			}
			item.InShop = true
			if res.put(item) {
				res.Individual++
			}
		}
	}
}

func (r *Resolver) explicitBundle(res *Resolution, entry *upstream.ShopEntry, items []model.CosmeticItem) {
	bundle := newBundleItem(BundleID(items[0].ID), entry, items)
	if res.put(bundle) {
		res.ExplicitBundles++
	}
	for _, item := range items {
		res.put(absorbed(item))
	}
}

func (r *Resolver) implicitBundle(res *Resolution, entry *upstream.ShopEntry) error {
	displayID := entry.DisplayCosmeticID()

	var contents []model.CosmeticItem
	seen := make(map[string]struct{})
	for _, name := range ParseDevName(entry.DevName) {
		id, ok := r.byName[nameKey(name)]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		contents = append(contents, r.byID[id])
	}

	if len(contents) == 0 {
		item, ok := r.byID[displayID]
		if !ok {
			return fmt.Errorf("%w: %q matched no catalog items and display asset %s is unknown",
				model.ErrUnresolvableBundle, entry.DevName, displayID)
		}
		contents = append(contents, item)
	}

	bundle := newBundleItem(BundleID(displayID), entry, contents)
	if res.put(bundle) {
		res.ImplicitBundles++
	}
	for _, item := range contents {
		res.put(absorbed(item))
	}
	return nil
}

func newBundleItem(id string, entry *upstream.ShopEntry, contents []model.CosmeticItem) model.CosmeticItem {
	ids := make([]string, 0, len(contents))
	for _, c := range contents {
		ids = append(ids, c.ID)
	}

	info := model.BundleInfo{
		Name:  entry.Bundle.Name,
		Info:  entry.Bundle.Info,
		Image: entry.Bundle.Image,
	}
	if info.Name == "" {
		info.Name = "Bundle " + contents[0].Name
	}
	if info.Info == "" {
		info.Info = fmt.Sprintf("Contains %d items", len(contents))
	}
	if info.Image == "" {
		info.Image = contents[0].Images.Best()
	}

	return model.CosmeticItem{
		ID:               id,
		Name:             info.Name,
		Description:      info.Info,
		Type:             bundleType,
		Rarity:           bundleRarity,
		Images:           model.Images{SmallIcon: info.Image, Icon: info.Image, Featured: info.Image},
		Added:            entry.InDate,
		Price:            entry.FinalPrice,
		InShop:           true,
		IsBundle:         true,
		ContainedItemIDs: ids,
		Bundle:           &info,
	}
}

// absorbed returns the copy of item stored for a bundle's contents.
func absorbed(item model.CosmeticItem) model.CosmeticItem {
	item.Price = 0
	item.InShop = false
	item.IsNew = false
	return item
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
