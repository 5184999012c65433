package catalog

import (
	"fmt"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/upstream"
)

var (
	unknownAttribute = model.Attribute{Value: "unknown", DisplayValue: "Unknown"}

	trackType      = model.Attribute{Value: "track", DisplayValue: "Track"}
	instrumentType = model.Attribute{Value: "instrument", DisplayValue: "Instrument"}
	carType        = model.Attribute{Value: "car", DisplayValue: "Vehicle"}
	legoType       = model.Attribute{Value: "lego", DisplayValue: "LEGO"}
	legoKitType    = model.Attribute{Value: "legokit", DisplayValue: "LEGO Kit"}
	beanType       = model.Attribute{Value: "bean", DisplayValue: "Bean"}

	uncommonRarity = model.Attribute{Value: "uncommon", DisplayValue: "Uncommon"}
	rareRarity     = model.Attribute{Value: "rare", DisplayValue: "Rare"}
	legoRarity     = model.Attribute{Value: "lego", DisplayValue: "LEGO"}
)

// Report counts what a normalization pass kept and dropped.
type Report struct {
	Kept    int
	Dropped map[upstream.Category]int
}

// DroppedTotal returns the number of records dropped across categories.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

func (r *Report) drop(c upstream.Category) {
	if r.Dropped == nil {
		r.Dropped = make(map[upstream.Category]int)
	}
	r.Dropped[c]++
}

// Normalize converts one upstream record into a CosmeticItem. Records without
// an id, or without both a type and a rarity, fail with model.ErrIncompleteRecord.
// Only battle royale items carry a derived price; every other category is priced 0.
func Normalize(rec upstream.Record) (model.CosmeticItem, error) {
	if rec == nil || rec.RecordID() == "" {
		return model.CosmeticItem{}, fmt.Errorf("%w: missing id", model.ErrIncompleteRecord)
	}

	switch r := rec.(type) {
	case upstream.BRItem:
		return normalizeBR(r)
	case upstream.Track:
		return model.CosmeticItem{
			ID:          r.ID,
			Name:        firstNonEmpty(r.Title, r.DevName, "Unknown Track"),
			Description: r.Artist,
			Type:        trackType,
			Rarity:      uncommonRarity,
			Images:      model.Images{SmallIcon: r.AlbumArt, Icon: r.AlbumArt, Featured: r.AlbumArt},
			Added:       r.Added,
		}, nil
	case upstream.Instrument:
		return model.CosmeticItem{
			ID:          r.ID,
			Name:        firstNonEmpty(r.Name, "Unknown Instrument"),
			Description: r.Description,
			Type:        attributeOr(r.Type, instrumentType),
			Rarity:      attributeOr(r.Rarity, uncommonRarity),
			Series:      series(r.Series),
			Images:      sizedImages(r.Images),
			Added:       r.Added,
		}, nil
	case upstream.Car:
		return model.CosmeticItem{
			ID:          r.ID,
			Name:        firstNonEmpty(r.Name, "Unknown Car"),
			Description: r.Description,
			Type:        attributeOr(r.Type, carType),
			Rarity:      attributeOr(r.Rarity, rareRarity),
			Series:      series(r.Series),
			Images:      sizedImages(r.Images),
			Added:       r.Added,
		}, nil
	case upstream.Lego:
		return model.CosmeticItem{
			ID:     r.ID,
			Name:   firstNonEmpty(r.CosmeticID, r.ID),
			Type:   legoType,
			Rarity: legoRarity,
			Images: sizedImages(r.Images),
			Added:  r.Added,
		}, nil
	case upstream.LegoKit:
		return model.CosmeticItem{
			ID:     r.ID,
			Name:   firstNonEmpty(r.Name, "Unknown LEGO Kit"),
			Type:   attributeOr(r.Type, legoKitType),
			Rarity: legoRarity,
			Series: series(r.Series),
			Images: sizedImages(r.Images),
			Added:  r.Added,
		}, nil
	case upstream.Bean:
		return model.CosmeticItem{
			ID:          r.ID,
			Name:        firstNonEmpty(r.Name, "Unknown Bean"),
			Description: r.Gender,
			Type:        beanType,
			Rarity:      uncommonRarity,
			Images:      sizedImages(r.Images),
			Added:       r.Added,
		}, nil
	default:
		return model.CosmeticItem{}, fmt.Errorf("%w: unsupported category %q", model.ErrIncompleteRecord, rec.Category())
	}
}

func normalizeBR(r upstream.BRItem) (model.CosmeticItem, error) {
	if r.Type.Empty() && r.Rarity.Empty() {
		return model.CosmeticItem{}, fmt.Errorf("%w: %s has neither type nor rarity", model.ErrIncompleteRecord, r.ID)
	}

	rarity := attributeOr(r.Rarity, unknownAttribute)
	return model.CosmeticItem{
		ID:          r.ID,
		Name:        firstNonEmpty(r.Name, "Unknown Item"),
		Description: r.Description,
		Type:        attributeOr(r.Type, unknownAttribute),
		Rarity:      rarity,
		Series:      series(r.Series),
		Images: model.Images{
			SmallIcon: r.Images.SmallIcon,
			Icon:      r.Images.Icon,
			Featured:  r.Images.Featured,
		},
		Added: r.Added,
		Price: PriceForRarity(rarity.Value),
	}, nil
}

// NormalizeAll normalizes records, skipping incomplete ones and counting them
// per category. Later duplicates of an id are discarded.
func NormalizeAll(records []upstream.Record) ([]model.CosmeticItem, Report) {
	report := Report{}
	items := make([]model.CosmeticItem, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		item, err := Normalize(rec)
		if err != nil {
			if rec != nil {
				report.drop(rec.Category())
			}
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	report.Kept = len(items)
	return items, report
}

func attributeOr(a *upstream.Attribute, fallback model.Attribute) model.Attribute {
	if a.Empty() {
		return fallback
	}
	display := a.DisplayValue
	if display == "" {
		display = a.Value
	}
	return model.Attribute{Value: a.Value, DisplayValue: display}
}

func series(s *upstream.Series) *model.Series {
	if s == nil || s.Value == "" {
		return nil
	}
	return &model.Series{Value: s.Value, Image: s.Image}
}

func sizedImages(i upstream.SizedImages) model.Images {
	return model.Images{SmallIcon: i.Small, Icon: i.Large, Featured: firstNonEmpty(i.Wide, i.Large)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
