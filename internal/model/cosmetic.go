package model

import "time"

// Attribute is a categorical value paired with its display label.
type Attribute struct {
	Value        string `json:"value"`
	DisplayValue string `json:"display_value"`
}

// Series identifies the collection a cosmetic belongs to.
type Series struct {
	Value string `json:"value"`
	Image string `json:"image,omitempty"`
}

// Images holds the artwork URLs for a cosmetic. Any of them may be empty.
type Images struct {
	SmallIcon string `json:"small_icon,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Featured  string `json:"featured,omitempty"`
}

// Best returns the most representative image available.
func (i Images) Best() string {
	switch {
	case i.Featured != "":
		return i.Featured
	case i.Icon != "":
		return i.Icon
	default:
		return i.SmallIcon
	}
}

// BundleInfo is the display metadata of a bundle offer.
type BundleInfo struct {
	Name  string `json:"name"`
	Info  string `json:"info,omitempty"`
	Image string `json:"image,omitempty"`
}

// CosmeticItem is the canonical shape every upstream category is normalized into.
type CosmeticItem struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	Type             Attribute   `json:"type"`
	Rarity           Attribute   `json:"rarity"`
	Series           *Series     `json:"series,omitempty"`
	Images           Images      `json:"images"`
	Added            *time.Time  `json:"added,omitempty"`
	Price            int         `json:"price"`
	InShop           bool        `json:"in_shop"`
	IsNew            bool        `json:"is_new"`
	IsBundle         bool        `json:"is_bundle"`
	ContainedItemIDs []string    `json:"contained_item_ids,omitempty"`
	Bundle           *BundleInfo `json:"bundle,omitempty"`
}

// CosmeticSummary is the short form used inside purchase results and bundle details.
type CosmeticSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rarity string `json:"rarity"`
	Image  string `json:"image,omitempty"`
	Price  int    `json:"price"`
}

// Summary returns the short form of the item.
func (c *CosmeticItem) Summary() CosmeticSummary {
	return CosmeticSummary{
		ID:     c.ID,
		Name:   c.Name,
		Type:   c.Type.DisplayValue,
		Rarity: c.Rarity.DisplayValue,
		Image:  c.Images.Best(),
		Price:  c.Price,
	}
}

// CosmeticDetail is a cosmetic plus the summaries of the items a bundle contains.
type CosmeticDetail struct {
	CosmeticItem
	ContainedItems []CosmeticSummary `json:"contained_items,omitempty"`
}
