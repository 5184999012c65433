package model

import "time"

// Sort keys accepted by catalog search.
const (
	SortByName   = "name"
	SortByPrice  = "price"
	SortByRarity = "rarity"
	SortByAdded  = "added"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// CatalogFilter narrows a catalog search.
type CatalogFilter struct {
	Query          string     `json:"q,omitempty"`
	Types          []string   `json:"types,omitempty"`
	Rarities       []string   `json:"rarities,omitempty"`
	AddedAfter     *time.Time `json:"added_after,omitempty"`
	AddedBefore    *time.Time `json:"added_before,omitempty"`
	OnlyNew        bool       `json:"only_new,omitempty"`
	OnlyInShop     bool       `json:"only_in_shop,omitempty"`
	OnlyForSale    bool       `json:"only_for_sale,omitempty"`
	ExcludeBundles bool       `json:"exclude_bundles,omitempty"`
	MinPrice       *int       `json:"min_price,omitempty"`
	MaxPrice       *int       `json:"max_price,omitempty"`
	SortBy         string     `json:"sort_by,omitempty"`
	SortDesc       bool       `json:"sort_desc,omitempty"`
	Page           int        `json:"page"`
	PageSize       int        `json:"page_size"`
}

// Normalize clamps paging and sort fields to accepted values.
func (f *CatalogFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	switch f.SortBy {
	case SortByName, SortByPrice, SortByRarity, SortByAdded:
	default:
		f.SortBy = SortByName
	}
}

// Offset returns the row offset of the requested page.
func (f *CatalogFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// FacetCount is the number of matching items sharing one attribute value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CatalogFacets summarizes the whole result set of a search, not just one page.
type CatalogFacets struct {
	Types    []FacetCount `json:"types"`
	Rarities []FacetCount `json:"rarities"`
	MinPrice int          `json:"min_price"`
	MaxPrice int          `json:"max_price"`
}

// CatalogPage is one page of search results.
type CatalogPage struct {
	Items    []CosmeticItem `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Facets   CatalogFacets  `json:"facets"`
}
