package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmetics-shop-api/internal/model"

	"github.com/jmoiron/sqlx"
)

const cosmeticColumns = `id, name, description, type_value, type_display, rarity_value, rarity_display,
	series_value, series_image, image_small, image_icon, image_featured, added_at,
	price, in_shop, is_new, is_bundle, contained_item_ids, bundle_name, bundle_info, bundle_image`

var (
	insertColumns = []string{
		"id", "name", "description", "type_value", "type_display", "rarity_value", "rarity_display",
		"series_value", "series_image", "image_small", "image_icon", "image_featured", "added_at",
		"price", "in_shop", "is_new", "is_bundle", "contained_item_ids", "bundle_name", "bundle_info", "bundle_image",
	}
	displayColumns = []string{
		"name", "description", "type_value", "type_display", "rarity_value", "rarity_display",
		"series_value", "series_image", "image_small", "image_icon", "image_featured", "added_at",
	}
	bundleColumns = []string{"is_bundle", "contained_item_ids", "bundle_name", "bundle_info", "bundle_image"}
)

// cosmeticRow is the flat storage form of model.CosmeticItem.
type cosmeticRow struct {
	ID               string       `db:"id"`
	Name             string       `db:"name"`
	Description      string       `db:"description"`
	TypeValue        string       `db:"type_value"`
	TypeDisplay      string       `db:"type_display"`
	RarityValue      string       `db:"rarity_value"`
	RarityDisplay    string       `db:"rarity_display"`
	SeriesValue      string       `db:"series_value"`
	SeriesImage      string       `db:"series_image"`
	ImageSmall       string       `db:"image_small"`
	ImageIcon        string       `db:"image_icon"`
	ImageFeatured    string       `db:"image_featured"`
	AddedAt          sql.NullTime `db:"added_at"`
	Price            int          `db:"price"`
	InShop           bool         `db:"in_shop"`
	IsNew            bool         `db:"is_new"`
	IsBundle         bool         `db:"is_bundle"`
	ContainedItemIDs string       `db:"contained_item_ids"`
	BundleName       string       `db:"bundle_name"`
	BundleInfo       string       `db:"bundle_info"`
	BundleImage      string       `db:"bundle_image"`
}

func (r *cosmeticRow) toModel() model.CosmeticItem {
	item := model.CosmeticItem{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        model.Attribute{Value: r.TypeValue, DisplayValue: r.TypeDisplay},
		Rarity:      model.Attribute{Value: r.RarityValue, DisplayValue: r.RarityDisplay},
		Images:      model.Images{SmallIcon: r.ImageSmall, Icon: r.ImageIcon, Featured: r.ImageFeatured},
		Price:       r.Price,
		InShop:      r.InShop,
		IsNew:       r.IsNew,
		IsBundle:    r.IsBundle,
	}
	if r.SeriesValue != "" {
		item.Series = &model.Series{Value: r.SeriesValue, Image: r.SeriesImage}
	}
	if r.AddedAt.Valid {
		t := r.AddedAt.Time.UTC()
		item.Added = &t
	}
	if r.IsBundle {
		_ = json.Unmarshal([]byte(r.ContainedItemIDs), &item.ContainedItemIDs)
		item.Bundle = &model.BundleInfo{Name: r.BundleName, Info: r.BundleInfo, Image: r.BundleImage}
	}
	return item
}

// cosmeticArgs returns insert arguments in insertColumns order.
func cosmeticArgs(item *model.CosmeticItem) []interface{} {
	var seriesValue, seriesImage string
	if item.Series != nil {
		seriesValue, seriesImage = item.Series.Value, item.Series.Image
	}
	var added interface{}
	if item.Added != nil {
		added = item.Added.UTC()
	}
	contained := "[]"
	if len(item.ContainedItemIDs) > 0 {
		b, _ := json.Marshal(item.ContainedItemIDs)
		contained = string(b)
	}
	var bundle model.BundleInfo
	if item.Bundle != nil {
		bundle = *item.Bundle
	}

	return []interface{}{
		item.ID, item.Name, item.Description,
		item.Type.Value, item.Type.DisplayValue, item.Rarity.Value, item.Rarity.DisplayValue,
		seriesValue, seriesImage, item.Images.SmallIcon, item.Images.Icon, item.Images.Featured, added,
		item.Price, item.InShop, item.IsNew, item.IsBundle, contained, bundle.Name, bundle.Info, bundle.Image,
	}
}

// catalogTx implements CatalogWriter on an open transaction.
type catalogTx struct {
	tx *sqlx.Tx
	d  dialect
}

// WithinCatalogTx runs fn in one transaction, rolling back if it fails.
func (s *Store) WithinCatalogTx(ctx context.Context, fn func(w CatalogWriter) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&catalogTx{tx: tx, d: s.dialect})
	})
}

func (c *catalogTx) upsertBatch(ctx context.Context, items []model.CosmeticItem, update []string, mutate func(*model.CosmeticItem)) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	query := c.tx.Rebind(c.d.upsert("cosmetics", "id", insertColumns, update))
	stmt, err := c.tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		item := items[i]
		if mutate != nil {
			mutate(&item)
		}
		if _, err := stmt.ExecContext(ctx, cosmeticArgs(&item)...); err != nil {
			return 0, fmt.Errorf("failed to upsert cosmetic %s: %w", item.ID, err)
		}
	}
	return len(items), nil
}

// UpsertCatalog inserts unseen items with both flags off and refreshes display,
// bundle and derived price fields of existing ones. A price zeroed by an
// earlier bundle is restored here and zeroed again by UpsertShop while the
// bundle is still offered.
func (c *catalogTx) UpsertCatalog(ctx context.Context, items []model.CosmeticItem) (int, error) {
	update := append(append([]string{}, displayColumns...), bundleColumns...)
	update = append(update, "price")
	return c.upsertBatch(ctx, items, update, func(item *model.CosmeticItem) {
		item.InShop = false
		item.IsNew = false
	})
}

// ResetShopFlags clears the in-shop flag on every row that has it.
func (c *catalogTx) ResetShopFlags(ctx context.Context) (int64, error) {
	res, err := c.tx.ExecContext(ctx, `UPDATE cosmetics SET in_shop = FALSE WHERE in_shop = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset shop flags: %w", err)
	}
	return res.RowsAffected()
}

// UpsertShop writes resolved shop items with their price and in-shop flag.
func (c *catalogTx) UpsertShop(ctx context.Context, items []model.CosmeticItem) (int, error) {
	update := append(append([]string{}, displayColumns...), bundleColumns...)
	update = append(update, "price", "in_shop")
	return c.upsertBatch(ctx, items, update, func(item *model.CosmeticItem) {
		item.IsNew = false
	})
}

// ResetNewFlags clears the is-new flag on every row that has it.
func (c *catalogTx) ResetNewFlags(ctx context.Context) (int64, error) {
	res, err := c.tx.ExecContext(ctx, `UPDATE cosmetics SET is_new = FALSE WHERE is_new = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset new flags: %w", err)
	}
	return res.RowsAffected()
}

// MarkNew upserts items with is-new forced on.
func (c *catalogTx) MarkNew(ctx context.Context, items []model.CosmeticItem) (int, error) {
	update := append(append([]string{}, displayColumns...), "is_new")
	return c.upsertBatch(ctx, items, update, func(item *model.CosmeticItem) {
		item.IsNew = true
		item.InShop = false
	})
}

// GetCosmetic retrieves a cosmetic by id.
func (s *Store) GetCosmetic(ctx context.Context, id string) (*model.CosmeticItem, error) {
	return getCosmetic(ctx, s.db, id)
}

func getCosmetic(ctx context.Context, q sqlx.ExtContext, id string) (*model.CosmeticItem, error) {
	var row cosmeticRow
	query := q.Rebind(`SELECT ` + cosmeticColumns + ` FROM cosmetics WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cosmetic %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cosmetic: %w", err)
	}
	item := row.toModel()
	return &item, nil
}

// GetCosmetics retrieves the cosmetics with the given ids, in no particular order.
func (s *Store) GetCosmetics(ctx context.Context, ids []string) ([]model.CosmeticItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+cosmeticColumns+` FROM cosmetics WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var rows []cosmeticRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get cosmetics: %w", err)
	}

	items := make([]model.CosmeticItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toModel())
	}
	return items, nil
}

var rarityOrder = `CASE rarity_value
		WHEN 'common' THEN 1 WHEN 'uncommon' THEN 2 WHEN 'rare' THEN 3
		WHEN 'epic' THEN 4 WHEN 'legendary' THEN 5 ELSE 6 END`

// SearchCosmetics returns one page of matching items plus facets over all matches.
func (s *Store) SearchCosmetics(ctx context.Context, filter model.CatalogFilter) (*model.CatalogPage, error) {
	filter.Normalize()

	where, args, err := s.searchConditions(ctx, &filter)
	if err != nil {
		return nil, err
	}

	page := &model.CatalogPage{Page: filter.Page, PageSize: filter.PageSize, Items: []model.CosmeticItem{}}

	countQuery, countArgs, err := sqlx.In(`SELECT COUNT(*) FROM cosmetics`+where, args...)
	if err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &page.Total, s.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, fmt.Errorf("failed to count cosmetics: %w", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	facets, err := s.searchFacets(ctx, where, args)
	if err != nil {
		return nil, err
	}
	page.Facets = *facets

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	var orderBy string
	switch filter.SortBy {
	case model.SortByPrice:
		orderBy = "price " + direction + ", name ASC"
	case model.SortByRarity:
		orderBy = rarityOrder + " " + direction + ", name ASC"
	case model.SortByAdded:
		orderBy = "added_at " + direction + ", name ASC"
	default:
		orderBy = "name " + direction
	}

	listQuery, listArgs, err := sqlx.In(
		`SELECT `+cosmeticColumns+` FROM cosmetics`+where+` ORDER BY `+orderBy+`, id ASC LIMIT ? OFFSET ?`,
		append(args, filter.PageSize, filter.Offset())...)
	if err != nil {
		return nil, err
	}

	var rows []cosmeticRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(listQuery), listArgs...); err != nil {
		return nil, fmt.Errorf("failed to search cosmetics: %w", err)
	}
	for i := range rows {
		page.Items = append(page.Items, rows[i].toModel())
	}
	return page, nil
}

// searchConditions builds the WHERE clause. Slice arguments are expanded
// later by sqlx.In.
func (s *Store) searchConditions(ctx context.Context, f *model.CatalogFilter) (string, []interface{}, error) {
	var conds []string
	var args []interface{}

	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	if len(f.Types) > 0 {
		conds = append(conds, "type_value IN (?)")
		args = append(args, lowerAll(f.Types))
	}
	if len(f.Rarities) > 0 {
		conds = append(conds, "rarity_value IN (?)")
		args = append(args, lowerAll(f.Rarities))
	}
	if f.AddedAfter != nil {
		conds = append(conds, "added_at >= ?")
		args = append(args, f.AddedAfter.UTC())
	}
	if f.AddedBefore != nil {
		conds = append(conds, "added_at <= ?")
		args = append(args, f.AddedBefore.UTC())
	}
	if f.OnlyNew {
		conds = append(conds, "is_new = TRUE")
	}
	if f.OnlyInShop {
		conds = append(conds, "in_shop = TRUE")
	}
	if f.OnlyForSale {
		conds = append(conds, "in_shop = TRUE AND price > 0")
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= ?")
		args = append(args, *f.MaxPrice)
	}

	if f.ExcludeBundles {
		conds = append(conds, "is_bundle = FALSE")
	} else {
		children, err := s.bundledItemIDs(ctx)
		if err != nil {
			return "", nil, err
		}
		if len(children) > 0 {
			conds = append(conds, "id NOT IN (?)")
			args = append(args, children)
		}
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// bundledItemIDs returns every id contained in a bundle currently on sale.
func (s *Store) bundledItemIDs(ctx context.Context) ([]string, error) {
	var lists []string
	err := s.db.SelectContext(ctx, &lists,
		`SELECT contained_item_ids FROM cosmetics WHERE is_bundle = TRUE AND in_shop = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundle contents: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, raw := range lists {
		var contained []string
		if err := json.Unmarshal([]byte(raw), &contained); err != nil {
			continue
		}
		for _, id := range contained {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *Store) searchFacets(ctx context.Context, where string, args []interface{}) (*model.CatalogFacets, error) {
	facets := &model.CatalogFacets{Types: []model.FacetCount{}, Rarities: []model.FacetCount{}}

	for _, f := range []struct {
		column string
		dest   *[]model.FacetCount
	}{
		{"type_display", &facets.Types},
		{"rarity_display", &facets.Rarities},
	} {
		query, qargs, err := sqlx.In(
			`SELECT `+f.column+` AS value, COUNT(*) AS count FROM cosmetics`+where+
				` GROUP BY `+f.column+` ORDER BY count DESC, value ASC`, args...)
		if err != nil {
			return nil, err
		}
		if err := s.db.SelectContext(ctx, f.dest, s.db.Rebind(query), qargs...); err != nil {
			return nil, fmt.Errorf("failed to compute %s facets: %w", f.column, err)
		}
	}

	query, qargs, err := sqlx.In(`SELECT COALESCE(MIN(price), 0), COALESCE(MAX(price), 0) FROM cosmetics`+where, args...)
	if err != nil {
		return nil, err
	}
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), qargs...).Scan(&facets.MinPrice, &facets.MaxPrice); err != nil {
		return nil, fmt.Errorf("failed to compute price range: %w", err)
	}
	return facets, nil
}

// GetStats returns row counts for the admin dashboard.
func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := []struct {
		key   string
		query string
	}{
		{"total_cosmetics", `SELECT COUNT(*) FROM cosmetics`},
		{"in_shop", `SELECT COUNT(*) FROM cosmetics WHERE in_shop = TRUE`},
		{"new_items", `SELECT COUNT(*) FROM cosmetics WHERE is_new = TRUE`},
		{"bundles", `SELECT COUNT(*) FROM cosmetics WHERE is_bundle = TRUE`},
		{"accounts", `SELECT COUNT(*) FROM accounts`},
		{"active_ownerships", `SELECT COUNT(*) FROM ownerships WHERE refunded = FALSE`},
	}
	for _, c := range counts {
		var n int64
		if err := s.db.GetContext(ctx, &n, c.query); err != nil {
			return nil, err
		}
		stats[c.key] = n
	}
	stats["driver"] = s.dialect.name
	stats["checked_at"] = time.Now().UTC()

	return stats, nil
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
