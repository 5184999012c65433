package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/pkg/apierror"
	"cosmetics-shop-api/pkg/response"
)

// CatalogHandler handles catalog browsing requests.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Search handles GET /api/v1/cosmetics
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	page, err := h.catalog.Search(r.Context(), *filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, page)
}

// Shop handles GET /api/v1/cosmetics/shop
func (h *CatalogHandler) Shop(w http.ResponseWriter, r *http.Request) {
	pageNum, size, err := parsePaging(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	page, err := h.catalog.Shop(r.Context(), pageNum, size)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, page)
}

// New handles GET /api/v1/cosmetics/new
func (h *CatalogHandler) New(w http.ResponseWriter, r *http.Request) {
	pageNum, size, err := parsePaging(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	page, err := h.catalog.New(r.Context(), pageNum, size)
	if err != nil {
		response.Error(w, err)
		return
	}
	writePage(w, page)
}

// Get handles GET /api/v1/cosmetics/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	detail, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, detail)
}

func writePage(w http.ResponseWriter, page *model.CatalogPage) {
	items := page.Items
	if items == nil {
		items = []model.CosmeticItem{}
	}
	response.JSONWithMeta(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"facets": page.Facets,
	}, page.Page, page.PageSize, page.Total)
}

// parseFilter reads search parameters from the query string. List values
// may be repeated or comma separated.
func parseFilter(r *http.Request) (*model.CatalogFilter, error) {
	q := r.URL.Query()
	var problems []apierror.FieldError

	f := &model.CatalogFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Types:    listParam(q["types"]),
		Rarities: listParam(q["rarities"]),
		SortBy:   strings.ToLower(q.Get("sort_by")),
	}

	switch strings.ToLower(q.Get("sort_order")) {
	case "", "asc":
	case "desc":
		f.SortDesc = true
	default:
		problems = append(problems, apierror.FieldError{Field: "sort_order", Message: "must be asc or desc"})
	}
	if f.SortBy != "" {
		switch f.SortBy {
		case model.SortByName, model.SortByPrice, model.SortByRarity, model.SortByAdded:
		default:
			problems = append(problems, apierror.FieldError{Field: "sort_by", Message: "must be name, price, rarity or added"})
		}
	}

	boolParams := map[string]*bool{
		"only_new":        &f.OnlyNew,
		"only_in_shop":    &f.OnlyInShop,
		"only_for_sale":   &f.OnlyForSale,
		"exclude_bundles": &f.ExcludeBundles,
	}
	for name, dst := range boolParams {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, apierror.FieldError{Field: name, Message: "must be true or false"})
			continue
		}
		*dst = v
	}

	var err error
	if f.MinPrice, err = intParam(q.Get("min_price")); err != nil {
		problems = append(problems, apierror.FieldError{Field: "min_price", Message: err.Error()})
	}
	if f.MaxPrice, err = intParam(q.Get("max_price")); err != nil {
		problems = append(problems, apierror.FieldError{Field: "max_price", Message: err.Error()})
	}
	if f.AddedAfter, err = timeParam(q.Get("added_after")); err != nil {
		problems = append(problems, apierror.FieldError{Field: "added_after", Message: err.Error()})
	}
	if f.AddedBefore, err = timeParam(q.Get("added_before")); err != nil {
		problems = append(problems, apierror.FieldError{Field: "added_before", Message: err.Error()})
	}

	if f.Page, f.PageSize, err = parsePaging(r); err != nil {
		return nil, err
	}

	if len(problems) > 0 {
		return nil, apierror.ValidationError("invalid search parameters", problems...)
	}
	return f, nil
}

func parsePaging(r *http.Request) (page, size int, err error) {
	q := r.URL.Query()
	var problems []apierror.FieldError

	if raw := q.Get("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page < 1 {
			problems = append(problems, apierror.FieldError{Field: "page", Message: "must be a positive integer"})
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil || size < 1 || size > model.MaxPageSize {
			problems = append(problems, apierror.FieldError{
				Field:   "page_size",
				Message: "must be between 1 and " + strconv.Itoa(model.MaxPageSize),
			})
		}
	}
	if len(problems) > 0 {
		return 0, 0, apierror.ValidationError("invalid paging parameters", problems...)
	}
	return page, size, nil
}

func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, errInvalidNumber
	}
	return &v, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates.
func timeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errInvalidTime
}

type paramError string

func (e paramError) Error() string { return string(e) }

const (
	errInvalidNumber paramError = "must be a non-negative integer"
	errInvalidTime   paramError = "must be an RFC 3339 timestamp or YYYY-MM-DD date"
)
