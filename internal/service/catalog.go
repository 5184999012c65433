package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/cache"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
)

// CatalogKeyPrefix namespaces every cached catalog response.
const CatalogKeyPrefix = "catalog:"

// CatalogService serves catalog reads, caching listings between sync cycles.
type CatalogService struct {
	repo  repository.CatalogRepository
	cache cache.Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

// NewCatalogService creates a new catalog service. c may be nil to disable caching.
func NewCatalogService(repo repository.CatalogRepository, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		log:   log.WithField("component", "catalog"),
	}
}

// Search returns one page of matching cosmetics with facets.
func (s *CatalogService) Search(ctx context.Context, filter model.CatalogFilter) (*model.CatalogPage, error) {
	filter.Normalize()

	key, err := searchKey(filter)
	if err != nil {
		return nil, err
	}

	var page model.CatalogPage
	if s.cached(ctx, key, &page) {
		return &page, nil
	}

	result, err := s.repo.SearchCosmetics(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	s.store(ctx, key, result)
	return result, nil
}

// Shop lists what is currently offered, most expensive first.
func (s *CatalogService) Shop(ctx context.Context, page, pageSize int) (*model.CatalogPage, error) {
	return s.Search(ctx, model.CatalogFilter{
		OnlyInShop: true,
		SortBy:     model.SortByPrice,
		SortDesc:   true,
		Page:       page,
		PageSize:   pageSize,
	})
}

// New lists the items flagged new by the last sync, latest first.
func (s *CatalogService) New(ctx context.Context, page, pageSize int) (*model.CatalogPage, error) {
	return s.Search(ctx, model.CatalogFilter{
		OnlyNew:  true,
		SortBy:   model.SortByAdded,
		SortDesc: true,
		Page:     page,
		PageSize: pageSize,
	})
}

// Get returns one cosmetic. Bundles carry summaries of their contents in
// the order the bundle lists them.
func (s *CatalogService) Get(ctx context.Context, id string) (*model.CosmeticDetail, error) {
	key := CatalogKeyPrefix + "item:" + id

	var detail model.CosmeticDetail
	if s.cached(ctx, key, &detail) {
		return &detail, nil
	}

	item, err := s.repo.GetCosmetic(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	detail = model.CosmeticDetail{CosmeticItem: *item}
	if item.IsBundle && len(item.ContainedItemIDs) > 0 {
		contents, err := s.repo.GetCosmetics(ctx, item.ContainedItemIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
		}
		byID := make(map[string]*model.CosmeticItem, len(contents))
		for i := range contents {
			byID[contents[i].ID] = &contents[i]
		}
		for _, cid := range item.ContainedItemIDs {
			if c, ok := byID[cid]; ok {
				detail.ContainedItems = append(detail.ContainedItems, c.Summary())
			}
		}
	}

	s.store(ctx, key, &detail)
	return &detail, nil
}

// Stats returns catalog and account counts.
func (s *CatalogService) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return stats, nil
}

// Invalidate drops every cached catalog response.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	n, err := s.cache.DeletePrefix(ctx, CatalogKeyPrefix)
	if err != nil {
		s.log.WithError(err).Warn("Failed to invalidate catalog cache")
		return
	}
	s.log.WithField("keys", n).Debug("Catalog cache invalidated")
}

func (s *CatalogService) cached(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Discarding unreadable cache entry")
		return false
	}
	return true
}

func (s *CatalogService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func searchKey(filter model.CatalogFilter) (string, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	sum := sha256.Sum256(raw)
	return CatalogKeyPrefix + "search:" + hex.EncodeToString(sum[:16]), nil
}
