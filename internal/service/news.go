package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/cache"
	"cosmetics-shop-api/internal/upstream"
)

// NewsKey is the cache key of the news feed. It lives outside the catalog
// prefix so sync cycles leave it alone.
const NewsKey = "news:latest"

// NewsFetcher reads the news feed from upstream.
type NewsFetcher interface {
	FetchNews(ctx context.Context) (*upstream.News, error)
}

// NewsService passes the upstream news feed through, cached for ttl.
type NewsService struct {
	fetcher NewsFetcher
	cache   cache.Cache
	ttl     time.Duration
	log     logrus.FieldLogger
}

// NewNewsService creates a news service. c may be nil to disable caching.
func NewNewsService(fetcher NewsFetcher, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) *NewsService {
	return &NewsService{
		fetcher: fetcher,
		cache:   c,
		ttl:     ttl,
		log:     log.WithField("component", "news"),
	}
}

// Get returns the current news. Upstream failures come back as
// ErrUpstreamUnavailable and are not cached.
func (s *NewsService) Get(ctx context.Context) (*upstream.News, error) {
	if news, ok := s.fromCache(ctx); ok {
		return news, nil
	}

	news, err := s.fetcher.FetchNews(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to fetch news")
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if data, err := json.Marshal(news); err == nil {
			if err := s.cache.Set(ctx, NewsKey, data, s.ttl); err != nil {
				s.log.WithError(err).Warn("Cache write failed")
			}
		}
	}
	return news, nil
}

func (s *NewsService) fromCache(ctx context.Context) (*upstream.News, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, NewsKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("Cache read failed")
		}
		return nil, false
	}
	var news upstream.News
	if err := json.Unmarshal(data, &news); err != nil {
		return nil, false
	}
	return &news, true
}
