package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmetics-shop-api/internal/cache"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/upstream"
	"cosmetics-shop-api/pkg/logger"
)

type stubNews struct {
	calls int32
	err   error
}

func (s *stubNews) FetchNews(context.Context) (*upstream.News, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &upstream.News{BR: &upstream.NewsMode{
		Hash:  "abc",
		MOTDs: []upstream.MOTD{{ID: "m1", Title: "Season Launch"}},
	}}, nil
}

func TestNewsIsCached(t *testing.T) {
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	fetcher := &stubNews{}
	news := NewNewsService(fetcher, c, time.Minute, logger.Discard())
	ctx := context.Background()

	first, err := news.Get(ctx)
	require.NoError(t, err)
	second, err := news.Get(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, first, second)
	require.NotNil(t, second.BR)
	assert.Equal(t, "Season Launch", second.BR.MOTDs[0].Title)

	// Catalog invalidation leaves the feed cached.
	_, err = c.DeletePrefix(ctx, CatalogKeyPrefix)
	require.NoError(t, err)
	_, err = news.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))
}

func TestNewsFailureIsNotCached(t *testing.T) {
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	fetcher := &stubNews{err: model.ErrUpstreamUnavailable}
	news := NewNewsService(fetcher, c, time.Minute, logger.Discard())
	ctx := context.Background()

	_, err := news.Get(ctx)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)

	fetcher.err = nil
	got, err := news.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.BR)
	assert.EqualValues(t, 2, atomic.LoadInt32(&fetcher.calls))
}
