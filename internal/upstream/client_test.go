package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmetics-shop-api/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Language: "en"}, testLogger())
}

func TestFetchCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmetics", r.URL.Path)
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"status":200,"data":{
			"br":[{"id":"CID_001","name":"Renegade","type":{"value":"outfit","displayValue":"Outfit"},"rarity":{"value":"rare","displayValue":"Rare"},"images":{"icon":"http://img/1.png"},"added":"2019-09-12T19:48:14Z"}],
			"tracks":[{"id":"T1","title":"Song","artist":"Band","albumArt":"http://img/t.png"}],
			"beans":[{"id":"B1","name":"Bean","gender":"Male"}]
		}}`)
	})

	set, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, set.BR, 1)
	assert.Equal(t, "Renegade", set.BR[0].Name)
	assert.Equal(t, "rare", set.BR[0].Rarity.Value)
	require.NotNil(t, set.BR[0].Added)
	assert.Equal(t, 2019, set.BR[0].Added.Year())
	assert.Equal(t, 3, set.Len())

	records := set.Records()
	require.Len(t, records, 3)
	assert.Equal(t, CategoryBR, records[0].Category())
	assert.Equal(t, CategoryTracks, records[1].Category())
	assert.Equal(t, CategoryBeans, records[2].Category())
}

func TestFetchNewItemsNullData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":200,"data":null}`)
	})

	items, err := c.FetchNewItems(context.Background())
	require.NoError(t, err)
	assert.Zero(t, items.Items.Len())
}

func TestFetchShopEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shop", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":200,"data":{"entries":[
			{"finalPrice":1500,"devName":"[VIRTUAL]1 x Dynamite for 1500 MtxCurrency","bundle":{"name":"Boom","info":"2 items"},"newDisplayAsset":{"cosmeticId":"CID_9"}}
		]}}`)
	})

	shop, err := c.FetchShop(context.Background())
	require.NoError(t, err)
	require.Len(t, shop.Entries, 1)
	e := shop.Entries[0]
	assert.Equal(t, 1500, e.FinalPrice)
	assert.Equal(t, "CID_9", e.DisplayCosmeticID())
	require.NotNil(t, e.Bundle)
	assert.Equal(t, "Boom", e.Bundle.Name)
	assert.Empty(t, e.Records())
}

func TestFetchNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		_, _ = io.WriteString(w, `{"status":200,"data":{
			"br":{"hash":"abc","date":"2024-05-01T10:00:00Z","motds":[{"id":"m1","title":"Season Launch","tabTitle":"Launch","body":"Drop in","sortingPriority":3,"hidden":false}]},
			"stw":{"messages":[{"title":"Storm","body":"Save the world","adspace":"NEW"}]},
			"creative":null
		}}`)
	})

	news, err := c.FetchNews(context.Background())
	require.NoError(t, err)
	require.NotNil(t, news.BR)
	assert.Equal(t, "abc", news.BR.Hash)
	require.NotNil(t, news.BR.Date)
	assert.Equal(t, 2024, news.BR.Date.Year())
	require.Len(t, news.BR.MOTDs, 1)
	assert.Equal(t, "Season Launch", news.BR.MOTDs[0].Title)
	assert.Equal(t, 3, news.BR.MOTDs[0].SortingPriority)
	require.NotNil(t, news.STW)
	require.Len(t, news.STW.Messages, 1)
	assert.Equal(t, "NEW", news.STW.Messages[0].Adspace)
	assert.Nil(t, news.Creative)
}

func TestFetchNewsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	news, err := c.FetchNews(context.Background())
	assert.Nil(t, news)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

func TestFetchNotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status":404,"error":"no new items"}`)
	})

	items, err := c.FetchNewItems(context.Background())
	require.NoError(t, err)
	assert.Zero(t, items.Items.Len())
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":200,"data":`)
			},
		},
		{
			name: "unsuccessful envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":500,"error":"boom"}`)
			},
		},
		{
			name: "wrong data shape",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":200,"data":{"entries":"nope"}}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchShop(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrUpstreamUnavailable))
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, testLogger())
	_, err := c.FetchCatalog(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

func TestFetchHonorsCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchShop(ctx)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}
