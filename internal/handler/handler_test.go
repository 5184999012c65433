package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmetics-shop-api/internal/cache"
	"cosmetics-shop-api/internal/handler"
	"cosmetics-shop-api/internal/middleware"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/internal/router"
	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/internal/upstream"
	"cosmetics-shop-api/pkg/logger"
)

const testLoginKey = "admin-key"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t     *testing.T
	store *repository.Store
	http  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()

	store, err := repository.Open(context.Background(), repository.Options{
		Driver: repository.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "shop.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })

	tokens := service.NewTokenService(service.TokenConfig{Secret: "test-secret", Issuer: "test"}, c, log)
	accounts := service.NewAccountService(store, tokens, 1000, log)
	ledger := service.NewLedgerService(store, store, log)
	catalog := service.NewCatalogService(store, c, time.Minute, log)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"status":200,"data":{"br":{"hash":"abc","motds":[{"id":"m1","title":"Season Launch"}]}}}`)
	}))
	t.Cleanup(feed.Close)
	news := service.NewNewsService(upstream.NewClient(upstream.Config{BaseURL: feed.URL}, log), c, time.Minute, log)

	r := router.New(router.Config{
		Handler:         handler.New("cosmetics-shop-api", "test", store),
		CatalogHandler:  handler.NewCatalogHandler(catalog),
		PurchaseHandler: handler.NewPurchaseHandler(ledger),
		AuthHandler:     handler.NewAuthHandler(accounts, tokens),
		AdminHandler:    handler.NewAdminHandler(catalog, nil, store, repository.DriverSQLite, "memory"),
		NewsHandler:     handler.NewNewsHandler(news),
		AuthMiddleware:  middleware.NewAuthMiddleware(middleware.AuthConfig{Tokens: tokens, Logger: log}),
		LoginKey:        testLoginKey,
		Logger:          log,
	})
	return &testServer{t: t, store: store, http: r}
}

func (s *testServer) stock(items ...model.CosmeticItem) {
	s.t.Helper()
	err := s.store.WithinCatalogTx(context.Background(), func(w repository.CatalogWriter) error {
		_, err := w.UpsertShop(context.Background(), items)
		return err
	})
	require.NoError(s.t, err)
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.http.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *testServer) register(username string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"password": "hunter22",
	})
	require.Equal(s.t, http.StatusCreated, code)
	var issued model.IssuedToken
	require.NoError(s.t, json.Unmarshal(env.Data, &issued))
	require.NotEmpty(s.t, issued.Token)
	return issued.Token
}

func shopItem(id string, price int) model.CosmeticItem {
	added := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return model.CosmeticItem{
		ID:     id,
		Name:   "Item " + id,
		Type:   model.Attribute{Value: "outfit", DisplayValue: "Outfit"},
		Rarity: model.Attribute{Value: "rare", DisplayValue: "Rare"},
		Images: model.Images{Icon: "http://img/" + id},
		Added:  &added,
		Price:  price,
		InShop: true,
	}
}

func shopBundle(id string, price int, contained ...string) model.CosmeticItem {
	b := shopItem(id, price)
	b.Name = "Bundle " + id
	b.Type = model.Attribute{Value: "bundle", DisplayValue: "Bundle"}
	b.IsBundle = true
	b.ContainedItemIDs = contained
	b.Bundle = &model.BundleInfo{Name: b.Name}
	return b
}

func TestSearchRejectsBadParameters(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/cosmetics?sort_by=color&min_price=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	fields := make([]string, 0, len(env.Error.Details))
	for _, d := range env.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"sort_by", "min_price"}, fields)

	code, env = s.do(http.MethodGet, "/api/v1/cosmetics?page_size=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "page_size", env.Error.Details[0].Field)
}

func TestSearchAndDetail(t *testing.T) {
	s := newTestServer(t)
	s.stock(shopItem("CID_A", 800), shopItem("CID_B", 1500), shopBundle("BUNDLE_X", 1800, "CID_B"))

	code, env := s.do(http.MethodGet, "/api/v1/cosmetics?sort_by=price&sort_order=desc", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 2, env.Meta.Total, "bundled item hidden")

	var page struct {
		Items  []model.CosmeticItem `json:"items"`
		Facets model.CatalogFacets  `json:"facets"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "BUNDLE_X", page.Items[0].ID)
	assert.Equal(t, 1800, page.Facets.MaxPrice)

	code, env = s.do(http.MethodGet, "/api/v1/cosmetics/BUNDLE_X", "", nil)
	require.Equal(t, http.StatusOK, code)
	var detail model.CosmeticDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.ContainedItems, 1)
	assert.Equal(t, "CID_B", detail.ContainedItems[0].ID)

	code, env = s.do(http.MethodGet, "/api/v1/cosmetics/NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, model.CodeNotFound, env.Error.Code)

	code, env = s.do(http.MethodGet, "/api/v1/cosmetics/shop?page_size=1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, env.Meta.Total)
	assert.Equal(t, 1, env.Meta.Limit)
}

func TestPurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	s.stock(shopItem("CID_A", 800), shopItem("CID_B", 1500))

	code, _ := s.do(http.MethodPost, "/api/v1/purchases", "", map[string]string{"cosmetic_id": "CID_A"})
	assert.Equal(t, http.StatusUnauthorized, code)

	token := s.register("buyer")

	code, env := s.do(http.MethodPost, "/api/v1/purchases", token, map[string]string{"cosmetic_id": "CID_A"})
	require.Equal(t, http.StatusOK, code)
	var result model.PurchaseResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 200, result.RemainingBalance)

	code, env = s.do(http.MethodPost, "/api/v1/purchases", token, map[string]string{"cosmetic_id": "CID_A"})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, model.CodeAlreadyOwned, env.Error.Code)
	result = model.PurchaseResult{}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Success)
	assert.Equal(t, 200, result.RemainingBalance)

	code, env = s.do(http.MethodPost, "/api/v1/purchases", token, map[string]string{"cosmetic_id": "CID_B"})
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, model.CodeInsufficientFunds, env.Error.Code)

	code, env = s.do(http.MethodGet, "/api/v1/purchases/owns/CID_A", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"cosmetic_id":"CID_A","owned":true}`, string(env.Data))

	code, env = s.do(http.MethodPost, "/api/v1/purchases/refund", token, map[string]string{"cosmetic_id": "CID_A"})
	require.Equal(t, http.StatusOK, code)
	var refund model.RefundResult
	require.NoError(t, json.Unmarshal(env.Data, &refund))
	assert.Equal(t, 800, refund.RefundedAmount)
	assert.Equal(t, 1000, refund.RemainingBalance)

	code, env = s.do(http.MethodGet, "/api/v1/purchases/balance", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"balance":1000}`, string(env.Data))

	code, env = s.do(http.MethodGet, "/api/v1/purchases/history", token, nil)
	require.Equal(t, http.StatusOK, code)
	var history model.PurchaseHistory
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.Entries, 1)
	assert.True(t, history.Entries[0].Refunded)
	assert.Equal(t, 800, history.TotalRefunded)
	assert.Zero(t, history.TotalSpent)

	code, env = s.do(http.MethodGet, "/api/v1/purchases/my-cosmetics", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestPurchaseRequiresCosmeticID(t *testing.T) {
	s := newTestServer(t)
	token := s.register("buyer")

	code, env := s.do(http.MethodPost, "/api/v1/purchases", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("taken")

	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "taken", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, model.CodeUsernameTaken, env.Error.Code)

	code, env = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "taken", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, model.CodeInvalidCredentials, env.Error.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "taken", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, code)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	token := s.register("leaver")

	code, _ := s.do(http.MethodGet, "/api/v1/purchases/balance", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/revoke", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/purchases/balance", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	s.stock(shopItem("CID_A", 800))

	code, _ := s.do(http.MethodGet, "/api/v1/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("X-Login-Key", testLoginKey)
	rec := httptest.NewRecorder()
	s.http.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "memory", stats["cache_type"])
	assert.Equal(t, false, stats["sync_enabled"])
	assert.Contains(t, stats, "store")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/sync", nil)
	req.Header.Set("X-Login-Key", testLoginKey)
	rec = httptest.NewRecorder()
	s.http.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/sync/runs?limit=0", nil)
	req.Header.Set("X-Login-Key", testLoginKey)
	rec = httptest.NewRecorder()
	s.http.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/v1/ready", "", nil)
	require.Equal(t, http.StatusOK, code)
	var ready handler.ReadyResponse
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	assert.True(t, ready.Ready)

	code, _ = s.do(http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	s.stock(shopItem("CID_A", 300))

	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "owner", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, code)
	var issued model.IssuedToken
	require.NoError(t, json.Unmarshal(env.Data, &issued))

	code, _ = s.do(http.MethodPost, "/api/v1/purchases", issued.Token, map[string]string{"cosmetic_id": "CID_A"})
	require.Equal(t, http.StatusOK, code)

	viewer := s.register("viewer")
	code, env = s.do(http.MethodGet, "/api/v1/users/"+issued.Account.ID+"/profile", viewer, nil)
	require.Equal(t, http.StatusOK, code)
	var profile model.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "owner", profile.Username)
	assert.Equal(t, 700, profile.Balance)
	assert.Equal(t, 1, profile.OwnedCount)

	code, _ = s.do(http.MethodGet, "/api/v1/users/not-a-uuid/profile", viewer, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownRoutesUseErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, env = s.do(http.MethodDelete, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
}

func TestNewsIsPublic(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodGet, "/api/v1/news", "", nil)
	require.Equal(t, http.StatusOK, code)
	var news upstream.News
	require.NoError(t, json.Unmarshal(env.Data, &news))
	require.NotNil(t, news.BR)
	assert.Equal(t, "abc", news.BR.Hash)
	require.Len(t, news.BR.MOTDs, 1)
	assert.Equal(t, "Season Launch", news.BR.MOTDs[0].Title)
}
