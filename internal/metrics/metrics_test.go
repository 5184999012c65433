package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/v1/cosmetics/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/cosmetics/{id}", "404"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cosmetics/CID_1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cosmetics/CID_2", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/cosmetics/{id}", "404"))
	assert.Equal(t, before+2, after)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(ledgerOps.WithLabelValues("purchase", "ok"))
	RecordLedgerOp("purchase", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(ledgerOps.WithLabelValues("purchase", "ok")))

	droppedBefore := testutil.ToFloat64(droppedRecords.WithLabelValues("br"))
	RecordDropped("br", 0)
	RecordDropped("br", 3)
	assert.Equal(t, droppedBefore+3, testutil.ToFloat64(droppedRecords.WithLabelValues("br")))

	SetCatalogSize(10, 4)
	assert.Equal(t, float64(4), testutil.ToFloat64(shopItems))
	assert.Equal(t, float64(10), testutil.ToFloat64(catalogItems))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordSyncCycle("success", 0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "cosmetics_shop_sync_cycles_total"))
}
