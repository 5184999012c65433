package handler

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/pkg/apierror"
	"cosmetics-shop-api/pkg/response"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// SyncTrigger runs a synchronization cycle on demand.
type SyncTrigger interface {
	RunNow(ctx context.Context, trigger string) (*model.SyncRun, error)
	LastRun() *model.SyncRun
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	catalog   *service.CatalogService
	sync      SyncTrigger
	runs      repository.SyncRunRepository
	storeType string // sqlite, postgres, pgx or mysql
	cacheType string // memory or redis
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. sync may be nil when the
// scheduler is disabled.
func NewAdminHandler(
	catalog *service.CatalogService,
	sync SyncTrigger,
	runs repository.SyncRunRepository,
	storeType, cacheType string,
) *AdminHandler {
	return &AdminHandler{
		catalog:   catalog,
		sync:      sync,
		runs:      runs,
		storeType: storeType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType
	stats["cache_type"] = h.cacheType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	if storeStats, err := h.catalog.Stats(ctx); err == nil {
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]string{"error": "unavailable"}
	}

	if h.sync != nil {
		stats["sync_enabled"] = true
		stats["last_sync"] = h.sync.LastRun()
	} else {
		stats["sync_enabled"] = false
	}

	response.OK(w, stats)
}

// TriggerSync handles POST /api/v1/admin/sync
func (h *AdminHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		response.Error(w, apierror.ServiceUnavailable("synchronization is disabled"))
		return
	}

	run, err := h.sync.RunNow(r.Context(), service.TriggerManual)
	if err != nil {
		if errors.Is(err, model.ErrSyncInProgress) || run == nil {
			response.Error(w, err)
			return
		}
		// The cycle ran and failed; its run record says why.
		response.Declined(w, err, run)
		return
	}
	response.OK(w, run)
}

// ListSyncRuns handles GET /api/v1/admin/sync/runs
func (h *AdminHandler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			response.Error(w, apierror.ValidationError("invalid limit",
				apierror.FieldError{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxRunsLimit)}))
			return
		}
		limit = n
	}

	runs, err := h.runs.ListSyncRuns(r.Context(), limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	if runs == nil {
		runs = []model.SyncRun{}
	}
	response.OK(w, runs)
}
