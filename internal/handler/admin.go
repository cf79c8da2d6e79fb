package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	"fishbot-economy-api/internal/catalog"
	"fishbot-economy-api/internal/economy"
	"fishbot-economy-api/internal/model"
	"fishbot-economy-api/internal/repository"
	"fishbot-economy-api/internal/service"
	"fishbot-economy-api/pkg/apierror"
	"fishbot-economy-api/pkg/response"
)

const maxCatalogBodyBytes = 1 << 20

// CatalogAdmin is the engine surface used by operator endpoints.
type CatalogAdmin interface {
	ReloadCatalog(ctx context.Context) ([]model.Item, error)
	ReplaceCatalog(ctx context.Context, items []model.Item) ([]model.Item, error)
	Stats() economy.Stats
}

// CheckpointRunner is implemented by *service.CheckpointScheduler.
type CheckpointRunner interface {
	RunNow(ctx context.Context) error
	Stats() service.CheckpointStats
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	engine      CatalogAdmin
	repo        repository.SnapshotRepository
	checkpoints CheckpointRunner // nil when checkpoints are disabled
	storeType   string
	startTime   time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	engine CatalogAdmin,
	repo repository.SnapshotRepository,
	checkpoints CheckpointRunner,
	storeType string,
) *AdminHandler {
	return &AdminHandler{
		engine:      engine,
		repo:        repo,
		checkpoints: checkpoints,
		storeType:   storeType,
		startTime:   time.Now(),
	}
}

// CatalogRequest is the optional body of a catalog reload.
type CatalogRequest struct {
	Items []model.Item `json:"items"`
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType
	stats["economy"] = h.engine.Stats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.repo != nil {
		storeStats, err := h.repo.GetStats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["store"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	if h.checkpoints != nil {
		stats["checkpoints"] = h.checkpoints.Stats()
	} else {
		stats["checkpoints"] = map[string]interface{}{
			"status": "disabled",
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// ReloadCatalog handles POST /api/v1/admin/catalog/reload
// An empty body reloads the stored catalog; a body with items replaces it.
func (h *AdminHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req CatalogRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCatalogBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	var items []model.Item
	if req.Items != nil {
		items, err = h.engine.ReplaceCatalog(r.Context(), req.Items)
	} else {
		items, err = h.engine.ReloadCatalog(r.Context())
	}

	switch {
	case err == nil:
		response.OK(w, map[string]interface{}{
			"items": items,
			"count": len(items),
		})
	case errors.Is(err, catalog.ErrInvalidItem):
		response.Error(w, apierror.BadRequest(err.Error()).WithCode("INVALID_CATALOG"))
	case errors.Is(err, repository.ErrSnapshotNotFound):
		response.Error(w, apierror.NotFound("no stored catalog"))
	default:
		response.Error(w, apierror.InternalError("catalog reload failed"))
	}
}

// Checkpoint handles POST /api/v1/admin/checkpoint
func (h *AdminHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if h.checkpoints == nil {
		response.Error(w, apierror.ServiceUnavailable("checkpoints are disabled"))
		return
	}

	if err := h.checkpoints.RunNow(r.Context()); err != nil {
		response.Error(w, apierror.InternalError("checkpoint failed"))
		return
	}
	response.OK(w, h.checkpoints.Stats())
}
