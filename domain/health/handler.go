package health

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ignitergo/connectors/connectors"
	"github.com/ignitergo/connectors/internal/config"
	"github.com/ignitergo/connectors/internal/version"
)

// Handler serves liveness/readiness/debug endpoints for the demo host. It
// reports the connectors core as healthy as long as the Manager was built
// successfully; storage-backend connectivity is the Adapter's concern, not
// this handler's.
type Handler struct {
	mgr     *connectors.Manager
	cfg     *config.Config
	startAt time.Time
}

// NewHandler creates a new health handler.
func NewHandler(mgr *connectors.Manager, cfg *config.Config) *Handler {
	return &Handler{mgr: mgr, cfg: cfg, startAt: time.Now()}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health returns the overall service health.
func (h *Handler) Health(c echo.Context) error {
	connectorsStatus := "healthy"
	connectorsMessage := ""
	if h.mgr == nil {
		connectorsStatus = "unhealthy"
		connectorsMessage = "connector manager not initialized"
	}

	overallStatus := "healthy"
	if connectorsStatus == "unhealthy" {
		overallStatus = "unhealthy"
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks: map[string]Check{
			"connectors": {Status: connectorsStatus, Message: connectorsMessage},
		},
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, response)
}

// Healthz returns a simple health check (for k8s liveness probe).
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready returns readiness status (for k8s readiness probe).
func (h *Handler) Ready(c echo.Context) error {
	if h.mgr == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "connector manager not initialized",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// Debug returns debug information (only outside production).
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.Environment == "production" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	cpuPercent, _ := cpu.PercentWithContext(ctx, 0, false)
	vmem, _ := mem.VirtualMemoryWithContext(ctx)

	procInfo := map[string]any{}
	if p, err := process.NewProcess(int32(processPID())); err == nil {
		if rss, err := p.MemoryInfoWithContext(ctx); err == nil {
			procInfo["rss_mb"] = rss.RSS / 1024 / 1024
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			procInfo["cpu_percent"] = pct
		}
	}

	var connectorKeys []string
	if h.mgr != nil {
		entries, err := h.mgr.List(ctx, connectors.ListOptions{})
		if err != nil {
			connectorKeys = []string{}
		} else {
			connectorKeys = make([]string, 0, len(entries))
			for _, e := range entries {
				connectorKeys = append(connectorKeys, e.Key)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"debug":       h.cfg.Debug,
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb":       memStats.Alloc / 1024 / 1024,
			"total_alloc_mb": memStats.TotalAlloc / 1024 / 1024,
			"sys_mb":         memStats.Sys / 1024 / 1024,
			"num_gc":         memStats.NumGC,
		},
		"process": procInfo,
		"host": map[string]any{
			"cpu_percent":     cpuPercent,
			"mem_used_mb":     vmemOr(vmem),
			"storage_backend": h.cfg.Storage.Backend,
		},
		"connectors": connectorKeys,
	})
}

func processPID() int {
	return os.Getpid()
}

func vmemOr(v *mem.VirtualMemoryStat) uint64 {
	if v == nil {
		return 0
	}
	return v.Used / 1024 / 1024
}
