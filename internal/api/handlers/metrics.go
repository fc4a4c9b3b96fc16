package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const bytesToMB = 1024 * 1024

// MetricsHandler reports service info. Prometheus series are served separately.
type MetricsHandler struct {
	startTime   time.Time
	version     string
	backend     string
	metricsPath string
}

func NewMetricsHandler(version, backend, metricsPath string) *MetricsHandler {
	return &MetricsHandler{
		startTime:   time.Now(),
		version:     version,
		backend:     backend,
		metricsPath: metricsPath,
	}
}

type ServiceInfo struct {
	Status      string      `json:"status"`
	Version     string      `json:"version"`
	Backend     string      `json:"backend"`
	MetricsPath string      `json:"metrics_path"`
	Uptime      string      `json:"uptime"`
	StartTime   string      `json:"start_time"`
	Runtime     RuntimeInfo `json:"runtime"`
}

type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// formatUptime renders d as 1h2m3.45s, dropping leading zero units
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := (d - time.Duration(hours)*time.Hour - time.Duration(minutes)*time.Minute).Seconds()

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%.2fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%.2fs", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", seconds)
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, ServiceInfo{
		Status:      "healthy",
		Version:     h.version,
		Backend:     h.backend,
		MetricsPath: h.metricsPath,
		Uptime:      formatUptime(time.Since(h.startTime)),
		StartTime:   h.startTime.UTC().Format(time.RFC3339),
		Runtime: RuntimeInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			NumGC:        m.NumGC,
		},
	})
}
