package handlers

import (
	"net/http"
	"time"

	"monochrome/config"
	"monochrome/services"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cfg     config.Config
	tracker services.Tracker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg config.Config, tracker services.Tracker) *HealthHandler {
	return &HealthHandler{cfg: cfg, tracker: tracker}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "monochrome",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	persist := h.tracker.LastPersist()
	status := gin.H{
		"message":          "Monochrome API is running",
		"music_dir":        h.cfg.EffectiveMusicDir(),
		"storage_backend":  h.cfg.Storage.Backend,
		"active_downloads": len(h.tracker.ActiveDownloads()),
		"history_entries":  len(h.tracker.History()),
		"last_persist": gin.H{
			"op": persist.Op,
			"ok": persist.OK(),
		},
	}
	if !persist.OK() {
		status["last_persist"].(gin.H)["error"] = persist.Err.Error()
	}
	c.JSON(http.StatusOK, status)
}
