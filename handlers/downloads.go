package handlers

import (
	"log"
	"net/http"
	"time"

	"monochrome/format"
	"monochrome/services"
	"monochrome/types"
	"monochrome/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DownloadHandler handles download tracking endpoints
type DownloadHandler struct {
	tracker services.Tracker
	hub     websocket.Hub
	sub     *services.Subscription
}

// NewDownloadHandler creates a new download handler and forwards every
// tracker change to the hub. The hub builds the snapshot itself, so it
// should be created with Snapshot(tracker) as its SnapshotFunc.
func NewDownloadHandler(tracker services.Tracker, hub websocket.Hub) *DownloadHandler {
	h := &DownloadHandler{
		tracker: tracker,
		hub:     hub,
	}
	if hub != nil {
		h.sub = tracker.AddListener(hub.Refresh)
	}
	return h
}

// Close stops forwarding tracker changes
func (h *DownloadHandler) Close() {
	h.sub.Unsubscribe()
}

// Snapshot captures the tracker state for WebSocket clients
func Snapshot(tracker services.Tracker) types.SnapshotMessage {
	return types.SnapshotMessage{
		Type:      "snapshot",
		Active:    tracker.ActiveDownloads(),
		History:   tracker.History(),
		Timestamp: time.Now(),
	}
}

// RecordView is a download record with display strings attached
type RecordView struct {
	types.DownloadRecord
	FileSizeText       string `json:"fileSizeText"`
	DownloadedSizeText string `json:"downloadedSizeText"`
	DurationText       string `json:"durationText,omitempty"`
}

func viewsOf(records []types.DownloadRecord) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, RecordView{
			DownloadRecord:     r,
			FileSizeText:       format.FileSize(r.FileSize),
			DownloadedSizeText: format.FileSize(r.DownloadedSize),
			DurationText:       format.Duration(r.Duration()),
		})
	}
	return views
}

type startRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name" binding:"required"`
	ArtistName string `json:"artistName"`
}

type progressRequest struct {
	Progress       float64 `json:"progress" binding:"gte=0,lte=100"`
	DownloadedSize int64   `json:"downloadedSize" binding:"gte=0"`
	FileSize       int64   `json:"fileSize" binding:"gte=0"`
}

type failRequest struct {
	Error string `json:"error"`
}

// StartDownload registers a new active download
func (h *DownloadHandler) StartDownload(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid download request",
			"details": err.Error(),
		})
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	record := h.tracker.StartDownload(req.ID, req.Name, req.ArtistName)
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Download started",
		"download": viewsOf([]types.DownloadRecord{record})[0],
	})
}

// UpdateProgress records progress for an active download.
// Unknown ids are accepted and ignored.
func (h *DownloadHandler) UpdateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid progress update",
			"details": err.Error(),
		})
		return
	}

	h.tracker.UpdateProgress(c.Param("id"), req.Progress, req.DownloadedSize, req.FileSize)
	c.Status(http.StatusNoContent)
}

// CompleteDownload marks a download as completed
func (h *DownloadHandler) CompleteDownload(c *gin.Context) {
	h.tracker.CompleteDownload(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// FailDownload marks a download as failed
func (h *DownloadHandler) FailDownload(c *gin.Context) {
	// The body is optional
	var req failRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid failure report",
				"details": err.Error(),
			})
			return
		}
	}
	if req.Error == "" {
		req.Error = "download failed"
	}

	h.tracker.FailDownload(c.Param("id"), req.Error)
	c.Status(http.StatusNoContent)
}

// GetActive returns all active downloads
func (h *DownloadHandler) GetActive(c *gin.Context) {
	active := h.tracker.ActiveDownloads()
	c.JSON(http.StatusOK, gin.H{
		"active": viewsOf(active),
		"total":  len(active),
	})
}

// GetHistory returns finished downloads, most recent first
func (h *DownloadHandler) GetHistory(c *gin.Context) {
	history := h.tracker.History()
	c.JSON(http.StatusOK, gin.H{
		"history": viewsOf(history),
		"total":   len(history),
	})
}

// ClearHistory empties the download history
func (h *DownloadHandler) ClearHistory(c *gin.Context) {
	persist := h.tracker.ClearHistory()
	response := gin.H{"message": "history cleared", "persisted": persist.OK()}
	if !persist.OK() {
		response["details"] = persist.Err.Error()
	}
	c.JSON(http.StatusOK, response)
}

// HandleWebSocketConnection streams tracker snapshots to the client
func (h *DownloadHandler) HandleWebSocketConnection(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates disabled"})
		return
	}

	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}
