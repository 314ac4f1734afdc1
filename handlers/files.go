package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"monochrome/config"
	"monochrome/services"

	"github.com/gin-gonic/gin"
)

// maxSaveBytes bounds uploads accepted by SaveFile
const maxSaveBytes = 512 << 20

// FileHandler handles local file endpoints
type FileHandler struct {
	cfg         config.Config
	fileService services.FileService
	saver       services.DeviceSaver
}

// NewFileHandler creates a new file handler
func NewFileHandler(cfg config.Config, fs services.FileService, saver services.DeviceSaver) *FileHandler {
	return &FileHandler{
		cfg:         cfg,
		fileService: fs,
		saver:       saver,
	}
}

// errorStatus maps service errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrPathRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrOutsideRoots):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ListFiles returns all audio files in the music directory
func (h *FileHandler) ListFiles(c *gin.Context) {
	audioFiles, err := h.fileService.ScanMusicDirectory()
	if err != nil {
		log.Printf("Error scanning audio files: %v", err)
		c.JSON(errorStatus(err), gin.H{
			"error":   "failed to scan files",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": audioFiles,
		"count": len(audioFiles),
	})
}

type pickRequest struct {
	Selection string `json:"selection" binding:"required"`
}

// PickFolder scans the folder the user selected. Only folders inside the
// storage, music or documents directory can be picked.
func (h *FileHandler) PickFolder(c *gin.Context) {
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "selection is required",
			"details": err.Error(),
		})
		return
	}

	path, err := h.fileService.ResolveFolder(req.Selection)
	if err == nil {
		err = h.fileService.CheckAllowedPath(path)
	}
	if err != nil {
		c.JSON(errorStatus(err), gin.H{
			"error":   "could not access selected folder",
			"details": err.Error(),
		})
		return
	}

	result, err := h.fileService.PickFolder(path)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{
			"error":   "could not access selected folder",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReadFile returns a file's bytes base64 encoded. The same directories
// PickFolder accepts bound what can be read.
func (h *FileHandler) ReadFile(c *gin.Context) {
	location := c.Query("path")
	if location == "" {
		location = c.Query("uri")
	}

	path, err := h.fileService.ResolveLocation(location)
	if err == nil {
		err = h.fileService.CheckAllowedPath(path)
	}
	if err != nil {
		c.JSON(errorStatus(err), gin.H{
			"error":   "failed to read file",
			"details": err.Error(),
		})
		return
	}

	result, err := h.fileService.ReadFileBytes(path)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{
			"error":   "failed to read file",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveFile stores the request body in the device music directory
func (h *FileHandler) SaveFile(c *gin.Context) {
	filename := c.Query("filename")
	basePath := c.Query("basePath")
	if strings.Contains(basePath, "..") || filepath.IsAbs(basePath) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "basePath must be relative to external storage",
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSaveBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "failed to read request body",
			"details": err.Error(),
		})
		return
	}
	if len(data) > maxSaveBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file too large",
		})
		return
	}

	result := h.saver.SaveBlob(data, filename, services.SaveOptions{BasePath: basePath})
	status := http.StatusCreated
	if !result.Saved {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// StreamFile streams an audio file from the music directory with support
// for range requests
func (h *FileHandler) StreamFile(c *gin.Context) {
	requestedPath := strings.TrimPrefix(c.Param("filepath"), "/")

	// Security: Validate file path
	if err := h.fileService.ValidateFilePath(requestedPath); err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "path security violation",
			"details": err.Error(),
		})
		return
	}

	if h.fileService.GetContentType(requestedPath) == "application/octet-stream" {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "file extension not allowed",
			"details": "only audio files can be streamed",
		})
		return
	}

	musicDir := h.cfg.EffectiveMusicDir()
	fullPath := filepath.Join(musicDir, requestedPath)

	// Security: Ensure resolved path is within the music directory
	absMusicDir, err := filepath.Abs(musicDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server configuration error",
		})
		return
	}
	absRequestPath, err := filepath.Abs(fullPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid file path",
		})
		return
	}
	if !strings.HasPrefix(absRequestPath, absMusicDir+string(filepath.Separator)) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "path traversal not allowed",
		})
		return
	}

	fileInfo, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "file not found",
				"path":  requestedPath,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "file access error",
			"details": err.Error(),
		})
		return
	}
	if fileInfo.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path is a directory, not a file",
		})
		return
	}

	file, err := os.Open(fullPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open file",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	contentType := h.sniffContentType(file, requestedPath)

	c.Header("Content-Type", contentType)
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")

	// Handle range requests for seeking
	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		h.handleRangeRequest(c, file, fileInfo.Size(), rangeHeader)
		return
	}

	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		log.Printf("Error streaming file %s: %v", requestedPath, err)
	}
}

// sniffContentType inspects the file header and rewinds the file
func (h *FileHandler) sniffContentType(file *os.File, name string) string {
	head := make([]byte, 261)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return h.fileService.GetContentType(name)
	}
	return services.DetectContentType(head[:n], name)
}

// handleRangeRequest handles HTTP range requests for efficient seeking
func (h *FileHandler) handleRangeRequest(c *gin.Context, file *os.File, fileSize int64, rangeHeader string) {
	// Parse range header (e.g., "bytes=0-1023" or "bytes=1024-")
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	ranges := strings.Split(strings.TrimPrefix(rangeHeader, "bytes="), "-")
	if len(ranges) != 2 {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	var start, end int64
	var err error

	if ranges[0] != "" {
		start, err = strconv.ParseInt(ranges[0], 10, 64)
		if err != nil || start < 0 {
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	}

	if ranges[1] != "" {
		end, err = strconv.ParseInt(ranges[1], 10, 64)
		if err != nil || end < start {
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	} else {
		end = fileSize - 1
	}

	if start >= fileSize {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	contentLength := end - start + 1

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to seek file",
		})
		return
	}

	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Status(http.StatusPartialContent)

	if _, err := io.CopyN(c.Writer, file, contentLength); err != nil {
		log.Printf("Error streaming range %d-%d: %v", start, end, err)
	}
}
