package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"monochrome/config"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	cfg config.Config
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(cfg config.Config) *SettingsHandler {
	return &SettingsHandler{cfg: cfg}
}

// validatePath validates that the path exists (creating it if needed) and is writable
func validatePath(path string) error {
	if path == "" {
		return errors.New("music directory is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
	} else if !info.IsDir() {
		return errors.New("path is not a directory")
	}

	// Test write permissions by creating a temporary file
	testFile := filepath.Join(path, ".monochrome-write-test")
	file, err := os.Create(testFile)
	if err != nil {
		return err
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.cfg.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings updates the user settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var newSettings config.UserSettings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	if err := validatePath(newSettings.MusicDir); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid music directory",
			"details": err.Error(),
		})
		return
	}

	if err := h.cfg.SaveSettings(&newSettings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": newSettings,
	})
}
