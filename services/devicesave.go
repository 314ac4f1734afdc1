package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"monochrome/config"
	"monochrome/types"
)

// Save failure reasons reported without an underlying error
const (
	ReasonInvalidFilename = "invalid-filename"
	ReasonEmptyBlob       = "empty-blob"
)

// SaveOptions overrides where a blob is written
type SaveOptions struct {
	// BasePath is relative to the external storage directory
	BasePath string
}

// DeviceSaver persists downloaded bytes into the device music library
type DeviceSaver interface {
	SaveBlob(data []byte, filename string, opts SaveOptions) types.SaveResult
}

type deviceSaver struct {
	cfg config.Config
}

// NewDeviceSaver creates a saver writing under the configured directories
func NewDeviceSaver(cfg config.Config) DeviceSaver {
	return &deviceSaver{cfg: cfg}
}

// SaveBlob writes data under <external>/<base path>/<filename>. When that
// write fails it tries <documents>/<fallback path>/<filename> once. Failures
// are reported in the result, never returned as errors.
func (s *deviceSaver) SaveBlob(data []byte, filename string, opts SaveOptions) types.SaveResult {
	if !validFilename(filename) {
		return types.SaveResult{Saved: false, Reason: ReasonInvalidFilename}
	}
	if len(data) == 0 {
		return types.SaveResult{Saved: false, Reason: ReasonEmptyBlob}
	}

	basePath := opts.BasePath
	if basePath == "" {
		basePath = s.cfg.Save.BasePath
	}

	primary := filepath.Join(s.cfg.ExternalStorageDir, basePath, filename)
	err := writeBlob(primary, data)
	if err == nil {
		return types.SaveResult{Saved: true, Path: primary}
	}
	log.Printf("Save to %s failed, trying fallback: %v", primary, err)

	fallback := filepath.Join(s.cfg.DocumentsDir, s.cfg.Save.FallbackPath, filename)
	if err := writeBlob(fallback, data); err != nil {
		log.Printf("Fallback save to %s failed: %v", fallback, err)
		return types.SaveResult{Saved: false, Error: err.Error()}
	}
	return types.SaveResult{Saved: true, Path: fallback, Fallback: true}
}

func writeBlob(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func validFilename(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
