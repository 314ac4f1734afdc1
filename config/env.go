package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration
type Config struct {
	Port int `yaml:"port"`

	// ExternalStorageDir is the root that device paths and content URIs of
	// the primary volume resolve against.
	ExternalStorageDir string `yaml:"external_storage_dir"`
	MusicDir           string `yaml:"music_dir"`
	DocumentsDir       string `yaml:"documents_dir"`
	DataDir            string `yaml:"data_dir"`

	Storage StorageConfig `yaml:"storage"`
	Scan    ScanConfig    `yaml:"scan"`
	Save    SaveConfig    `yaml:"save"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig selects the history backend
type StorageConfig struct {
	Backend string `yaml:"backend"` // "file", "sqlite" or "memory"
}

// ScanConfig tunes the audio scanner
type ScanConfig struct {
	IncludeOgg bool `yaml:"include_ogg"`
}

// SaveConfig tunes device saves
type SaveConfig struct {
	BasePath     string `yaml:"base_path"`
	FallbackPath string `yaml:"fallback_path"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if can't get home dir
		home = "."
	}

	return Config{
		Port:               8080,
		ExternalStorageDir: home,
		MusicDir:           filepath.Join(home, "Music"),
		DocumentsDir:       filepath.Join(home, "Documents"),
		DataDir:            filepath.Join(home, ".monochrome"),
		Storage:            StorageConfig{Backend: "file"},
		Save: SaveConfig{
			BasePath:     "Music/monochrome",
			FallbackPath: "Monochrome",
		},
		CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:5174"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides. An explicit path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = os.Getenv("MONOCHROME_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		// The implicit file lives in the data directory the environment picks
		if dir := os.Getenv("MONOCHROME_DATA_DIR"); dir != "" {
			cfg.DataDir = dir
		}
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	if err := mergeFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(payload, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	if dir := os.Getenv("MONOCHROME_EXTERNAL_STORAGE"); dir != "" {
		cfg.ExternalStorageDir = dir
	}
	if dir := os.Getenv("MONOCHROME_MUSIC_DIR"); dir != "" {
		cfg.MusicDir = dir
	}
	if dir := os.Getenv("MONOCHROME_DOCUMENTS_DIR"); dir != "" {
		cfg.DocumentsDir = dir
	}
	if dir := os.Getenv("MONOCHROME_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if backend := os.Getenv("MONOCHROME_STORAGE"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	return nil
}
