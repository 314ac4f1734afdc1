package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserSettings represents the user's personal settings
type UserSettings struct {
	MusicDir string `json:"musicDir"`
}

// SettingsPath returns the path to the settings file
func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

// LoadSettings loads the user settings, falling back to the configured
// music directory when no settings were saved yet
func (c Config) LoadSettings() (*UserSettings, error) {
	data, err := os.ReadFile(c.SettingsPath())
	if os.IsNotExist(err) {
		return &UserSettings{MusicDir: c.MusicDir}, nil
	}
	if err != nil {
		return nil, err
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if settings.MusicDir == "" {
		settings.MusicDir = c.MusicDir
	}
	return &settings, nil
}

// SaveSettings writes the user settings file
func (c Config) SaveSettings(settings *UserSettings) error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.SettingsPath(), data, 0644)
}

// EffectiveMusicDir returns the music directory the user picked, or the
// configured one
func (c Config) EffectiveMusicDir() string {
	settings, err := c.LoadSettings()
	if err != nil || settings.MusicDir == "" {
		return c.MusicDir
	}
	return settings.MusicDir
}
