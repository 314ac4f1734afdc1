package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"monochrome/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsRouter(cfg config.Config) *gin.Engine {
	h := NewSettingsHandler(cfg)

	r := gin.New()
	r.GET("/api/settings", h.GetSettings)
	r.POST("/api/settings", h.UpdateSettings)
	return r
}

func TestGetSettingsDefaults(t *testing.T) {
	cfg := testConfig(t)

	w := doRequest(t, settingsRouter(cfg), http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var settings config.UserSettings
	decode(t, w, &settings)
	assert.Equal(t, cfg.MusicDir, settings.MusicDir)
}

func TestUpdateSettings(t *testing.T) {
	cfg := testConfig(t)
	r := settingsRouter(cfg)
	musicDir := filepath.Join(t.TempDir(), "Library")

	w := doRequest(t, r, http.MethodPost, "/api/settings", gin.H{"musicDir": musicDir})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.DirExists(t, musicDir)
	assert.Equal(t, musicDir, cfg.EffectiveMusicDir())

	w = doRequest(t, r, http.MethodGet, "/api/settings", nil)
	var settings config.UserSettings
	decode(t, w, &settings)
	assert.Equal(t, musicDir, settings.MusicDir)
}

func TestUpdateSettingsRejectsInvalidDirectory(t *testing.T) {
	cfg := testConfig(t)
	r := settingsRouter(cfg)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	w := doRequest(t, r, http.MethodPost, "/api/settings", gin.H{"musicDir": file})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/settings", gin.H{"musicDir": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/settings", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoFileExists(t, cfg.SettingsPath())
}
