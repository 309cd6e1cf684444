package app

import (
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("ARCHIVIST_CONFIG", "/custom/config.toml")
		t.Setenv("ARCHIVIST_HOME", "/custom/archivist")

		d := GetDefaults()
		assert.Equal(t, "/custom/config.toml", d.ConfigPath)
		assert.Equal(t, "/custom/archivist", d.BaseDir)
		assert.Equal(t, "/custom/archivist/log", d.LogDir)
	})

	t.Run("falls back to xdg directories", func(t *testing.T) {
		t.Setenv("ARCHIVIST_CONFIG", "")
		t.Setenv("ARCHIVIST_HOME", "")

		d := GetDefaults()
		assert.Equal(t, filepath.Join(xdg.ConfigHome, "archivist", "config.toml"), d.ConfigPath)
		assert.Equal(t, filepath.Join(xdg.DataHome, "archivist"), d.BaseDir)
		assert.Equal(t, filepath.Join(xdg.DataHome, "archivist", "log"), d.LogDir)
	})
}
