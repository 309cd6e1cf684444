package app

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Defaults are the application's default locations.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ARCHIVIST_CONFIG: config file location (default: $XDG_CONFIG_HOME/archivist/config.toml)
//   - ARCHIVIST_HOME: base directory for archivist data (default: $XDG_DATA_HOME/archivist)
func GetDefaults() Defaults {
	baseDir := getBaseDir()
	return Defaults{
		ConfigPath: getConfigPath(),
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}
}

func getConfigPath() string {
	if path := os.Getenv("ARCHIVIST_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(xdg.ConfigHome, "archivist", "config.toml")
}

func getBaseDir() string {
	if path := os.Getenv("ARCHIVIST_HOME"); path != "" {
		return path
	}
	return filepath.Join(xdg.DataHome, "archivist")
}
