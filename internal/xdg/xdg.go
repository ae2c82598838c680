// ABOUTME: XDG Base Directory Specification support for Linux/Unix standards
// ABOUTME: Handles config, data, and cache directories with HOME fallback

package xdg

import (
	"os"
	"path/filepath"
	"strings"
)

const appDir = "agentwire"

// ConfigHome returns ~/.config/agentwire or respects XDG_CONFIG_HOME.
func ConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appDir)
	}
	return filepath.Join(getHome(), ".config", appDir)
}

// DataHome returns ~/.local/share/agentwire or respects XDG_DATA_HOME.
func DataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appDir)
	}
	return filepath.Join(getHome(), ".local", "share", appDir)
}

// CacheHome returns ~/.cache/agentwire or respects XDG_CACHE_HOME.
func CacheHome() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, appDir)
	}
	return filepath.Join(getHome(), ".cache", appDir)
}

// ExpandPath expands a leading ~ or $XDG_* variable in config paths. The
// variables expand to their base directories, not app-specific ones, so a
// config value keeps its own subdirectory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(getHome(), path[2:])
	}

	// Prefix matching must be plain string comparison; filepath.HasPrefix
	// is deprecated and case-folds on some platforms.
	if strings.HasPrefix(path, "$XDG_DATA_HOME") {
		xdgData := os.Getenv("XDG_DATA_HOME")
		if xdgData == "" {
			xdgData = filepath.Join(getHome(), ".local", "share")
		}
		return strings.Replace(path, "$XDG_DATA_HOME", xdgData, 1)
	}
	if strings.HasPrefix(path, "$XDG_CONFIG_HOME") {
		xdgConfig := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfig == "" {
			xdgConfig = filepath.Join(getHome(), ".config")
		}
		return strings.Replace(path, "$XDG_CONFIG_HOME", xdgConfig, 1)
	}
	if strings.HasPrefix(path, "$XDG_CACHE_HOME") {
		xdgCache := os.Getenv("XDG_CACHE_HOME")
		if xdgCache == "" {
			xdgCache = filepath.Join(getHome(), ".cache")
		}
		return strings.Replace(path, "$XDG_CACHE_HOME", xdgCache, 1)
	}

	return path
}

// getHome returns HOME, falling back to the working directory so a missing
// environment never produces paths under /.
func getHome() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}
