// Package configpaths resolves where flag defaults may be loaded from.
// Candidates are tried in order: an explicit --config path, the working
// directory, the user config dir, then /etc. Missing files are skipped.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
)

const appDir = "s1500d"

// UserConfigDir returns the per-user configuration directory.
func UserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", appDir), nil
	}
	return "", errors.New("HOME not set")
}

// Candidates builds the ordered TOML candidate paths for kong's
// configuration loader. userPath, when non-empty, is prioritized.
func Candidates(userPath string) []string {
	var paths []string
	if userPath != "" {
		paths = append(paths, userPath)
	}

	if wd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(wd, appDir+".toml"))
	}
	if dir, err := UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, appDir+".toml"))
	}
	paths = append(paths, filepath.Join("/etc", appDir, appDir+".toml"))

	return paths
}
