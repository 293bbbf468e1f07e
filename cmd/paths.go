package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
)

const appDirName = "seca-headers"

// getDataDir returns the appropriate data directory for the current OS
// following XDG Base Directory specification on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %LOCALAPPDATA%\seca-headers
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		baseDir = filepath.Join(baseDir, appDirName)

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)

	default:
		// $XDG_DATA_HOME/seca-headers > ~/.local/share/seca-headers
		xdgDataHome := os.Getenv("XDG_DATA_HOME")
		if xdgDataHome != "" {
			baseDir = filepath.Join(xdgDataHome, appDirName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share", appDirName)
		}
	}

	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// getResultsDir returns the path to the results directory
func getResultsDir() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}

	resultsDir := filepath.Join(dataDir, "results")

	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	return resultsDir, nil
}

// getConfigFilePath returns the config file in use, falling back to the
// default location when none was loaded.
func getConfigFilePath(used string) string {
	if used != "" {
		return used
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "~/.seca-headers.yaml"
	}
	return filepath.Join(homeDir, ".seca-headers.yaml")
}
