package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the path to the drawgate data directory.
// - DATA_DIR when set
// - Windows: %APPDATA%\drawgate
// - Other OS: ~/.drawgate
func DataDir() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "drawgate")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".drawgate"
	}
	return filepath.Join(home, ".drawgate")
}

// DBFileName is the SQLite database file inside the data directory.
const DBFileName = "drawgate.db"

// DBPath returns the path to the SQLite database file.
func DBPath() string {
	return filepath.Join(DataDir(), DBFileName)
}

// ImagesDir returns the default directory for url-mode image files.
func ImagesDir() string {
	return filepath.Join(DataDir(), "images")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
