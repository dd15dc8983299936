package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".fleetchat"

// DataDir returns the base data directory for fleetchat.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// CoreConfigPath returns the path to config.toml.
func CoreConfigPath() (string, error) {
	return dataPath("config.toml")
}

// StateDBPath returns the path to the bbolt database holding the recent
// session index.
func StateDBPath() (string, error) {
	return dataPath("state.db")
}

// UILogPath returns the log file used while the terminal UI owns the screen.
func UILogPath() (string, error) {
	return dataPath("ui.log")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
