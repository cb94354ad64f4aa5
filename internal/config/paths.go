package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = ".smithy"
	homeEnv    = "SMITHY_HOME"
)

// DataDir is $SMITHY_HOME, or ~/.smithy.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(homeEnv)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

func dataFile(name string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func ConfigPath() (string, error) { return dataFile("config.toml") }

// StatePath is the bbolt database holding UI state.
func StatePath() (string, error) { return dataFile("state.db") }

// UIStateFallbackPath is used when the state database is locked.
func UIStateFallbackPath() (string, error) { return dataFile("ui_state.json") }

// UILogPath is where the terminal UI logs, since it owns stdout.
func UILogPath() (string, error) { return dataFile("ui.log") }

// ServerLogPath receives the output of an autostarted server.
func ServerLogPath() (string, error) { return dataFile("server.log") }
