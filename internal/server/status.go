// Package server finds, starts and stops the local AgentSmithy server for a
// workspace.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"smithy/internal/types"
)

const (
	stateDirName   = ".agentsmithy"
	statusFileName = "status.json"
)

var ErrServerNotRunning = errors.New("server is not running")

func StatusPath(workspace string) string {
	return filepath.Join(workspace, stateDirName, statusFileName)
}

// ReadStatus loads the status file the server keeps in workspace. A missing
// file yields ErrServerNotRunning. Fields with the wrong type are left at
// their zero value.
func ReadStatus(workspace string) (*types.ServerStatus, error) {
	data, err := os.ReadFile(StatusPath(workspace))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrServerNotRunning
		}
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", statusFileName, err)
	}
	status := &types.ServerStatus{
		State: types.ServerStateUnknown,
		Port:  wholeNumber(raw["port"]),
		PID:   wholeNumber(raw["pid"]),
	}
	if state, ok := raw["server_status"].(string); ok && strings.TrimSpace(state) != "" {
		status.State = types.ServerState(strings.TrimSpace(state))
	}
	if msg, ok := raw["error"].(string); ok {
		status.Error = msg
	}
	return status, nil
}

// URL is the loopback address a server with this status listens on.
func URL(status *types.ServerStatus) string {
	if status == nil || status.Port <= 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d", status.Port)
}

func wholeNumber(value any) int {
	f, ok := value.(float64)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
