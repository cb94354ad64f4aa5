package types

type ServerState string

const (
	ServerStateStarting ServerState = "starting"
	ServerStateReady    ServerState = "ready"
	ServerStateStopping ServerState = "stopping"
	ServerStateStopped  ServerState = "stopped"
	ServerStateError    ServerState = "error"
	ServerStateUnknown  ServerState = "unknown"
)

// ServerStatus mirrors the status file the server keeps in its workspace.
type ServerStatus struct {
	State ServerState `json:"server_status"`
	Port  int         `json:"port"`
	PID   int         `json:"pid"`
	Error string      `json:"error,omitempty"`
}

type Health struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// ServerConfig is the server's editable configuration plus the metadata it
// publishes about available providers and models.
type ServerConfig struct {
	Config   map[string]any `json:"config"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
