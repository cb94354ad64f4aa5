package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"smithy/internal/types"
)

const (
	defaultServerURL          = "http://127.0.0.1:8765"
	defaultServerBinary       = "agentsmithy"
	defaultStartTimeout       = 20 * time.Second
	defaultMaxInactiveViews   = 3
	defaultMaxTranscriptBlock = 200
)

type Config struct {
	Server  ServerConfig  `toml:"server" json:"server" yaml:"server"`
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
	Debug   DebugConfig   `toml:"debug" json:"debug" yaml:"debug"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui"`
}

type ServerConfig struct {
	URL          string `toml:"url" json:"url" yaml:"url"`
	Binary       string `toml:"binary" json:"binary" yaml:"binary"`
	Workspace    string `toml:"workspace" json:"workspace" yaml:"workspace"`
	Autostart    *bool  `toml:"autostart" json:"autostart,omitempty" yaml:"autostart,omitempty"`
	StartTimeout string `toml:"start_timeout" json:"start_timeout" yaml:"start_timeout"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level" yaml:"level"`
}

type DebugConfig struct {
	StreamDebug bool `toml:"stream_debug" json:"stream_debug" yaml:"stream_debug"`
}

type UIConfig struct {
	MaxInactiveViews    int    `toml:"max_inactive_views" json:"max_inactive_views" yaml:"max_inactive_views"`
	MaxTranscriptBlocks int    `toml:"max_transcript_blocks" json:"max_transcript_blocks" yaml:"max_transcript_blocks"`
	OpenCommand         string `toml:"open_command" json:"open_command" yaml:"open_command"`
	AutoOpenFiles       *bool  `toml:"auto_open_files" json:"auto_open_files,omitempty" yaml:"auto_open_files,omitempty"`
	// Keys overrides key bindings by action name, e.g. new_dialog = "ctrl+t".
	Keys map[string]string `toml:"keys,omitempty" json:"keys,omitempty" yaml:"keys,omitempty"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:          defaultServerURL,
			Binary:       defaultServerBinary,
			StartTimeout: defaultStartTimeout.String(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			MaxInactiveViews:    defaultMaxInactiveViews,
			MaxTranscriptBlocks: defaultMaxTranscriptBlock,
		},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) ServerURL() string {
	raw := strings.TrimSpace(c.Server.URL)
	if raw == "" {
		return defaultServerURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	raw = strings.TrimRight(raw, "/")
	if raw == "http:" || raw == "https:" {
		return defaultServerURL
	}
	return raw
}

func (c Config) ServerBinary() string {
	binary := strings.TrimSpace(c.Server.Binary)
	if binary == "" {
		return defaultServerBinary
	}
	return binary
}

// Workspace returns the configured workspace, or the working directory
// when none is set.
func (c Config) Workspace() (string, error) {
	workspace := strings.TrimSpace(c.Server.Workspace)
	if workspace == "" {
		return os.Getwd()
	}
	resolved, err := expandHome(workspace)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}

func (c Config) AutostartEnabled() bool {
	if c.Server.Autostart == nil {
		return true
	}
	return *c.Server.Autostart
}

func (c Config) StartTimeout() time.Duration {
	raw := strings.TrimSpace(c.Server.StartTimeout)
	if raw == "" {
		return defaultStartTimeout
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil || timeout <= 0 {
		return defaultStartTimeout
	}
	return timeout
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StreamDebugEnabled() bool {
	return c.Debug.StreamDebug
}

func (c Config) MaxInactiveViews() int {
	if c.UI.MaxInactiveViews <= 0 {
		return defaultMaxInactiveViews
	}
	return c.UI.MaxInactiveViews
}

func (c Config) MaxTranscriptBlocks() int {
	if c.UI.MaxTranscriptBlocks <= 0 {
		return defaultMaxTranscriptBlock
	}
	return c.UI.MaxTranscriptBlocks
}

func (c Config) OpenCommand() string {
	return strings.TrimSpace(c.UI.OpenCommand)
}

func (c Config) AutoOpenFiles() bool {
	if c.UI.AutoOpenFiles == nil {
		return true
	}
	return *c.UI.AutoOpenFiles
}

func (c Config) Keymap() *types.Keymap {
	return types.DefaultKeymap().WithOverrides(c.UI.Keys)
}

// EncodeTOML renders the config with every default filled in.
func (c Config) EncodeTOML() ([]byte, error) {
	return toml.Marshal(c.Resolved())
}

// Resolved returns a copy with accessor defaults written back into the
// raw fields.
func (c Config) Resolved() Config {
	out := c
	out.Server.URL = c.ServerURL()
	out.Server.Binary = c.ServerBinary()
	out.Server.StartTimeout = c.StartTimeout().String()
	autostart := c.AutostartEnabled()
	out.Server.Autostart = &autostart
	out.Logging.Level = c.LogLevel()
	out.UI.MaxInactiveViews = c.MaxInactiveViews()
	out.UI.MaxTranscriptBlocks = c.MaxTranscriptBlocks()
	out.UI.OpenCommand = c.OpenCommand()
	autoOpen := c.AutoOpenFiles()
	out.UI.AutoOpenFiles = &autoOpen
	return out
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
	}
	return path, nil
}
