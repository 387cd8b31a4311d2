// Package config detects the runtime environment and resolves the
// filesystem locations Dullahan needs: its config directory (layout
// templates) and its per-user runtime directory (admin socket, PID file,
// logs).
package config

import (
	"os"
	"path/filepath"
)

// RuntimeConfig holds paths resolved once at process start.
type RuntimeConfig struct {
	// ConfigDir holds persisted configuration: layout templates, theme
	// tables. Defaults to $XDG_CONFIG_HOME/dullahan or ~/.config/dullahan.
	ConfigDir string
	// RuntimeDir holds ephemeral per-run state: the admin Unix socket, the
	// PID file, and (optionally) a log file and PTY trace. Defaults to
	// $XDG_RUNTIME_DIR/dullahan, falling back to ~/.local/state/dullahan
	// when XDG_RUNTIME_DIR is unset (e.g. macOS).
	RuntimeDir string
	HomeDir    string

	// ListenAddr is the loopback address:port the WebSocket server binds.
	ListenAddr string
	// AdminSocketPath is the Unix domain socket used for administrative
	// RPC (ping, status, quit, pane list, send-text, layout query).
	AdminSocketPath string
	// PIDFile records the running server's process ID.
	PIDFile string

	// TLSCertFile / TLSKeyFile hold TLS certificate and key paths.
	// DetectRuntime leaves them empty and the WebSocket listener does not
	// read them: it always serves plain (non-TLS) WebSocket.
	TLSCertFile string
	TLSKeyFile  string
}

// Runtime is the global runtime configuration instance, populated by
// DetectRuntime at package init and possibly overridden by CLI flags
// before the server binds.
var Runtime *RuntimeConfig

func init() {
	Runtime = DetectRuntime()
}

// DetectRuntime resolves config/runtime directories from the environment,
// creating them if they don't yet exist.
func DetectRuntime() *RuntimeConfig {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "."
		}
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(homeDir, ".config")
	}
	configDir = filepath.Join(configDir, "dullahan")

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = filepath.Join(homeDir, ".local", "state", "dullahan")
	} else {
		runtimeDir = filepath.Join(runtimeDir, "dullahan")
	}

	rc := &RuntimeConfig{
		ConfigDir:       configDir,
		RuntimeDir:      runtimeDir,
		HomeDir:         homeDir,
		ListenAddr:      "127.0.0.1:7681",
		AdminSocketPath: filepath.Join(runtimeDir, "admin.sock"),
		PIDFile:         filepath.Join(runtimeDir, "dullahand.pid"),
	}

	if err := ensureDir(rc.ConfigDir); err != nil {
		warnFallback("failed to create config directory", rc.ConfigDir, err)
	}
	if err := ensureDir(rc.RuntimeDir); err != nil {
		warnFallback("failed to create runtime directory", rc.RuntimeDir, err)
	}

	return rc
}

// ensureDir creates a directory (and parents) if it doesn't exist.
func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

// warnFallback avoids an import cycle with internal/logger (which does not
// depend on config) by writing directly to stderr; config is resolved
// before the logger is configured from CLI flags.
func warnFallback(msg, path string, err error) {
	os.Stderr.WriteString("dullahand: warning: " + msg + " (" + path + "): " + err.Error() + "\n")
}
