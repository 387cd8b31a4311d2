package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectRuntimeDirs(t *testing.T) {
	homeDir := t.TempDir()

	t.Run("without XDG_RUNTIME_DIR uses ~/.local/state/dullahan", func(t *testing.T) {
		t.Setenv("HOME", homeDir)
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_RUNTIME_DIR", "")
		rc := DetectRuntime()
		assert.Equal(t, filepath.Join(homeDir, ".local", "state", "dullahan"), rc.RuntimeDir)
	})

	t.Run("with XDG_CONFIG_HOME uses $XDG_CONFIG_HOME/dullahan", func(t *testing.T) {
		// t.Setenv automatically restores the original value after the test
		xdg := t.TempDir()
		t.Setenv("HOME", homeDir)
		t.Setenv("XDG_CONFIG_HOME", xdg)
		result := DetectRuntime().ConfigDir
		assert.Equal(t, filepath.Join(xdg, "dullahan"), result)
	})

	t.Run("without XDG_CONFIG_HOME uses ~/.config/dullahan", func(t *testing.T) {
		// t.Setenv with empty string effectively unsets for our purposes
		t.Setenv("HOME", homeDir)
		t.Setenv("XDG_CONFIG_HOME", "")
		result := DetectRuntime().ConfigDir
		assert.Equal(t, filepath.Join(homeDir, ".config", "dullahan"), result)
	})
}

func TestDetectRuntimeAdminSocketPath(t *testing.T) {
	t.Run("returns RuntimeDir/admin.sock", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("XDG_RUNTIME_DIR", "")
		rc := DetectRuntime()
		assert.Equal(t, filepath.Join(rc.RuntimeDir, "admin.sock"), rc.AdminSocketPath)
	})
}
