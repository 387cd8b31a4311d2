package ptyproc

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnWriteReadRoundTrip(t *testing.T) {
	cmd := exec.Command("/bin/cat")
	p, err := Spawn(cmd, 80, 24)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Write([]byte("hello\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	_ = p.pty.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "hello")
}

func TestResizeSucceeds(t *testing.T) {
	cmd := exec.Command("/bin/cat")
	p, err := Spawn(cmd, 80, 24)
	require.NoError(t, err)
	defer p.Close()

	assert.NoError(t, p.Resize(100, 40))
}

func TestCloseKillsChild(t *testing.T) {
	cmd := exec.Command("/bin/sleep", "30")
	p, err := Spawn(cmd, 80, 24)
	require.NoError(t, err)

	require.NoError(t, p.Close())

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("child process was not reaped after Close")
	}
}
