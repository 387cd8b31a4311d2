// Package ptyproc owns the PTY I/O external collaborator of spec.md §2: it
// spawns the child shell, exposes a bidirectional byte channel, and
// surfaces resize. Everything here is grounded on the teacher's
// internal/services/pty.go spawn pattern and internal/handlers/pty.go's
// resizePTY ioctl.
package ptyproc

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"unsafe"

	"github.com/creack/pty"
)

// Process owns one spawned child's PTY master end.
type Process struct {
	Cmd *exec.Cmd
	pty *os.File

	closeOnce sync.Once
}

// Spawn starts cmd attached to a new PTY sized cols x rows.
func Spawn(cmd *exec.Cmd, cols, rows uint16) (*Process, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("ptyproc: starting %s: %w", cmd.Path, err)
	}
	p := &Process{Cmd: cmd, pty: ptmx}
	if err := p.Resize(cols, rows); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("ptyproc: initial resize: %w", err)
	}
	return p, nil
}

// Read reads PTY output, the child's stdout+stderr combined.
func (p *Process) Read(buf []byte) (int, error) {
	return p.pty.Read(buf)
}

// Write sends bytes to the PTY master, which the child reads as stdin.
func (p *Process) Write(data []byte) (int, error) {
	return p.pty.Write(data)
}

// Resize issues TIOCSWINSZ so the child's terminal geometry matches the
// Pane's — the same raw-ioctl approach as the teacher, rather than a
// higher-level helper, since it needs the exact struct layout the kernel
// expects and nothing more.
func (p *Process) Resize(cols, rows uint16) error {
	ws := &struct {
		Row    uint16
		Col    uint16
		Xpixel uint16
		Ypixel uint16
	}{Row: rows, Col: cols}

	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		p.pty.Fd(),
		syscall.TIOCSWINSZ,
		uintptr(unsafe.Pointer(ws)),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// Close closes the PTY master and signals the child to exit.
func (p *Process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.pty.Close()
		if p.Cmd.Process != nil {
			_ = p.Cmd.Process.Kill()
		}
	})
	return err
}

// Wait blocks until the child process exits.
func (p *Process) Wait() error {
	return p.Cmd.Wait()
}
