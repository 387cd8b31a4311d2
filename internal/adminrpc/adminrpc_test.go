package adminrpc

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingRoundTrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "admin.sock")

	srv, err := Listen(zerolog.Nop(), sockPath, func(ctx context.Context, req Request) (any, error) {
		switch req.Verb {
		case VerbPing:
			return map[string]string{"pong": "ok"}, nil
		default:
			return nil, fmt.Errorf("unknown verb %q", req.Verb)
		}
	})
	require.NoError(t, err)
	defer srv.Close()

	go srv.Serve()

	resp, err := Dial(sockPath, Request{Verb: VerbPing})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Contains(t, string(resp.Data), "pong")
}

func TestUnknownVerbReturnsError(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "admin.sock")

	srv, err := Listen(zerolog.Nop(), sockPath, func(ctx context.Context, req Request) (any, error) {
		return nil, fmt.Errorf("unknown verb %q", req.Verb)
	})
	require.NoError(t, err)
	defer srv.Close()

	go srv.Serve()

	resp, err := Dial(sockPath, Request{Verb: "bogus"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "bogus")
}
