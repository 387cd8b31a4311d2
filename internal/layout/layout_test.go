package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreSeedsBuiltinTemplates(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	for _, name := range []string{"single", "2-col", "2x2", "main-side"} {
		_, ok := s.Get(name)
		assert.True(t, ok, "missing built-in template %q", name)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewStore(dir)
	require.NoError(t, err)

	custom := Template{Name: "wide-main", Layout: Container(OrientHorizontal, []*Node{Leaf(0), Leaf(0)}, []float64{80, 20})}
	require.NoError(t, s1.Put(custom))

	s2, err := NewStore(dir)
	require.NoError(t, err)
	got, ok := s2.Get("wide-main")
	require.True(t, ok)
	assert.Equal(t, custom.Layout.Percent, got.Layout.Percent)

	assert.FileExists(t, filepath.Join(dir, "layouts.json"))
}

func TestInstantiateAssignsFreshPaneIDs(t *testing.T) {
	tmpl := Template{Name: "2x2", Layout: builtinTemplates()[2].Layout}

	next := uint16(10)
	node := Instantiate(tmpl, func() uint16 {
		id := next
		next++
		return id
	})

	ids := node.PaneIDs()
	assert.Equal(t, []uint16{10, 11, 12, 13}, ids)
}

func TestNodePaneIDsLeaf(t *testing.T) {
	n := Leaf(7)
	assert.Equal(t, []uint16{7}, n.PaneIDs())
}

// TestWatchPicksUpExternalEdit proves an operator hand-editing layouts.json
// outside the running daemon gets reflected into the live Store without a
// restart.
func TestWatchPicksUpExternalEdit(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Watch(zerolog.Nop()))
	defer s.Close()

	_, ok := s.Get("hand-edited")
	require.False(t, ok)

	external := []Template{
		{Name: "hand-edited", Layout: Leaf(0)},
	}
	data, err := json.MarshalIndent(external, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts.json"), data, 0o644))

	require.Eventually(t, func() bool {
		_, ok := s.Get("hand-edited")
		return ok
	}, time.Second, 10*time.Millisecond, "external edit to layouts.json must be picked up by the watcher")
}
