package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"archloom/loom/internal/model"
	"archloom/loom/internal/store"
	"archloom/loom/internal/track"
)

func TestSessionLifecycle(t *testing.T) {
	m := store.NewMemory()
	pid := m.Seed(model.Node{SemanticID: "Plant.SYS.1", Type: model.TypeSystem, Name: "Plant"})

	s := NewSession(m, nil)
	ctx := context.Background()

	// Before any capture the baseline is empty: the seeded node reads as
	// added.
	require.False(t, s.HasBaseline())
	status, err := s.Status(ctx, pid)
	require.NoError(t, err)
	require.Equal(t, track.StatusAdded, status)

	require.NoError(t, s.CaptureBaseline(ctx))
	require.True(t, s.HasBaseline())

	status, err = s.Status(ctx, pid)
	require.NoError(t, err)
	require.Equal(t, track.StatusUnchanged, status)

	// Apply a change through the pipeline; the session sees it.
	p := New(m, Config{})
	_, err = p.ApplyDiff(ctx, `## Nodes
+ Pump|Function|Pump.FUN.1
## Edges
+ Plant.SYS.1 -compose-> Pump.FUN.1
`)
	require.NoError(t, err)

	changes, err := s.Changes(ctx)
	require.NoError(t, err)
	var added int
	for _, rec := range changes {
		if rec.Status == track.StatusAdded {
			added++
			require.Equal(t, "Pump.FUN.1", rec.SemanticID)
		}
	}
	require.Equal(t, 1, added)

	s.Reset()
	require.False(t, s.HasBaseline())
	status, err = s.Status(ctx, pid)
	require.NoError(t, err)
	require.Equal(t, track.StatusAdded, status)
}
