package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/model"
	"archloom/loom/internal/producer"
	"archloom/loom/internal/resolve"
	"archloom/loom/internal/rules"
	"archloom/loom/internal/store"
	"archloom/loom/internal/track"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return New(m, Config{}), m
}

func seedGraph(t *testing.T, m *store.Memory) (sysID, funID string) {
	t.Helper()
	sysID = m.Seed(model.Node{SemanticID: "Plant.SYS.1", Type: model.TypeSystem, Name: "Plant"})
	funID = m.Seed(model.Node{SemanticID: "Pump.FUN.1", Type: model.TypeFunction, Name: "Pump"})
	m.SeedEdge(model.Edge{SourceID: sysID, TargetID: funID, Type: model.EdgeCompose})
	return sysID, funID
}

type recordingObserver struct {
	calls [][]track.ChangeRecord
	seqs  []uint64
}

func (o *recordingObserver) OnCommitted(records []track.ChangeRecord, seq uint64) {
	o.calls = append(o.calls, records)
	o.seqs = append(o.seqs, seq)
}

const validDiff = `## Nodes
+ Valve|Function|Valve.FUN.1|Controls flow
## Edges
+ Plant.SYS.1 -compose-> Valve.FUN.1
`

func TestApplyDiffCommitsBatch(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	result, err := p.ApplyDiff(context.Background(), validDiff)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
	require.Equal(t, 1, result.Attempts)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 2)

	require.Len(t, result.Records, 1)
	require.Equal(t, "Valve.FUN.1", result.Records[0].SemanticID)
	require.Equal(t, track.StatusAdded, result.Records[0].Status)
}

func TestApplyDiffRejectsWholeBatch(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	// The valve itself is fine, but the second edge already exists, so
	// nothing from the batch may commit.
	bad := validDiff + "+ Plant.SYS.1 -compose-> Pump.FUN.1\n"

	_, err := p.ApplyDiff(context.Background(), bad)
	var valErr *rules.ValidationError
	require.ErrorAs(t, err, &valErr)

	snap, snapErr := m.Snapshot(context.Background())
	require.NoError(t, snapErr)
	require.Len(t, snap.Nodes, 2, "rejected batch leaked nodes")
	require.Len(t, snap.Edges, 1, "rejected batch leaked edges")
}

func TestApplyDiffDirectionCorrection(t *testing.T) {
	m := store.NewMemory()
	fun := m.Seed(model.Node{SemanticID: "Pump.FUN.1", Type: model.TypeFunction, Name: "Pump"})
	flw := m.Seed(model.Node{SemanticID: "Speed.FLW.1", Type: model.TypeFlow, Name: "Speed"})
	m.SeedEdge(model.Edge{SourceID: fun, TargetID: flw, Type: model.EdgeIO})
	p := New(m, Config{})

	result, err := p.ApplyDiff(context.Background(), `## Edges
- Pump.FUN.1 -io-> Speed.FLW.1
+ Speed.FLW.1 -io-> Pump.FUN.1
`)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.True(t, snap.HasEdge(model.Edge{SourceID: flw, TargetID: fun, Type: model.EdgeIO}))
	require.False(t, snap.HasEdge(model.Edge{SourceID: fun, TargetID: flw, Type: model.EdgeIO}))
}

func TestApplyRetriesWithFeedback(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	// First response duplicates an existing node; second is valid.
	prod := producer.NewStatic(
		"## Nodes\n+ Pump|Function|Pump.FUN.1\n",
		validDiff,
	)

	result, err := p.Apply(context.Background(), "add a valve", prod)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, 2, prod.Calls())

	// The retry prompt carries the rejection feedback.
	require.Len(t, prod.Prompts, 2)
	require.Contains(t, prod.Prompts[1], "add a valve")
	require.Contains(t, prod.Prompts[1], "rejected")
	require.NotContains(t, prod.Prompts[0], "rejected")
}

func TestApplyRetryBudgetExhausted(t *testing.T) {
	m := store.NewMemory()
	seedGraph(t, m)
	p := New(m, Config{MaxRetries: 2})

	bad := "## Nodes\n+ Pump|Function|Pump.FUN.1\n"
	prod := producer.NewStatic(bad, bad, bad)

	result, err := p.Apply(context.Background(), "prompt", prod)
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)
	require.Equal(t, 3, result.Attempts, "one initial attempt plus two retries")
	require.Equal(t, 3, prod.Calls())
	require.Error(t, result.RejectReason)

	snap, snapErr := m.Snapshot(context.Background())
	require.NoError(t, snapErr)
	require.Len(t, snap.Nodes, 2, "rejected attempts leaked state")
}

// failingStore wraps a Store and fails every CommitChunk.
type failingStore struct {
	store.Store
}

func (f *failingStore) CommitChunk(ctx context.Context, ops []*diff.Operation, bind store.Binder) error {
	return fmt.Errorf("disk full")
}

func TestCommitFailureIsNotRetried(t *testing.T) {
	m := store.NewMemory()
	seedGraph(t, m)
	p := New(&failingStore{Store: m}, Config{})

	prod := producer.NewStatic(validDiff, validDiff, validDiff)

	_, err := p.Apply(context.Background(), "prompt", prod)
	var infra *InfrastructureError
	require.ErrorAs(t, err, &infra)
	require.Equal(t, PhaseCommitting, infra.Phase)
	require.Equal(t, 1, prod.Calls(), "infrastructure failure must not regenerate the diff")
}

// brokenLookupStore wraps a Store and fails every LookupSemantic.
type brokenLookupStore struct {
	store.Store
}

func (s *brokenLookupStore) LookupSemantic(string) (string, bool, error) {
	return "", false, fmt.Errorf("database locked")
}

func TestLookupFailureIsInfrastructure(t *testing.T) {
	m := store.NewMemory()
	seedGraph(t, m)
	p := New(&brokenLookupStore{Store: m}, Config{})

	prod := producer.NewStatic(validDiff, validDiff, validDiff)

	_, err := p.Apply(context.Background(), "prompt", prod)
	var infra *InfrastructureError
	require.ErrorAs(t, err, &infra)
	require.Equal(t, PhaseResolving, infra.Phase)
	require.Equal(t, 1, prod.Calls(), "store failure must not regenerate the diff")
}

func TestProducerFailureIsInfrastructure(t *testing.T) {
	p, _ := newTestPipeline(t)

	prod := producer.NewStatic() // exhausted immediately

	_, err := p.Apply(context.Background(), "prompt", prod)
	var infra *InfrastructureError
	require.ErrorAs(t, err, &infra)
}

func TestObserversNotifiedOncePerBatchInOrder(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	obs := &recordingObserver{}
	p.Subscribe(obs)

	_, err := p.ApplyDiff(context.Background(), validDiff)
	require.NoError(t, err)
	_, err = p.ApplyDiff(context.Background(), `## Nodes
+ Gauge|Function|Gauge.FUN.1
## Edges
+ Plant.SYS.1 -compose-> Gauge.FUN.1
`)
	require.NoError(t, err)

	require.Len(t, obs.calls, 2)
	require.Equal(t, []uint64{1, 2}, obs.seqs)
	require.Equal(t, "Valve.FUN.1", obs.calls[0][0].SemanticID)
	require.Equal(t, "Gauge.FUN.1", obs.calls[1][0].SemanticID)
}

func TestRejectedBatchDoesNotNotify(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	obs := &recordingObserver{}
	p.Subscribe(obs)

	_, err := p.ApplyDiff(context.Background(), "## Nodes\n+ Pump|Function|Pump.FUN.1\n")
	require.Error(t, err)
	require.Empty(t, obs.calls)
}

func TestCheckDoesNotCommit(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	violations, err := p.Check(context.Background(), validDiff)
	require.NoError(t, err)
	for _, v := range violations {
		require.NotEqual(t, rules.SeverityError, v.Severity)
	}

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2, "Check committed state")
}

func TestCheckReportsViolations(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	violations, err := p.Check(context.Background(), "## Nodes\n+ Pump|Function|Pump.FUN.1\n")
	var valErr *rules.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.NotEmpty(t, violations)
}

func TestApplyDiffChunksForwardReference(t *testing.T) {
	// A batch that creates a node and an edge to it in one diff exercises
	// the dependency ordering end to end: the edge must land after the
	// node even though both are in one batch.
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	result, err := p.ApplyDiff(context.Background(), `## Nodes
+ Valve|Function|Valve.FUN.1
+ Cmd|Flow|Cmd.FLW.1
## Edges
+ Valve.FUN.1 -io-> Cmd.FLW.1
+ Plant.SYS.1 -compose-> Valve.FUN.1
`)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	valve := snap.Semantic["Valve.FUN.1"]
	cmd := snap.Semantic["Cmd.FLW.1"]
	require.NotEmpty(t, valve)
	require.True(t, snap.HasEdge(model.Edge{SourceID: valve, TargetID: cmd, Type: model.EdgeIO}))
}

func TestDirectionSwapBatchRejected(t *testing.T) {
	m := store.NewMemory()
	fun := m.Seed(model.Node{SemanticID: "Pump.FUN.1", Type: model.TypeFunction, Name: "Pump"})
	flw := m.Seed(model.Node{SemanticID: "Speed.FLW.1", Type: model.TypeFlow, Name: "Speed"})
	m.SeedEdge(model.Edge{SourceID: fun, TargetID: flw, Type: model.EdgeIO})
	p := New(m, Config{MaxRetries: -1})

	// Swapping both directions in one batch is contradictory: each creation
	// conflicts with the other's, and nothing commits.
	swap := `## Edges
+ Speed.FLW.1 -io-> Pump.FUN.1
- Pump.FUN.1 -io-> Speed.FLW.1
+ Pump.FUN.1 -io-> Speed.FLW.1
- Speed.FLW.1 -io-> Pump.FUN.1
`
	prod := producer.NewStatic(swap)
	result, err := p.Apply(context.Background(), "prompt", prod)
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)
	var valErr *rules.ValidationError
	require.ErrorAs(t, result.RejectReason, &valErr)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.True(t, snap.HasEdge(model.Edge{SourceID: fun, TargetID: flw, Type: model.EdgeIO}))
	require.False(t, snap.HasEdge(model.Edge{SourceID: flw, TargetID: fun, Type: model.EdgeIO}))
}

func TestApplyDiffReaddsSameEdge(t *testing.T) {
	// Removing an edge and re-adding the identical edge in one batch is a
	// validated shape; the removal commits first and the edge survives.
	p, m := newTestPipeline(t)
	sysID, funID := seedGraph(t, m)

	result, err := p.ApplyDiff(context.Background(), `## Edges
- Plant.SYS.1 -compose-> Pump.FUN.1
+ Plant.SYS.1 -compose-> Pump.FUN.1
`)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.True(t, snap.HasEdge(model.Edge{SourceID: sysID, TargetID: funID, Type: model.EdgeCompose}))
	require.Len(t, snap.Edges, 1)
}

func TestDuplicateEntityRejectsWholeBatch(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	// One valid creation plus one duplicate: zero mutations commit.
	_, err := p.ApplyDiff(context.Background(), `## Nodes
+ Valve|Function|Valve.FUN.1
+ Pump|Function|Pump.FUN.1
`)
	var dup *resolve.DuplicateEntityError
	require.ErrorAs(t, err, &dup)

	snap, snapErr := m.Snapshot(context.Background())
	require.NoError(t, snapErr)
	require.Len(t, snap.Nodes, 2)
}

func TestCommittedBatchResolvesAgainstStore(t *testing.T) {
	p, m := newTestPipeline(t)
	seedGraph(t, m)

	_, err := p.ApplyDiff(context.Background(), validDiff)
	require.NoError(t, err)

	// The formerly-temp Valve id is now a stable persistent id: a later
	// batch referencing it by semantic id resolves straight to it.
	ops, err := diff.Parse("## Edges\n- Plant.SYS.1 -compose-> Valve.FUN.1\n")
	require.NoError(t, err)
	batch, err := resolve.Resolve(ops, m)
	require.NoError(t, err)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, snap.Semantic["Valve.FUN.1"], batch.Ops[0].TargetID)
	require.False(t, resolve.IsTemp(batch.Ops[0].TargetID))
}

func TestEmptyDiffIsParseError(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.ApplyDiff(context.Background(), "just prose, no operations\n")
	var parseErr *diff.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestFeedbackMentionsViolatedRules(t *testing.T) {
	fb := feedbackFor(&rules.ValidationError{Violations: []rules.Violation{
		{RuleID: "dangling-endpoint", Severity: rules.SeverityError, Message: "missing endpoint"},
	}})
	require.True(t, strings.Contains(fb, "dangling-endpoint"))
}
