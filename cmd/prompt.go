package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"archloom/loom/internal/model"
	"archloom/loom/internal/store"
)

const promptHeader = `You maintain a typed ontology graph. Emit a diff that performs the requested
change. The diff has a "## Nodes" section and a "## Edges" section. Node lines
are "+ Name|Type|SemanticId|Description|key:value,..." to create or
"- Name|Type|SemanticId" to delete. Edge lines are
"+ SourceId -edgeType-> TargetId" to create or the same with "-" to delete.
Node types: System, UseCase, Function, Flow, Requirement, Test, Module, Actor.
Edge types: compose, io, satisfy, verify, allocate.
New nodes get a semantic id of the form Name.ABBREV.N with the smallest free N.
Reference existing nodes by their semantic id. Deleting a node requires
deleting its edges in the same diff.`

// buildPrompt renders the current graph state plus the format contract plus
// the user's instruction into one producer prompt.
func buildPrompt(ctx context.Context, st store.Store, instruction string) (string, error) {
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("loading graph for prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nCurrent graph:\n")
	if len(snap.Nodes) == 0 {
		b.WriteString("(empty)\n")
	} else {
		writeGraphListing(&b, snap)
	}
	b.WriteString("\nInstruction: ")
	b.WriteString(instruction)
	b.WriteString("\n")
	return b.String(), nil
}

func writeGraphListing(b *strings.Builder, snap *model.Snapshot) {
	ids := snap.NodeIDs()
	sort.Slice(ids, func(i, j int) bool {
		return snap.Nodes[ids[i]].SemanticID < snap.Nodes[ids[j]].SemanticID
	})
	for _, id := range ids {
		n := snap.Nodes[id]
		fmt.Fprintf(b, "  %s (%s) %s\n", n.SemanticID, n.Type, n.Name)
	}
	if len(snap.Edges) == 0 {
		return
	}
	b.WriteString("Edges:\n")
	lines := make([]string, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		src := snap.Nodes[e.SourceID].SemanticID
		dst := snap.Nodes[e.TargetID].SemanticID
		lines = append(lines, fmt.Sprintf("  %s -%s-> %s", src, e.Type, dst))
	}
	sort.Strings(lines)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
}
