// Package diff parses the producer-facing textual diff format into
// structured operations. Parsing is purely syntactic: existence and
// duplication checks belong to the resolver and validator.
//
// The format is line-oriented. A block carries a "## Nodes" and a "## Edges"
// section. Node lines are pipe-delimited:
//
//	+ Pump Control|Function|PumpControl.FUN.1|Regulates pump speed|payload:cmd
//
// Edge lines use an arrow with the edge type inline:
//
//	- PumpControl.FUN.1 -io-> SpeedCmd.FLW.1
//
// Blank lines and lines without a +/- prefix are ignored as context, which
// lets producers interleave commentary with the diff.
package diff

import (
	"regexp"
	"sort"
	"strings"

	"archloom/loom/internal/model"
)

type section int

const (
	sectionNone section = iota
	sectionNodes
	sectionEdges
)

var edgeLineRe = regexp.MustCompile(`^(\S+)\s+-([A-Za-z_]+)->\s+(\S+)$`)

// Parse concatenates one or more diff blocks from a single producer turn and
// parses them into an ordered operation list.
func Parse(blocks ...string) ([]*Operation, error) {
	text := strings.Join(blocks, "\n")

	var ops []*Operation
	sec := sectionNone

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "##"):
			switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "##"))) {
			case "nodes":
				sec = sectionNodes
			case "edges":
				sec = sectionEdges
			}
			continue
		case !strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "-"):
			// Context line.
			continue
		}

		add := strings.HasPrefix(line, "+")
		body := strings.TrimSpace(line[1:])
		if body == "" {
			return nil, &ParseError{Line: lineNo, Text: raw, Why: "empty operation"}
		}

		switch sec {
		case sectionNodes:
			op, err := parseNodeLine(add, body, lineNo, raw)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		case sectionEdges:
			op, err := parseEdgeLine(add, body, lineNo, raw)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		default:
			return nil, &ParseError{Line: lineNo, Text: raw, Why: "operation outside a ## Nodes or ## Edges section"}
		}
	}

	return ops, nil
}

func parseNodeLine(add bool, body string, lineNo int, raw string) (*Operation, error) {
	fields := strings.Split(body, "|")
	if len(fields) < 3 {
		return nil, &ParseError{Line: lineNo, Text: raw, Why: "node line needs Name|Type|SemanticId"}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	nodeType, err := model.ParseNodeType(fields[1])
	if err != nil {
		return nil, &UnknownTypeError{Line: lineNo, Token: fields[1]}
	}
	if fields[0] == "" || fields[2] == "" {
		return nil, &ParseError{Line: lineNo, Text: raw, Why: "empty name or semantic id"}
	}

	op := &Operation{
		Kind:       OpAddNode,
		Line:       lineNo,
		Name:       fields[0],
		NodeType:   nodeType,
		SemanticID: fields[2],
	}
	if !add {
		op.Kind = OpRemoveNode
	}
	if len(fields) >= 4 {
		op.Description = fields[3]
	}
	if len(fields) >= 5 && fields[4] != "" {
		attrs, err := parseAttrs(fields[4])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: raw, Why: err.Error()}
		}
		op.Attrs = attrs
	}
	return op, nil
}

func parseEdgeLine(add bool, body string, lineNo int, raw string) (*Operation, error) {
	m := edgeLineRe.FindStringSubmatch(body)
	if m == nil {
		return nil, &ParseError{Line: lineNo, Text: raw, Why: "edge line needs SourceId -edgeType-> TargetId"}
	}
	edgeType, err := model.ParseEdgeType(m[2])
	if err != nil {
		return nil, &UnknownTypeError{Line: lineNo, Token: m[2]}
	}
	op := &Operation{
		Kind:      OpAddEdge,
		Line:      lineNo,
		SourceRef: m[1],
		TargetRef: m[3],
		EdgeType:  edgeType,
	}
	if !add {
		op.Kind = OpRemoveEdge
	}
	return op, nil
}

// parseAttrs reads a comma-separated key:value list, with or without the
// surrounding brackets some producers emit.
func parseAttrs(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	attrs := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, &attrError{pair}
		}
		attrs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return attrs, nil
}

type attrError struct{ pair string }

func (e *attrError) Error() string { return "attribute " + e.pair + " is not key:value" }

// Format serializes operations back into diff text. Node operations come
// first so a formatted diff re-parses into the same batch.
func Format(ops []*Operation) string {
	var nodes, edges []string
	for _, op := range ops {
		prefix := "+"
		if op.Kind == OpRemoveNode || op.Kind == OpRemoveEdge {
			prefix = "-"
		}
		switch {
		case op.IsNodeOp():
			line := prefix + " " + op.Name + "|" + string(op.NodeType) + "|" + op.SemanticID
			if op.Description != "" || len(op.Attrs) > 0 {
				line += "|" + op.Description
			}
			if len(op.Attrs) > 0 {
				keys := make([]string, 0, len(op.Attrs))
				for k := range op.Attrs {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				pairs := make([]string, len(keys))
				for i, k := range keys {
					pairs[i] = k + ":" + op.Attrs[k]
				}
				line += "|" + strings.Join(pairs, ",")
			}
			nodes = append(nodes, line)
		case op.IsEdgeOp():
			edges = append(edges, prefix+" "+op.SourceRef+" -"+string(op.EdgeType)+"-> "+op.TargetRef)
		}
	}

	var b strings.Builder
	b.WriteString("## Nodes\n")
	for _, l := range nodes {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("\n## Edges\n")
	for _, l := range edges {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
