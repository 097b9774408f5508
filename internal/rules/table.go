package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"archloom/loom/internal/model"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Table is the declarative rule table driving the validator: which
// (source type, edge type, target type) combinations are allowed, and
// per-rule severity overrides.
type Table struct {
	Version      int                            `yaml:"version"`
	Combinations map[model.EdgeType][][2]string `yaml:"combinations"`
	Severities   map[string]Severity            `yaml:"severities"`

	allowed map[string]bool
}

// DefaultTable parses the embedded rule table.
func DefaultTable() *Table {
	t, err := parseTable(defaultRulesYAML)
	if err != nil {
		// The embedded table is part of the build; a parse failure here is
		// a programming error, not an input error.
		panic(fmt.Sprintf("embedded rule table invalid: %v", err))
	}
	return t
}

// LoadTable reads a rule table from a YAML file, for deployments that extend
// or restrict the defaults.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule table: %w", err)
	}
	t, err := parseTable(data)
	if err != nil {
		return nil, fmt.Errorf("parsing rule table %s: %w", path, err)
	}
	return t, nil
}

func parseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if len(t.Combinations) == 0 {
		return nil, fmt.Errorf("rule table has no combinations")
	}
	t.allowed = make(map[string]bool)
	for edgeType, pairs := range t.Combinations {
		if !edgeType.Valid() {
			return nil, fmt.Errorf("rule table references unknown edge type %q", edgeType)
		}
		for _, pair := range pairs {
			src, err := model.ParseNodeType(pair[0])
			if err != nil {
				return nil, err
			}
			dst, err := model.ParseNodeType(pair[1])
			if err != nil {
				return nil, err
			}
			t.allowed[comboKey(src, edgeType, dst)] = true
		}
	}
	return &t, nil
}

// Allows reports whether the table permits an edge of the given type between
// the given node types.
func (t *Table) Allows(src model.NodeType, et model.EdgeType, dst model.NodeType) bool {
	return t.allowed[comboKey(src, et, dst)]
}

// SeverityOf returns the configured severity for a rule id, defaulting to
// error.
func (t *Table) SeverityOf(ruleID string) Severity {
	if s, ok := t.Severities[ruleID]; ok {
		return s
	}
	return SeverityError
}

func comboKey(src model.NodeType, et model.EdgeType, dst model.NodeType) string {
	return string(src) + "|" + string(et) + "|" + string(dst)
}
