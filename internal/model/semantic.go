package model

import (
	"fmt"
	"strings"
)

// MintSemanticID derives a semantic id of the form Name.Abbrev.N, picking the
// smallest disambiguator not present in taken. Spaces in the name are
// collapsed so the id stays a single diff token.
func MintSemanticID(name string, t NodeType, taken map[string]bool) string {
	base := strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	if base == "" {
		base = "Unnamed"
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf("%s.%s.%d", base, t.Abbrev(), n)
		if !taken[id] {
			return id
		}
	}
}

// SplitSemanticID breaks a semantic id into its name, abbreviation, and
// disambiguator parts. Names may themselves contain dots, so the split is
// anchored on the last two separators.
func SplitSemanticID(id string) (name, abbrev, disambiguator string, err error) {
	parts := strings.Split(id, ".")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("malformed semantic id %q", id)
	}
	name = strings.Join(parts[:len(parts)-2], ".")
	abbrev = parts[len(parts)-2]
	disambiguator = parts[len(parts)-1]
	if _, ok := abbrevToType[abbrev]; !ok {
		return "", "", "", fmt.Errorf("semantic id %q has unknown type abbreviation %q", id, abbrev)
	}
	return name, abbrev, disambiguator, nil
}
