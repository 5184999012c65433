package catalog

import (
	"regexp"
	"strings"
)

const virtualPrefix = "[VIRTUAL]"

// clausePattern matches "<qty> x <name>" with an optional " for <price> <currency>" tail.
var clausePattern = regexp.MustCompile(`(?i)^\s*\d+\s*x\s+(.+?)(?:\s+for\s+-?\d+(?:\s+\S+)*)?\s*$`)

// ParseDevName extracts the item names listed in a shop entry's developer name,
// e.g. "[VIRTUAL]1 x Dynamite, 1 x Boom Box for 1500 MtxCurrency" yields
// ["Dynamite", "Boom Box"]. Clauses that do not fit the grammar are skipped.
func ParseDevName(devName string) []string {
	s := strings.TrimSpace(devName)
	if len(s) >= len(virtualPrefix) && strings.EqualFold(s[:len(virtualPrefix)], virtualPrefix) {
		s = s[len(virtualPrefix):]
	}
	if s == "" {
		return nil
	}

	var names []string
	for _, clause := range strings.Split(s, ",") {
		m := clausePattern.FindStringSubmatch(clause)
		if m == nil {
			continue
		}
		if name := strings.TrimSpace(m[1]); name != "" {
			names = append(names, name)
		}
	}
	return names
}
