package extract

import (
	"regexp"
	"strings"
)

var (
	// - heading "Iration" [level=1] [ref=e3]
	namedNode = regexp.MustCompile(`^-\s*([\w/-]+)\s+"((?:[^"\\]|\\.)*)"`)
	// - generic [ref=e5]: May
	valuedNode = regexp.MustCompile(`^-\s*([^:\s]*)[^:]*?:\s+(.+)$`)
)

// Node is one line of a labeled-node dump.
type Node struct {
	Role  string // empty for bare text lines
	Value string // the node's text value, unquoted
	Depth int    // leading indentation in spaces
}

// ParseLine reads the role and text value of one dump line. Lines that are
// not list items yield their trimmed text as the value.
func ParseLine(line string) Node {
	trimmed := strings.TrimLeft(line, " \t")
	n := Node{Depth: len(line) - len(trimmed)}
	trimmed = strings.TrimSpace(trimmed)

	if !strings.HasPrefix(trimmed, "-") {
		n.Value = unquote(trimmed)
		return n
	}
	if m := namedNode.FindStringSubmatch(trimmed); m != nil {
		n.Role = m[1]
		n.Value = strings.ReplaceAll(m[2], `\"`, `"`)
		return n
	}
	if m := valuedNode.FindStringSubmatch(trimmed); m != nil {
		n.Role = m[1]
		n.Value = unquote(strings.TrimSpace(m[2]))
		return n
	}
	n.Role = strings.TrimSpace(strings.TrimRight(strings.TrimPrefix(trimmed, "-"), ":"))
	if i := strings.IndexAny(n.Role, " ["); i >= 0 {
		n.Role = n.Role[:i]
	}
	return n
}

// ParseDump splits a dump into nodes, one per line.
func ParseDump(dump string) []Node {
	lines := strings.Split(strings.ReplaceAll(dump, "\r\n", "\n"), "\n")
	nodes := make([]Node, len(lines))
	for i, l := range lines {
		nodes[i] = ParseLine(l)
	}
	return nodes
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}
