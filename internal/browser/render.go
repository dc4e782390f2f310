package browser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/accessibility"
)

// transparentRoles are rendered through: their children move up one level.
var transparentRoles = map[string]bool{
	"":                true,
	"RootWebArea":     true,
	"generic":         true,
	"none":            true,
	"presentation":    true,
	"InlineTextBox":   true,
	"LineBreak":       true,
	"LayoutTableCell": true,
}

// RenderAXTree renders accessibility nodes as an indented dump:
//
//	- heading "Upcoming Shows"
//	  - link "Get Tickets"
//	    - /url: https://example.com/t/1
//	  - text: "7:00 PM"
//
// Ignored and structural nodes are skipped but their children are kept.
func RenderAXTree(nodes []*accessibility.Node) string {
	byID := make(map[accessibility.NodeID]*accessibility.Node, len(nodes))
	for _, n := range nodes {
		if n != nil {
			byID[n.NodeID] = n
		}
	}

	var sb strings.Builder
	seen := make(map[accessibility.NodeID]bool, len(nodes))
	var walk func(n *accessibility.Node, depth int)
	walk = func(n *accessibility.Node, depth int) {
		if seen[n.NodeID] {
			return
		}
		seen[n.NodeID] = true

		childDepth := depth
		if line, ok := renderNode(n); ok {
			writeLine(&sb, depth, line)
			if href := property(n, accessibility.PropertyNameURL); href != "" && role(n) == "link" {
				writeLine(&sb, depth+1, "/url: "+href)
			}
			childDepth = depth + 1
		}
		for _, id := range n.ChildIDs {
			if child, ok := byID[id]; ok {
				walk(child, childDepth)
			}
		}
	}

	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, hasParent := byID[n.ParentID]; n.ParentID == "" || !hasParent {
			walk(n, 0)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderNode(n *accessibility.Node) (string, bool) {
	if n.Ignored {
		return "", false
	}
	r := role(n)
	name := strings.Join(strings.Fields(text(n.Name)), " ")
	switch {
	case r == "StaticText":
		if name == "" {
			return "", false
		}
		return "text: " + strconv.Quote(name), true
	case transparentRoles[r] && name == "":
		return "", false
	case transparentRoles[r]:
		return "text: " + strconv.Quote(name), true
	case name == "":
		return r, true
	default:
		return r + " " + strconv.Quote(name), true
	}
}

func writeLine(sb *strings.Builder, depth int, line string) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")
	sb.WriteString(line)
	sb.WriteByte('\n')
}

func role(n *accessibility.Node) string {
	return text(n.Role)
}

func property(n *accessibility.Node, name accessibility.PropertyName) string {
	for _, p := range n.Properties {
		if p != nil && p.Name == name {
			return text(p.Value)
		}
	}
	return ""
}

// text decodes an AX value; string-like values are JSON strings.
func text(v *accessibility.Value) string {
	if v == nil || len(v.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(v.Value), &s); err == nil {
		return s
	}
	return strings.Trim(string(v.Value), `"`)
}
