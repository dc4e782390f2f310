package domain

import "strings"

// Category is the semantic class a capability or workflow step belongs to.
type Category string

const (
	CategoryLocation       Category = "location"
	CategoryLiveExtraction Category = "live_extraction"
	CategoryNewsSearch     Category = "news_search"
	CategoryOrchestration  Category = "orchestration"
	CategoryUnclassified   Category = "unclassified"
)

// AllCategories returns the classified categories in routing priority order.
func AllCategories() []Category {
	return []Category{
		CategoryLocation,
		CategoryLiveExtraction,
		CategoryNewsSearch,
		CategoryOrchestration,
	}
}

// ParseCategory maps loosely written category names onto a Category.
// Unknown values normalize to CategoryUnclassified.
func ParseCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "location", "maps", "geo":
		return CategoryLocation
	case "live_extraction", "liveextraction", "live", "browser", "extraction":
		return CategoryLiveExtraction
	case "news_search", "newssearch", "news", "search":
		return CategoryNewsSearch
	case "orchestration", "design", "synthesis":
		return CategoryOrchestration
	default:
		return CategoryUnclassified
	}
}

// String returns the string representation of a Category.
func (c Category) String() string {
	return string(c)
}

// ToolInfo describes one tool exposed by a capability server.
type ToolInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// CapabilityMetadata holds optional routing hints for a capability.
type CapabilityMetadata struct {
	Keywords []string          `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Domains  []string          `json:"domains,omitempty" yaml:"domains,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// CapabilityDescriptor is a registered tool server and the tools it exposes.
type CapabilityDescriptor struct {
	ServerID    string             `json:"serverId" yaml:"serverId"`
	DisplayName string             `json:"displayName" yaml:"displayName"`
	Tools       []ToolInfo         `json:"tools" yaml:"tools"`
	Category    Category           `json:"category" yaml:"category"`
	Metadata    CapabilityMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a deep copy so a snapshot never shares slices with its caller.
func (d CapabilityDescriptor) Clone() CapabilityDescriptor {
	out := d
	out.Tools = append([]ToolInfo(nil), d.Tools...)
	out.Metadata.Keywords = append([]string(nil), d.Metadata.Keywords...)
	out.Metadata.Domains = append([]string(nil), d.Metadata.Domains...)
	if d.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(d.Metadata.Extra))
		for k, v := range d.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

// CapabilityRef identifies one invocable (server, tool) pair.
type CapabilityRef struct {
	ServerID string `json:"serverId"`
	ToolName string `json:"toolName"`
}

func (r CapabilityRef) String() string {
	return r.ServerID + "/" + r.ToolName
}
