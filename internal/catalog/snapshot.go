package catalog

import (
	"sort"

	"toolroute/internal/domain"
)

// Snapshot is an immutable view of the registered capabilities. Readers may
// hold a Snapshot for as long as they like; registration swaps in a new one.
type Snapshot struct {
	descriptors []domain.CapabilityDescriptor
	byID        map[string]int
}

func newSnapshot(descs []domain.CapabilityDescriptor) *Snapshot {
	s := &Snapshot{
		descriptors: descs,
		byID:        make(map[string]int, len(descs)),
	}
	for i, d := range descs {
		s.byID[d.ServerID] = i
	}
	return s
}

// Len returns the number of registered capabilities.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.descriptors)
}

// All returns a copy of every descriptor in registration order.
func (s *Snapshot) All() []domain.CapabilityDescriptor {
	if s == nil {
		return nil
	}
	out := make([]domain.CapabilityDescriptor, len(s.descriptors))
	for i, d := range s.descriptors {
		out[i] = d.Clone()
	}
	return out
}

// Get looks up a descriptor by server ID.
func (s *Snapshot) Get(serverID string) (domain.CapabilityDescriptor, bool) {
	if s == nil {
		return domain.CapabilityDescriptor{}, false
	}
	i, ok := s.byID[serverID]
	if !ok {
		return domain.CapabilityDescriptor{}, false
	}
	return s.descriptors[i].Clone(), true
}

// ByCategory returns the descriptors tagged with cat, in registration order.
func (s *Snapshot) ByCategory(cat domain.Category) []domain.CapabilityDescriptor {
	if s == nil {
		return nil
	}
	var out []domain.CapabilityDescriptor
	for _, d := range s.descriptors {
		if d.Category == cat {
			out = append(out, d.Clone())
		}
	}
	return out
}

// ToolNames returns the sorted, de-duplicated display names, server IDs and
// tool names of every capability. The planner uses them to spot steps that
// name a tool explicitly.
func (s *Snapshot) ToolNames() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		names = append(names, n)
	}
	for _, d := range s.descriptors {
		add(d.DisplayName)
		add(d.ServerID)
		for _, t := range d.Tools {
			add(t.Name)
		}
	}
	sort.Strings(names)
	return names
}
