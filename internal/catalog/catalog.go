// Package catalog owns the set of registered capability descriptors.
//
// Reads are lock-free: callers load the current *Snapshot through an atomic
// pointer. Writers build a fresh snapshot and swap it in, serialized by a
// mutex, so no reader ever observes a partially applied registration.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"toolroute/internal/domain"
)

// ErrInvalidDescriptor is returned for descriptors that cannot be routed to.
var ErrInvalidDescriptor = errors.New("invalid capability descriptor")

// Catalog holds the active capability snapshot.
type Catalog struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes writers
	logger  *slog.Logger
}

// New creates an empty catalog.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{logger: logger}
	c.current.Store(newSnapshot(nil))
	return c
}

// Snapshot returns the current snapshot. It never returns nil.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Register replaces the whole catalog with descs. Invalid descriptors are
// skipped and reported in the returned error; valid ones are still
// registered. A later descriptor with the same server ID wins.
func (c *Catalog) Register(descs []domain.CapabilityDescriptor) error {
	valid, errs := normalizeAll(descs)

	c.mu.Lock()
	c.current.Store(newSnapshot(dedupe(valid)))
	c.mu.Unlock()

	c.logger.Info("capabilities registered", "count", len(valid), "rejected", len(errs))
	return errors.Join(errs...)
}

// Upsert adds d or replaces the descriptor with the same server ID.
func (c *Catalog) Upsert(d domain.CapabilityDescriptor) error {
	nd, err := Normalize(d)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	next := make([]domain.CapabilityDescriptor, 0, prev.Len()+1)
	replaced := false
	for _, existing := range prev.descriptors {
		if existing.ServerID == nd.ServerID {
			next = append(next, nd)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, nd)
	}
	c.current.Store(newSnapshot(next))

	c.logger.Debug("capability upserted", "server", nd.ServerID, "replaced", replaced)
	return nil
}

// Remove drops the descriptor with serverID. It reports whether one existed.
func (c *Catalog) Remove(serverID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	if _, ok := prev.byID[serverID]; !ok {
		return false
	}
	next := make([]domain.CapabilityDescriptor, 0, prev.Len()-1)
	for _, d := range prev.descriptors {
		if d.ServerID != serverID {
			next = append(next, d)
		}
	}
	c.current.Store(newSnapshot(next))

	c.logger.Debug("capability removed", "server", serverID)
	return true
}

// Normalize validates d and returns a deep copy with trimmed identifiers, a
// display name and a known category.
func Normalize(d domain.CapabilityDescriptor) (domain.CapabilityDescriptor, error) {
	out := d.Clone()
	out.ServerID = strings.TrimSpace(out.ServerID)
	if out.ServerID == "" {
		return domain.CapabilityDescriptor{}, fmt.Errorf("%w: empty server id", ErrInvalidDescriptor)
	}

	tools := out.Tools[:0]
	for _, t := range out.Tools {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			continue
		}
		tools = append(tools, t)
	}
	if len(tools) == 0 {
		return domain.CapabilityDescriptor{}, fmt.Errorf("%w: %s exposes no tools", ErrInvalidDescriptor, out.ServerID)
	}
	out.Tools = tools

	out.DisplayName = strings.TrimSpace(out.DisplayName)
	if out.DisplayName == "" {
		out.DisplayName = out.ServerID
	}
	out.Category = domain.ParseCategory(string(out.Category))
	return out, nil
}

func normalizeAll(descs []domain.CapabilityDescriptor) ([]domain.CapabilityDescriptor, []error) {
	valid := make([]domain.CapabilityDescriptor, 0, len(descs))
	var errs []error
	for _, d := range descs {
		nd, err := Normalize(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, nd)
	}
	return valid, errs
}

// dedupe keeps the last descriptor per server ID at the position of the first.
func dedupe(descs []domain.CapabilityDescriptor) []domain.CapabilityDescriptor {
	idx := make(map[string]int, len(descs))
	out := make([]domain.CapabilityDescriptor, 0, len(descs))
	for _, d := range descs {
		if i, ok := idx[d.ServerID]; ok {
			out[i] = d
			continue
		}
		idx[d.ServerID] = len(out)
		out = append(out, d)
	}
	return out
}
