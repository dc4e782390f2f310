// Package router resolves a workflow step to the capabilities that can serve
// it, reading only the catalog's current snapshot.
package router

import (
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"toolroute/internal/catalog"
	"toolroute/internal/domain"
)

// DefaultOverrideEnv names the environment variable holding the operator's
// preferred capability ID.
const DefaultOverrideEnv = "TOOLROUTE_DEFAULT_CAPABILITY"

// SnapshotSource supplies the catalog snapshot to route against.
type SnapshotSource interface {
	Snapshot() *catalog.Snapshot
}

// Options configures a Router. Zero values fall back to the defaults below.
type Options struct {
	// Override returns the operator-preferred capability ID. It is called on
	// every routing call. When nil, OverrideEnv is read from the environment.
	Override    func() string
	OverrideEnv string

	BrowserMarkers []string // substrings marking a browser-automation capability
	SearchMarkers  []string // substrings marking a generic search capability
	FuzzyMinScore  int
	Logger         *slog.Logger
}

var (
	defaultBrowserMarkers = []string{"playwright", "browser", "puppeteer", "chromedp"}
	defaultSearchMarkers  = []string{"search", "serp", "brave", "google-search"}
)

// Router selects capabilities for workflow steps.
type Router struct {
	source         SnapshotSource
	override       func() string
	browserMarkers []string
	searchMarkers  []string
	fuzzyMinScore  int
	logger         *slog.Logger
}

// New creates a Router over source.
func New(source SnapshotSource, opts Options) *Router {
	r := &Router{
		source:         source,
		override:       opts.Override,
		browserMarkers: lowerAll(opts.BrowserMarkers),
		searchMarkers:  lowerAll(opts.SearchMarkers),
		fuzzyMinScore:  opts.FuzzyMinScore,
		logger:         opts.Logger,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if len(r.browserMarkers) == 0 {
		r.browserMarkers = defaultBrowserMarkers
	}
	if len(r.searchMarkers) == 0 {
		r.searchMarkers = defaultSearchMarkers
	}
	if r.override == nil {
		env := opts.OverrideEnv
		if env == "" {
			env = DefaultOverrideEnv
		}
		r.override = func() string { return os.Getenv(env) }
	}
	return r
}

// SelectForStep returns candidate (server, tool) pairs for step, best first.
// An empty result means no registered capability fits.
func (r *Router) SelectForStep(step domain.WorkflowStep) []domain.CapabilityRef {
	snap := r.source.Snapshot()
	if snap.Len() == 0 {
		return nil
	}
	all := snap.All()

	if d, ok := r.overrideCapability(all); ok {
		r.logger.Debug("route: operator override", "server", d.ServerID)
		return []domain.CapabilityRef{ref(d, step)}
	}

	site := siteMention(step.Text)
	pool := all
	if site != "" {
		// A named site is answered by visiting it, never by a generic search.
		pool = r.withoutSearch(all)
		if prefersBrowser(step.RequiredCategory) {
			if picked := r.browserFor(pool, site); len(picked) > 0 {
				r.logger.Debug("route: site mention", "site", site, "candidates", len(picked))
				return refs(picked, step)
			}
		}
	}

	if picked := byCategory(pool, step.RequiredCategory, step.ToolHint); len(picked) > 0 {
		r.logger.Debug("route: category", "category", step.RequiredCategory, "candidates", len(picked))
		return refs(picked, step)
	}

	if picked := r.byHint(pool, step); len(picked) > 0 {
		r.logger.Debug("route: hint", "hint", step.ToolHint, "candidates", len(picked))
		return refs(picked, step)
	}

	r.logger.Debug("route: no capability", "step", step.Index, "category", step.RequiredCategory)
	return nil
}

func (r *Router) overrideCapability(all []domain.CapabilityDescriptor) (domain.CapabilityDescriptor, bool) {
	id := strings.TrimSpace(r.override())
	if id == "" {
		return domain.CapabilityDescriptor{}, false
	}
	for _, d := range all {
		if d.ServerID == id {
			return d, true
		}
	}
	for _, d := range all {
		if strings.EqualFold(d.ServerID, id) || strings.EqualFold(d.DisplayName, id) {
			return d, true
		}
	}
	r.logger.Warn("default capability override not registered", "id", id)
	return domain.CapabilityDescriptor{}, false
}

func prefersBrowser(cat domain.Category) bool {
	switch cat {
	case domain.CategoryLiveExtraction, domain.CategoryNewsSearch, domain.CategoryUnclassified:
		return true
	}
	return false
}

// browserFor orders capabilities serving site: declared domain matches first,
// then browser-automation markers. Others are dropped.
func (r *Router) browserFor(pool []domain.CapabilityDescriptor, site string) []domain.CapabilityDescriptor {
	var declared, marked []domain.CapabilityDescriptor
	for _, d := range pool {
		switch {
		case servesDomain(d, site):
			declared = append(declared, d)
		case hasMarker(d, r.browserMarkers):
			marked = append(marked, d)
		}
	}
	return append(declared, marked...)
}

func (r *Router) withoutSearch(all []domain.CapabilityDescriptor) []domain.CapabilityDescriptor {
	out := make([]domain.CapabilityDescriptor, 0, len(all))
	for _, d := range all {
		if r.isGenericSearch(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// isGenericSearch reports whether d is a web search tool rather than a
// browser that can visit a named page.
func (r *Router) isGenericSearch(d domain.CapabilityDescriptor) bool {
	if hasMarker(d, r.browserMarkers) {
		return false
	}
	return d.Category == domain.CategoryNewsSearch || hasMarker(d, r.searchMarkers)
}

// byCategory returns exact category matches with hinted capabilities first.
func byCategory(pool []domain.CapabilityDescriptor, cat domain.Category, hint string) []domain.CapabilityDescriptor {
	var out []domain.CapabilityDescriptor
	for _, d := range pool {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	if hint != "" && len(out) > 1 {
		sort.SliceStable(out, func(i, j int) bool {
			return matchesHint(out[i], hint) && !matchesHint(out[j], hint)
		})
	}
	return out
}

// byHint matches the step's tool hint, then declared keywords, then a fuzzy
// match of the hint against capability names.
func (r *Router) byHint(pool []domain.CapabilityDescriptor, step domain.WorkflowStep) []domain.CapabilityDescriptor {
	var out []domain.CapabilityDescriptor
	if step.ToolHint != "" {
		for _, d := range pool {
			if matchesHint(d, step.ToolHint) {
				out = append(out, d)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	text := strings.ToLower(step.Text)
	for _, d := range pool {
		for _, kw := range d.Metadata.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
				out = append(out, d)
				break
			}
		}
	}
	if len(out) > 0 || step.ToolHint == "" {
		return out
	}

	src := nameSource(pool)
	seen := make(map[int]bool)
	for _, m := range fuzzy.FindFrom(strings.ToLower(step.ToolHint), src) {
		if m.Score < r.fuzzyMinScore {
			continue
		}
		i := src.owner[m.Index]
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, pool[i])
	}
	return out
}

func matchesHint(d domain.CapabilityDescriptor, hint string) bool {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return false
	}
	for _, name := range []string{d.ServerID, d.DisplayName} {
		n := strings.ToLower(name)
		if n == "" {
			continue
		}
		if strings.Contains(n, h) || strings.Contains(h, n) {
			return true
		}
	}
	for _, t := range d.Tools {
		if strings.EqualFold(t.Name, h) {
			return true
		}
	}
	return false
}

func hasMarker(d domain.CapabilityDescriptor, markers []string) bool {
	id := strings.ToLower(d.ServerID)
	name := strings.ToLower(d.DisplayName)
	for _, m := range markers {
		if strings.Contains(id, m) || strings.Contains(name, m) {
			return true
		}
	}
	return false
}

func servesDomain(d domain.CapabilityDescriptor, site string) bool {
	for _, dom := range d.Metadata.Domains {
		dom = strings.ToLower(strings.TrimSpace(dom))
		if dom == "" {
			continue
		}
		if strings.Contains(site, dom) || strings.Contains(dom, site) {
			return true
		}
		if label, _, _ := strings.Cut(dom, "."); len(label) >= 3 && strings.Contains(site, label) {
			return true
		}
	}
	return false
}

// fuzzyNames exposes capability IDs and display names to fuzzy.FindFrom.
type fuzzyNames struct {
	names []string
	owner []int // index into the pool per name
}

func nameSource(pool []domain.CapabilityDescriptor) fuzzyNames {
	var src fuzzyNames
	for i, d := range pool {
		src.names = append(src.names, strings.ToLower(d.ServerID))
		src.owner = append(src.owner, i)
		if d.DisplayName != "" && !strings.EqualFold(d.DisplayName, d.ServerID) {
			src.names = append(src.names, strings.ToLower(d.DisplayName))
			src.owner = append(src.owner, i)
		}
	}
	return src
}

func (s fuzzyNames) String(i int) string { return s.names[i] }
func (s fuzzyNames) Len() int            { return len(s.names) }

func refs(descs []domain.CapabilityDescriptor, step domain.WorkflowStep) []domain.CapabilityRef {
	out := make([]domain.CapabilityRef, 0, len(descs))
	for _, d := range descs {
		out = append(out, ref(d, step))
	}
	return out
}

func ref(d domain.CapabilityDescriptor, step domain.WorkflowStep) domain.CapabilityRef {
	return domain.CapabilityRef{ServerID: d.ServerID, ToolName: primaryTool(d, step)}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
