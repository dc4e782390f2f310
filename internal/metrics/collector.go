// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector for toolroute. It outputs text/plain in Prometheus exposition
// format without requiring the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector.
var Collector = NewMetricsCollector()

// series is one labelled time series of any kind.
type series interface {
	desc() *descriptor
	kind() string
	render(sb *strings.Builder)
}

// descriptor names a series. Series sharing a name share help text and type.
type descriptor struct {
	name   string
	help   string
	labels string
}

func (d *descriptor) desc() *descriptor { return d }

// id is the series identity used for lookups and persistence: name{labels}.
func (d *descriptor) id() string { return d.name + "{" + d.labels + "}" }

// sample formats the sample name for suffix with extra labels appended.
func (d *descriptor) sample(suffix, extra string) string {
	labels := d.labels
	if extra != "" {
		if labels != "" {
			labels += ","
		}
		labels += extra
	}
	if labels == "" {
		return d.name + suffix
	}
	return d.name + suffix + "{" + labels + "}"
}

// MetricsCollector holds every registered series.
type MetricsCollector struct {
	mu        sync.RWMutex
	series    map[string]series // kind + " " + name{labels}
	startTime time.Time
}

// NewMetricsCollector creates a new collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{series: make(map[string]series), startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	descriptor
	value atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }
func (c *Counter) kind() string { return "counter" }

func (c *Counter) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "%s %d\n", c.sample("", ""), c.Value())
}

// Gauge is a value that can go up and down.
type Gauge struct {
	descriptor
	value atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }
func (g *Gauge) kind() string { return "gauge" }

func (g *Gauge) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "%s %d\n", g.sample("", ""), g.Value())
}

// Histogram tracks the distribution of observed values over fixed buckets.
type Histogram struct {
	descriptor
	mu     sync.Mutex
	count  int64
	sum    float64
	bounds []float64
	counts []int64
}

// Observe records v in every bucket whose bound is at least v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.counts[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) kind() string { return "histogram" }

func (h *Histogram) render(sb *strings.Builder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, le := range h.bounds {
		bound := strconv.FormatFloat(le, 'g', -1, 64)
		if math.IsInf(le, 1) {
			bound = "+Inf"
		}
		fmt.Fprintf(sb, "%s %d\n", h.sample("_bucket", `le="`+bound+`"`), h.counts[i])
	}
	fmt.Fprintf(sb, "%s %d\n", h.sample("_count", ""), h.count)
	fmt.Fprintf(sb, "%s %s\n", h.sample("_sum", ""), strconv.FormatFloat(h.sum, 'f', -1, 64))
}

// lookup returns the series registered under kind and d, creating it with
// create on first use.
func (c *MetricsCollector) lookup(kind string, d descriptor, create func(descriptor) series) series {
	key := kind + " " + d.id()
	c.mu.RLock()
	s, ok := c.series[key]
	c.mu.RUnlock()
	if ok {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.series[key]; ok {
		return s
	}
	s = create(d)
	c.series[key] = s
	return s
}

// Counter returns or creates a counter with the given name and labels.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	return c.lookup("counter", descriptor{name, help, labels}, func(d descriptor) series {
		return &Counter{descriptor: d}
	}).(*Counter)
}

// Gauge returns or creates a gauge with the given name and labels.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	return c.lookup("gauge", descriptor{name, help, labels}, func(d descriptor) series {
		return &Gauge{descriptor: d}
	}).(*Gauge)
}

// Histogram returns or creates a histogram. buckets are only used when the
// histogram is first created.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	return c.lookup("histogram", descriptor{name, help, labels}, func(d descriptor) series {
		bounds := append([]float64(nil), buckets...)
		sort.Float64s(bounds)
		return &Histogram{descriptor: d, bounds: bounds, counts: make([]int64, len(bounds))}
	}).(*Histogram)
}

// sorted returns every series ordered by name, then labels.
func (c *MetricsCollector) sorted() []series {
	c.mu.RLock()
	out := make([]series, 0, len(c.series))
	for _, s := range c.series {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].desc(), out[j].desc()
		if a.name != b.name {
			return a.name < b.name
		}
		return a.labels < b.labels
	})
	return out
}

// Handler returns an http.HandlerFunc that renders metrics in Prometheus text format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		c.WriteText(w)
	}
}

// WriteText renders the uptime gauge followed by every series, with HELP and
// TYPE lines written once per metric name.
func (c *MetricsCollector) WriteText(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("# HELP toolroute_uptime_seconds Time since start in seconds\n")
	sb.WriteString("# TYPE toolroute_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "toolroute_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	last := ""
	for _, s := range c.sorted() {
		d := s.desc()
		if d.name != last {
			fmt.Fprintf(&sb, "\n# HELP %s %s\n# TYPE %s %s\n", d.name, d.help, d.name, s.kind())
			last = d.name
		}
		s.render(&sb)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Totals returns the value of every counter keyed by name{labels}.
func (c *MetricsCollector) Totals() map[string]int64 {
	out := make(map[string]int64)
	for _, s := range c.sorted() {
		if ctr, ok := s.(*Counter); ok {
			out[ctr.id()] = ctr.Value()
		}
	}
	return out
}

// Restore sets counters to previously persisted totals. Series the collector
// does not know are created with empty help text. It returns the number of
// counters restored.
func (c *MetricsCollector) Restore(totals map[string]int64) int {
	n := 0
	for id, v := range totals {
		name, labels, ok := splitID(id)
		if !ok || v < 0 {
			continue
		}
		help := c.helpFor(name)
		c.Counter(name, help, labels).value.Store(v)
		n++
	}
	return n
}

func (c *MetricsCollector) helpFor(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.series {
		if d := s.desc(); d.name == name && d.help != "" {
			return d.help
		}
	}
	return ""
}

// splitID parses name{labels}.
func splitID(id string) (name, labels string, ok bool) {
	i := strings.IndexByte(id, '{')
	if i <= 0 || !strings.HasSuffix(id, "}") {
		return "", "", false
	}
	return id[:i], id[i+1 : len(id)-1], true
}

// Delta returns how much each counter in now grew since base. Counters that
// did not change are omitted.
func Delta(now, base map[string]int64) map[string]int64 {
	out := make(map[string]int64)
	for id, v := range now {
		if d := v - base[id]; d > 0 {
			out[id] = d
		}
	}
	return out
}
