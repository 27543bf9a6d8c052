// Package metrics provides a small Prometheus-compatible metrics registry
// for the relay. It renders the text exposition format directly.
package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default is the process-wide registry the relay records into.
var Default = NewRegistry()

// Registry holds counters, gauges and histograms keyed by name and labels.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	started    time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		started:    time.Now(),
	}
}

// Uptime returns how long the registry has existed.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.started)
}

type series struct {
	name   string
	help   string
	labels string
}

func (s series) key() string { return s.name + "{" + s.labels + "}" }

// Counter is a monotonically increasing counter.
type Counter struct {
	series
	value atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	series
	value atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks a distribution over fixed cumulative buckets.
type Histogram struct {
	series
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// ObserveSince records the seconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Counter returns the counter for name and labels, creating it on first use.
func (r *Registry) Counter(name, help, labels string) *Counter {
	s := series{name: name, help: help, labels: labels}
	r.mu.RLock()
	c, ok := r.counters[s.key()]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[s.key()]; ok {
		return c
	}
	c = &Counter{series: s}
	r.counters[s.key()] = c
	return c
}

// Gauge returns the gauge for name and labels, creating it on first use.
func (r *Registry) Gauge(name, help, labels string) *Gauge {
	s := series{name: name, help: help, labels: labels}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[s.key()]; ok {
		return g
	}
	g := &Gauge{series: s}
	r.gauges[s.key()] = g
	return g
}

// Histogram returns the histogram for name and labels, creating it on first use.
// Bounds are only read on creation.
func (r *Registry) Histogram(name, help, labels string, bounds []float64) *Histogram {
	s := series{name: name, help: help, labels: labels}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[s.key()]; ok {
		return h
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	h := &Histogram{series: s, bounds: sorted, buckets: make([]int64, len(sorted))}
	r.histograms[s.key()] = h
	return h
}

// WriteText renders every series in Prometheus text format, sorted by key.
func (r *Registry) WriteText(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP geminibot_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE geminibot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "geminibot_uptime_seconds %d\n", int64(r.Uptime().Seconds()))

	r.mu.RLock()
	counters := sortedValues(r.counters)
	gauges := sortedValues(r.gauges)
	histograms := sortedValues(r.histograms)
	r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, c := range counters {
		writeHeader(&sb, seen, c.series, "counter")
		fmt.Fprintf(&sb, "%s %d\n", c.sample(c.name), c.Value())
	}
	for _, g := range gauges {
		writeHeader(&sb, seen, g.series, "gauge")
		fmt.Fprintf(&sb, "%s %d\n", g.sample(g.name), g.Value())
	}
	for _, h := range histograms {
		writeHeader(&sb, seen, h.series, "histogram")
		h.mu.Lock()
		for i, le := range h.bounds {
			fmt.Fprintf(&sb, "%s %d\n", h.bucketSample(formatBound(le)), h.buckets[i])
		}
		fmt.Fprintf(&sb, "%s %d\n", h.bucketSample("+Inf"), h.count)
		fmt.Fprintf(&sb, "%s %d\n", h.sample(h.name+"_count"), h.count)
		fmt.Fprintf(&sb, "%s %f\n", h.sample(h.name+"_sum"), h.sum)
		h.mu.Unlock()
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (s series) sample(name string) string {
	if s.labels == "" {
		return name
	}
	return name + "{" + s.labels + "}"
}

func (s series) bucketSample(le string) string {
	labels := `le="` + le + `"`
	if s.labels != "" {
		labels = s.labels + "," + labels
	}
	return s.name + "_bucket{" + labels + "}"
}

func writeHeader(sb *strings.Builder, seen map[string]bool, s series, typ string) {
	if seen[s.name] {
		return
	}
	seen[s.name] = true
	fmt.Fprintf(sb, "# HELP %s %s\n", s.name, s.help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", s.name, typ)
}

func formatBound(le float64) string {
	if math.IsInf(le, 1) {
		return "+Inf"
	}
	return fmt.Sprintf("%g", le)
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// --- Relay metrics ---

var (
	MessagesTotal   = Default.Counter("geminibot_messages_total", "Inbound messages seen by the relay", "")
	MessagesIgnored = Default.Counter("geminibot_messages_ignored_total", "Inbound messages skipped because the author is a bot", "")
	InFlight        = Default.Gauge("geminibot_messages_in_flight", "Messages currently being handled", "")

	GenerationLatency = Default.Histogram("geminibot_generation_latency_seconds", "Gemini generateContent latency in seconds", "",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120})
)

// Delivered counts successful sends by delivery kind ("inline" or "file").
func Delivered(kind string) *Counter {
	return Default.Counter("geminibot_deliveries_total", "Responses delivered to the channel", `kind="`+kind+`"`)
}

// Failed counts per-message failures by error kind.
func Failed(kind string) *Counter {
	return Default.Counter("geminibot_failures_total", "Per-message failures by kind", `kind="`+kind+`"`)
}
