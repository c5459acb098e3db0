package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64   // name -> labelsKey -> count
	gauges   map[string]map[string]float64 // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

var reg = newRegistry()

func newRegistry() *registry {
	return &registry{
		counters: map[string]map[string]int64{},
		gauges:   map[string]map[string]float64{},
		hist:     map[string]map[string][]float64{},
	}
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1)
}

func IncCounterBy(name string, labels map[string]string, value int64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	m[canonLabels(labels)] += value
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.gauges[name]
	if !ok {
		m = map[string]float64{}
		reg.gauges[name] = m
	}
	m[canonLabels(labels)] = value
}

// maxSamples bounds each histogram series; older samples are dropped.
const maxSamples = 1024

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.hist[name]
	if !ok {
		m = map[string][]float64{}
		reg.hist[name] = m
	}
	k := canonLabels(labels)
	s := append(m[k], value)
	if len(s) > maxSamples {
		s = s[len(s)-maxSamples:]
	}
	m[k] = s
}

// RecordDuration records a duration metric in milliseconds
func RecordDuration(name string, d time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(d.Milliseconds()), labels)
}

// Counter returns the current value of a counter series.
func Counter(name string, labels map[string]string) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.counters[name][canonLabels(labels)]
}

// Gauge returns the current value of a gauge series.
func Gauge(name string, labels map[string]string) float64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.gauges[name][canonLabels(labels)]
}

// Reset clears every series. Tests only.
func Reset() {
	fresh := newRegistry()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.counters, reg.gauges, reg.hist = fresh.counters, fresh.gauges, fresh.hist
}

// Basic JSON dump for quick checks (not Prometheus format on purpose)
func Handler() http.Handler {
	type dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump{Counters: reg.counters, Gauges: reg.gauges, Hist: reg.hist})
	})
}

// HealthStatus summarizes whether quotes are coming from the live source.
type HealthStatus struct {
	Status    string        `json:"status"` // "healthy" | "degraded"
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Metrics   HealthMetrics `json:"metrics"`
}

type HealthMetrics struct {
	LiveQuotes      int64   `json:"live_quotes"`
	SyntheticQuotes int64   `json:"synthetic_quotes"`
	NotFound        int64   `json:"not_found"`
	FallbackRate    float64 `json:"fallback_rate"`
}

var (
	startTime = time.Now()
	version   = "dev" // set via build flags
)

func SetVersion(v string) {
	version = v
}

// Health reports "degraded" once more than half of all served quotes were
// synthetic. Degraded still answers 200: the dashboard keeps working.
func Health() HealthStatus {
	reg.mu.Lock()
	live := reg.counters["quote_fetch_total"][canonLabels(map[string]string{"source": "alphavantage"})]
	synth := reg.counters["quote_fetch_total"][canonLabels(map[string]string{"source": "synthetic"})]
	notFound := reg.counters["quote_not_found_total"][""]
	reg.mu.Unlock()

	hm := HealthMetrics{LiveQuotes: live, SyntheticQuotes: synth, NotFound: notFound}
	if total := live + synth; total > 0 {
		hm.FallbackRate = float64(synth) / float64(total)
	}
	status := "healthy"
	if hm.FallbackRate > 0.5 {
		status = "degraded"
	}
	return HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Version:   version,
		Metrics:   hm,
	}
}
