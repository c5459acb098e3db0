package watchlist

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
	"github.com/Rajchodisetti/quotedash/internal/observ"
)

// FetchState is the per-symbol refresh state.
type FetchState int

const (
	Idle FetchState = iota
	InFlight
	Failed
)

func (s FetchState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s FetchState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FetchState) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "idle":
		*s = Idle
	case "in_flight":
		*s = InFlight
	case "failed":
		*s = Failed
	default:
		return fmt.Errorf("unknown fetch state %q", b)
	}
	return nil
}

// Entry is a read-only view of one tracked symbol.
type Entry struct {
	Symbol    string          `json:"symbol"`
	Quote     *adapters.Quote `json:"quote"`
	State     FetchState      `json:"fetch_state"`
	Error     string          `json:"error,omitempty"`
	Reason    string          `json:"reason,omitempty"` // error kind when Failed
	UpdatedAt time.Time       `json:"updated_at"`
	Analysis  *Analysis       `json:"analysis,omitempty"`
}

func (e *entry) view() Entry {
	v := Entry{
		Symbol:    e.symbol,
		Quote:     e.quote,
		State:     e.state,
		Error:     e.err,
		Reason:    e.reason,
		UpdatedAt: e.updatedAt,
	}
	if e.quote != nil {
		a := Analyze(e.quote)
		v.Analysis = &a
	}
	return v
}

// Snapshot is the state handed to the presentation layer.
type Snapshot struct {
	Version     uint64    `json:"version"`
	Name        string    `json:"name"`
	Entries     []Entry   `json:"entries"`
	Stats       Stats     `json:"stats"`
	AutoRefresh bool      `json:"auto_refresh"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns the current entries in watchlist order with freshly
// computed stats.
func (w *Watchlist) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Watchlist) Stats() Stats {
	return w.Snapshot().Stats
}

func (w *Watchlist) snapshotLocked() Snapshot {
	w.version++
	entries := make([]Entry, 0, len(w.order))
	for _, s := range w.order {
		entries = append(entries, w.entries[s].view())
	}
	return Snapshot{
		Version:     w.version,
		Name:        w.name,
		Entries:     entries,
		Stats:       ComputeStats(entries),
		AutoRefresh: w.autoRefresh,
		UpdatedAt:   time.Now(),
	}
}

// Subscribe returns a channel that always holds the latest snapshot; slow
// readers miss intermediate versions, never the newest one. The current
// snapshot is delivered immediately.
func (w *Watchlist) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	snap := w.Snapshot()
	ch <- snap
	if snap.Version > w.lastSent {
		w.lastSent = snap.Version
	}
	w.subMu.Unlock()

	var once bool
	return ch, func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(w.subs, id)
		close(ch)
	}
}

func (w *Watchlist) publish() {
	snap := w.Snapshot()

	labels := map[string]string{"watchlist": w.name}
	observ.SetGauge("watchlist_symbols", float64(len(snap.Entries)), labels)
	total, _ := snap.Stats.TotalValue.Float64()
	observ.SetGauge("watchlist_total_value", total, labels)

	w.subMu.Lock()
	defer w.subMu.Unlock()
	if snap.Version <= w.lastSent {
		return
	}
	w.lastSent = snap.Version
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
