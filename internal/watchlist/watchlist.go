// Package watchlist keeps the tracked symbols, refreshes their quotes on a
// fixed cadence and publishes snapshots with aggregate statistics.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
	"github.com/Rajchodisetti/quotedash/internal/observ"
)

const (
	DefaultInterval = 30 * time.Second
	DetailInterval  = 5 * time.Second
)

var (
	ErrEmptySymbol     = errors.New("empty symbol")
	ErrDuplicateSymbol = errors.New("symbol already on watchlist")
	ErrUnknownSymbol   = errors.New("symbol not on watchlist")
)

// QuoteFetcher is satisfied by *adapters.QuoteClient.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (*adapters.Quote, error)
}

// Store persists the symbol list. Quotes are never persisted.
type Store interface {
	LoadSymbols(ctx context.Context) ([]string, error)
	SaveSymbols(ctx context.Context, symbols []string) error
}

type Config struct {
	Name          string // used in logs and metric labels
	Interval      time.Duration
	ManualRefresh bool // start with auto refresh disabled
	Store         Store
}

// entry is the mutable per-symbol record. pending holds the sequence number
// of the fetch in flight, 0 when none.
type entry struct {
	symbol    string
	quote     *adapters.Quote
	state     FetchState
	err       string
	reason    string
	updatedAt time.Time
	pending   uint64
}

// Watchlist is the explicit state container behind the dashboard. All
// transitions happen under mu; quote fetches run outside it.
type Watchlist struct {
	name    string
	fetcher QuoteFetcher
	store   Store
	task    *Recurring

	mu          sync.Mutex
	order       []string
	entries     map[string]*entry
	seq         uint64
	version     uint64
	autoRefresh bool
	stopped     bool
	baseCtx     context.Context

	inflight sync.WaitGroup
	persist  sync.Mutex

	subMu    sync.Mutex
	subs     map[int]chan Snapshot
	nextSub  int
	lastSent uint64
}

func New(fetcher QuoteFetcher, cfg Config) *Watchlist {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Name == "" {
		cfg.Name = "watchlist"
	}
	w := &Watchlist{
		name:        cfg.Name,
		fetcher:     fetcher,
		store:       cfg.Store,
		entries:     make(map[string]*entry),
		autoRefresh: !cfg.ManualRefresh,
		baseCtx:     context.Background(),
		subs:        make(map[int]chan Snapshot),
	}
	w.task = NewRecurring(cfg.Interval, w.tick)
	return w
}

// NewDetailView tracks a single symbol on the faster detail cadence. A zero
// interval means DetailInterval.
func NewDetailView(fetcher QuoteFetcher, symbol string, interval time.Duration) (*Watchlist, error) {
	if interval <= 0 {
		interval = DetailInterval
	}
	w := New(fetcher, Config{Name: "detail", Interval: interval})
	if err := w.Add(symbol); err != nil {
		return nil, err
	}
	return w, nil
}

// Restore loads the persisted symbol list, falling back to defaults when the
// store is absent, empty or unreadable.
func (w *Watchlist) Restore(ctx context.Context, defaults []string) error {
	symbols := defaults
	if w.store != nil {
		saved, err := w.store.LoadSymbols(ctx)
		switch {
		case err != nil:
			observ.Log("watchlist_restore_failed", map[string]any{"name": w.name, "error": err.Error()})
		case len(saved) > 0:
			symbols = saved
		}
	}

	w.mu.Lock()
	for _, s := range symbols {
		s = adapters.NormalizeSymbol(s)
		if s == "" || w.entries[s] != nil {
			continue
		}
		w.entries[s] = &entry{symbol: s}
		w.order = append(w.order, s)
	}
	w.mu.Unlock()

	observ.Log("watchlist_restored", map[string]any{"name": w.name, "symbols": w.Symbols()})
	w.publish()
	return nil
}

// Add tracks a new symbol. It is fetched on the next tick.
func (w *Watchlist) Add(symbol string) error {
	symbol = adapters.NormalizeSymbol(symbol)
	if symbol == "" {
		return ErrEmptySymbol
	}
	w.mu.Lock()
	if _, ok := w.entries[symbol]; ok {
		w.mu.Unlock()
		return fmt.Errorf("%s: %w", symbol, ErrDuplicateSymbol)
	}
	w.entries[symbol] = &entry{symbol: symbol}
	w.order = append(w.order, symbol)
	w.mu.Unlock()

	observ.Log("watchlist_add", map[string]any{"name": w.name, "symbol": symbol})
	w.save()
	w.publish()
	return nil
}

// Remove drops a symbol and its quote. A fetch still in flight for it is
// discarded when it lands.
func (w *Watchlist) Remove(symbol string) error {
	symbol = adapters.NormalizeSymbol(symbol)
	w.mu.Lock()
	if _, ok := w.entries[symbol]; !ok {
		w.mu.Unlock()
		return fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	delete(w.entries, symbol)
	for i, s := range w.order {
		if s == symbol {
			w.order = append(w.order[:i:i], w.order[i+1:]...)
			break
		}
	}
	w.mu.Unlock()

	observ.Log("watchlist_remove", map[string]any{"name": w.name, "symbol": symbol})
	w.save()
	w.publish()
	return nil
}

func (w *Watchlist) Symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.order...)
}

func (w *Watchlist) Entry(symbol string) (Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[adapters.NormalizeSymbol(symbol)]
	if !ok {
		return Entry{}, false
	}
	return e.view(), true
}

// LastPrice reports the most recent quoted price for a tracked symbol.
func (w *Watchlist) LastPrice(symbol string) (decimal.Decimal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[adapters.NormalizeSymbol(symbol)]
	if !ok || e.quote == nil {
		return decimal.Decimal{}, false
	}
	return e.quote.Price, true
}

func (w *Watchlist) SetAutoRefresh(enabled bool) {
	w.mu.Lock()
	changed := w.autoRefresh != enabled
	w.autoRefresh = enabled
	w.mu.Unlock()
	if changed {
		observ.Log("watchlist_auto_refresh", map[string]any{"name": w.name, "enabled": enabled})
		w.publish()
	}
}

func (w *Watchlist) AutoRefresh() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.autoRefresh
}

// Start begins the recurring refresh. The first tick runs immediately.
func (w *Watchlist) Start(ctx context.Context) error {
	w.mu.Lock()
	w.stopped = false
	w.baseCtx = context.WithoutCancel(ctx)
	w.mu.Unlock()
	return w.task.Start(ctx)
}

// Stop cancels the schedule only. Fetches in flight run to completion and
// their results are dropped.
func (w *Watchlist) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.task.Stop()
}

// Wait blocks until every fetch dispatched so far has completed.
func (w *Watchlist) Wait() {
	w.inflight.Wait()
}

// RefreshNow fetches every symbol not already in flight, regardless of the
// auto refresh setting.
func (w *Watchlist) RefreshNow() {
	w.dispatch()
}

func (w *Watchlist) tick(context.Context) {
	if !w.AutoRefresh() {
		return
	}
	w.dispatch()
}

type job struct {
	symbol string
	seq    uint64
}

func (w *Watchlist) dispatch() {
	w.mu.Lock()
	var jobs []job
	for _, s := range w.order {
		e := w.entries[s]
		if e.state == InFlight {
			observ.IncCounter("watchlist_skip_in_flight_total", map[string]string{"watchlist": w.name})
			continue
		}
		w.seq++
		e.pending = w.seq
		e.state = InFlight
		jobs = append(jobs, job{symbol: s, seq: w.seq})
	}
	ctx := w.baseCtx
	w.inflight.Add(len(jobs))
	w.mu.Unlock()

	if len(jobs) == 0 {
		return
	}
	w.publish()
	for _, j := range jobs {
		go w.fetch(ctx, j)
	}
}

func (w *Watchlist) fetch(ctx context.Context, j job) {
	defer w.inflight.Done()
	quote, err := w.fetcher.GetQuote(ctx, j.symbol)
	w.complete(j, quote, err)
}

// complete applies a fetch result only if the entry still exists and is
// waiting for exactly this sequence number.
func (w *Watchlist) complete(j job, quote *adapters.Quote, err error) {
	w.mu.Lock()
	e, ok := w.entries[j.symbol]
	if !ok || e.pending != j.seq {
		w.mu.Unlock()
		observ.IncCounter("watchlist_stale_result_total", map[string]string{"watchlist": w.name})
		return
	}
	e.pending = 0
	if w.stopped {
		e.state = Idle
		w.mu.Unlock()
		observ.IncCounter("watchlist_stale_result_total", map[string]string{"watchlist": w.name})
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		e.state = Failed
		e.err = err.Error()
		e.reason = "error"
		var qe *adapters.QuoteError
		if errors.As(err, &qe) {
			e.reason = string(qe.Kind)
		}
	} else {
		e.state = Idle
		e.quote = quote
		e.err, e.reason = "", ""
	}
	e.updatedAt = time.Now()
	w.mu.Unlock()

	observ.IncCounter("watchlist_fetch_total", map[string]string{"watchlist": w.name, "outcome": outcome})
	if err != nil {
		observ.Log("watchlist_fetch_failed", map[string]any{"name": w.name, "symbol": j.symbol, "error": err.Error()})
	}
	w.publish()
}

func (w *Watchlist) save() {
	if w.store == nil {
		return
	}
	w.persist.Lock()
	defer w.persist.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.SaveSymbols(ctx, w.Symbols()); err != nil {
		observ.Log("watchlist_save_failed", map[string]any{"name": w.name, "error": err.Error()})
	}
}
