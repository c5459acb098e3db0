package api

import (
	"context"
	"sync"
	"time"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
	"github.com/Rajchodisetti/quotedash/internal/observ"
	"github.com/Rajchodisetti/quotedash/internal/watchlist"
)

type detailView struct {
	wl       *watchlist.Watchlist
	lastUsed time.Time
}

// DetailViews owns one single-symbol refresh loop per symbol being viewed.
// A view is started on first request and stopped once unused for idle.
type DetailViews struct {
	ctx      context.Context
	fetcher  watchlist.QuoteFetcher
	interval time.Duration
	idle     time.Duration
	now      func() time.Time

	mu    sync.Mutex
	views map[string]*detailView
}

func NewDetailViews(ctx context.Context, fetcher watchlist.QuoteFetcher, interval, idle time.Duration) *DetailViews {
	return &DetailViews{
		ctx:      ctx,
		fetcher:  fetcher,
		interval: interval,
		idle:     idle,
		now:      time.Now,
		views:    make(map[string]*detailView),
	}
}

// Get returns the symbol's entry once it holds a quote or has failed. A view
// that already has a quote answers immediately.
func (d *DetailViews) Get(ctx context.Context, symbol string) (watchlist.Entry, error) {
	symbol = adapters.NormalizeSymbol(symbol)
	if symbol == "" {
		return watchlist.Entry{}, adapters.NewInvalidSymbolError(symbol, "empty symbol")
	}
	wl, err := d.view(symbol)
	if err != nil {
		return watchlist.Entry{}, err
	}

	snaps, cancel := wl.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return watchlist.Entry{}, ctx.Err()
		case snap := <-snaps:
			for _, e := range snap.Entries {
				if e.Symbol == symbol && (e.Quote != nil || e.State == watchlist.Failed) {
					return e, nil
				}
			}
		}
	}
}

func (d *DetailViews) view(symbol string) (*watchlist.Watchlist, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.reapLocked(now)
	if v, ok := d.views[symbol]; ok {
		v.lastUsed = now
		return v.wl, nil
	}

	wl, err := watchlist.NewDetailView(d.fetcher, symbol, d.interval)
	if err != nil {
		return nil, err
	}
	if err := wl.Start(d.ctx); err != nil {
		return nil, err
	}
	d.views[symbol] = &detailView{wl: wl, lastUsed: now}
	observ.SetGauge("detail_views_active", float64(len(d.views)), nil)
	observ.Log("detail_view_started", map[string]any{"symbol": symbol, "interval_ms": d.interval.Milliseconds()})
	return wl, nil
}

func (d *DetailViews) reapLocked(now time.Time) {
	for sym, v := range d.views {
		if now.Sub(v.lastUsed) < d.idle {
			continue
		}
		v.wl.Stop()
		delete(d.views, sym)
		observ.Log("detail_view_stopped", map[string]any{"symbol": sym, "reason": "idle"})
	}
	observ.SetGauge("detail_views_active", float64(len(d.views)), nil)
}

// Active lists the symbols with a running detail view.
func (d *DetailViews) Active() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.views))
	for sym := range d.views {
		out = append(out, sym)
	}
	return out
}

func (d *DetailViews) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for sym, v := range d.views {
		v.wl.Stop()
		delete(d.views, sym)
	}
	observ.SetGauge("detail_views_active", 0, nil)
}
