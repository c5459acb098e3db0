package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
	"github.com/Rajchodisetti/quotedash/internal/api"
	"github.com/Rajchodisetti/quotedash/internal/chart"
	"github.com/Rajchodisetti/quotedash/internal/config"
	"github.com/Rajchodisetti/quotedash/internal/observ"
	"github.com/Rajchodisetti/quotedash/internal/store"
	"github.com/Rajchodisetti/quotedash/internal/watchlist"
)

type app struct {
	cfg    config.Root
	client *adapters.QuoteClient
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		offline    bool
	)

	root := &cobra.Command{
		Use:           "quotedash",
		Short:         "Stock quote dashboard with rate-limited live quotes and synthetic fallback",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", configPath, err)
				}
				cfg = loaded
			}
			if offline {
				cfg.Quotes.Source = "offline"
			}
			// keep stdout clean for command output; serve logs to stdout
			if cmd.Name() != "serve" {
				observ.SetOutput(os.Stderr)
			}
			observ.SetVersion(version)
			a.cfg = cfg
			a.client = newQuoteClient(cfg.Quotes)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults built in)")
	root.PersistentFlags().BoolVar(&offline, "offline", false, "never call the live source; serve synthetic quotes")

	root.AddCommand(
		newServeCmd(a),
		newQuoteCmd(a),
		newWatchCmd(a),
		newChartCmd(),
		newSearchCmd(),
		newVersionCmd(),
	)
	return root
}

func newQuoteClient(q config.Quotes) *adapters.QuoteClient {
	live := adapters.NewLiveSource(adapters.SourceConfig{
		Source:         q.Source,
		APIKeyEnv:      q.APIKeyEnv,
		BaseURL:        q.BaseURL,
		TimeoutSeconds: q.TimeoutSeconds,
	})
	return adapters.NewQuoteClient(
		live,
		adapters.NewRateLimiter(q.RateLimitInterval()),
		adapters.NewSyntheticGenerator(q.SyntheticVolatility, nil),
	)
}

// openWatchlist builds the main watchlist with its store and restores the
// saved symbols. The returned backend may be nil.
func (a *app) openWatchlist(ctx context.Context) (*watchlist.Watchlist, store.Backend, error) {
	backend, err := store.Open(ctx, store.Options{
		Kind:      a.cfg.Store.Kind,
		Path:      a.cfg.Store.Path,
		RedisAddr: a.cfg.Store.RedisAddr,
		RedisKey:  a.cfg.Store.RedisKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	wcfg := watchlist.Config{
		Name:          "watchlist",
		Interval:      a.cfg.Refresh.WatchlistInterval(),
		ManualRefresh: !a.cfg.Refresh.AutoRefreshEnabled(),
	}
	if backend != nil {
		wcfg.Store = backend
	}
	wl := watchlist.New(a.client, wcfg)
	if err := wl.Restore(ctx, a.cfg.Watchlist.DefaultSymbols); err != nil {
		if backend != nil {
			_ = backend.Close()
		}
		return nil, nil, err
	}
	return wl, backend, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the watchlist refresh loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			wl, backend, err := a.openWatchlist(ctx)
			if err != nil {
				return err
			}
			if backend != nil {
				defer backend.Close()
			}
			if err := wl.Start(ctx); err != nil {
				return err
			}
			defer wl.Stop()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			observ.Log("startup", map[string]any{
				"version":  version,
				"source":   a.cfg.Quotes.Source,
				"store":    a.cfg.Store.Kind,
				"symbols":  wl.Symbols(),
				"interval": a.cfg.Refresh.WatchlistInterval().String(),
			})
			srv := api.NewServer(ctx, wl, a.client, api.Options{DetailInterval: a.cfg.Refresh.DetailInterval()})
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Fetch one quote and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			q, err := a.client.GetQuote(ctx, args[0])
			if err != nil {
				if errors.Is(err, adapters.ErrSymbolNotFound) {
					return fmt.Errorf("no quote available: %w", err)
				}
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the watchlist loop and print a table per update",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			wl, backend, err := a.openWatchlist(ctx)
			if err != nil {
				return err
			}
			if backend != nil {
				defer backend.Close()
			}
			out := cmd.OutOrStdout()

			if once {
				wl.RefreshNow()
				wl.Wait()
				printSnapshot(out, wl.Snapshot())
				return nil
			}

			snaps, unsubscribe := wl.Subscribe()
			defer unsubscribe()
			if err := wl.Start(ctx); err != nil {
				return err
			}
			defer wl.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case snap := <-snaps:
					printSnapshot(out, snap)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "refresh once, print and exit")
	return cmd
}

func printSnapshot(out io.Writer, snap watchlist.Snapshot) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\n%s  v%d  %s\n", snap.Name, snap.Version, snap.UpdatedAt.Format(time.TimeOnly))
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE\tCHANGE%\tSOURCE\tSTATE")
	for _, e := range snap.Entries {
		if e.Quote == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s %s\n", e.Symbol, e.State, e.Error)
			continue
		}
		q := e.Quote
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\t%s\t%s\n",
			e.Symbol, q.Price.StringFixed(2), q.Change.StringFixed(2), q.ChangePercent.StringFixed(2), q.Source, e.State)
	}
	st := snap.Stats
	fmt.Fprintf(tw, "total %s\tgainers %d\tlosers %d\tvolatility %s%%\n",
		st.TotalValue.StringFixed(2), st.GainerCount, st.LoserCount, st.MeanVolatility.StringFixed(2))
	tw.Flush()
}

func newChartCmd() *cobra.Command {
	var timeframe string
	cmd := &cobra.Command{
		Use:   "chart SYMBOL",
		Short: "Print a synthetic price series for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := chart.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			symbol := adapters.NormalizeSymbol(args[0])
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for p := range chart.Series(chart.BasePrice(symbol, nil), tf, time.Now(), nil) {
				fmt.Fprintf(tw, "%s\t%s\n", p.Time.Format(time.DateTime), p.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&timeframe, "timeframe", "1D", "1D, 1W or 1M")
	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the known symbols",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q string
			if len(args) == 1 {
				q = args[0]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range adapters.Search(q) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Symbol, r.Name, r.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "quotedash", version)
		},
	}
}
