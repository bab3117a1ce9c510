package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/metrics"
	"github.com/aidanlsb/wlh/internal/scheduler"
	"github.com/aidanlsb/wlh/internal/ui"
	"github.com/aidanlsb/wlh/internal/watcher"
)

const (
	metricsMaxConns  = 16
	shutdownTimeout  = 5 * time.Second
	metricsReadLimit = 10 * time.Second
)

var (
	serveWatch       bool
	serveMetricsAddr string
	serveNoSync      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic drain, and optionally watch the content directory",
	Long: `Runs in the foreground until interrupted.

The pending queue is drained on the interval stored by 'wlh init'
(cron_interval in wlh.toml). With --watch, changed content files are synced
as they are written, so their links update on the next drain.

With --metrics-addr (or metrics_addr in wlh.toml) Prometheus metrics are
served at /metrics.

serve holds the site lock; other mutating commands fail while it runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Sync content files as they change")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (host:port)")
	serveCmd.Flags().BoolVar(&serveNoSync, "no-sync", false, "Skip the content sync at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveMetricsAddr
	if addr == "" {
		addr = getConfig().MetricsAddr
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := openSite(siteOptions{lock: true, registry: registry})
	if err != nil {
		return err
	}
	defer s.close()
	if err := s.requireInstalled(); err != nil {
		return err
	}

	interval := s.engine.Interval()
	if entry, ok, err := s.schedule.Lookup(engine.ScheduleName); err != nil {
		return handleError(ErrDatabaseError, err, "")
	} else if ok && entry.Interval() > 0 {
		interval = entry.Interval()
	} else if !ok {
		s.log.Warn("no drain schedule registered; using the configured interval", "interval", interval)
	}

	serialized := engine.NewSerialized(s.engine)
	syncer := s.syncer()

	if !serveNoSync {
		if err := serialized.Do(func(*engine.Engine) error {
			report, err := syncer.SyncAll(false)
			if err != nil {
				return err
			}
			for _, fe := range report.Errors {
				s.log.Warn("content file not synced", "path", fe.Path, "error", fe.Error)
			}
			s.record(s.history.LogIDs(audit.OpDelete, idsToInt64(report.Deleted)))
			s.log.Info("synced content", "saved", len(report.Saved), "deleted", len(report.Deleted), "unchanged", report.Unchanged)
			return nil
		}); err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	ticker := &scheduler.Ticker{
		Name:     engine.ScheduleName,
		Interval: interval,
		Logger:   s.log,
		Task: func(context.Context) error {
			report, err := serialized.Drain()
			if err != nil {
				return err
			}
			s.recordDrain(report)
			return nil
		},
	}
	g.Go(func() error { return ticker.Run(ctx) })

	if serveWatch {
		w, err := watcher.New(watcher.Config{
			Root:   syncer.Root(),
			Logger: s.log,
			OnChange: func(path string) error {
				return serialized.Do(func(*engine.Engine) error {
					_, _, err := syncer.SyncFile(path)
					return err
				})
			},
			OnRemove: func(path string) error {
				return serialized.Do(func(*engine.Engine) error {
					id, existed, err := syncer.RemoveFile(path)
					if err == nil && existed {
						s.record(s.history.LogIDs(audit.OpDelete, []int64{int64(id)}))
					}
					return err
				})
			},
		})
		if err != nil {
			return handleError(ErrInternal, err, "")
		}
		g.Go(func() error { return w.Start(ctx) })
	}

	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return handleError(ErrInvalidInput, fmt.Errorf("failed to listen on %s: %w", addr, err), "")
		}
		srv := newMetricsServer(registry)
		g.Go(func() error {
			if err := srv.Serve(netutil.LimitListener(ln, metricsMaxConns)); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		s.log.Info("serving metrics", "addr", ln.Addr().String())
	}

	if !isJSONOutput() {
		fmt.Fprintln(os.Stderr, ui.Infof("Draining every %s%s. Press Ctrl+C to stop.", interval, watchSuffix()))
	}
	s.log.Info("serve started", "site", s.path, "interval", interval, "watch", serveWatch)

	if err := g.Wait(); err != nil {
		return handleError(ErrInternal, err, "")
	}
	s.log.Info("serve stopped")
	if isJSONOutput() {
		outputSuccess(map[string]interface{}{"stopped": true}, nil)
	}
	return nil
}

func newMetricsServer(g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadLimit}
}

func watchSuffix() string {
	if serveWatch {
		return " and watching for changes"
	}
	return ""
}
