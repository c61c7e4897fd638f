package cli

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/expiry-tracker/internal/async"
	"github.com/joseph-ayodele/expiry-tracker/internal/export"
	"github.com/joseph-ayodele/expiry-tracker/internal/ingest"
	"github.com/joseph-ayodele/expiry-tracker/internal/notify"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
	"github.com/joseph-ayodele/expiry-tracker/internal/server"
)

var (
	serveNoNotify bool
	serveDebounce time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC and HTTP APIs, folder watcher and daily digest",
	Long: `Serve starts:
- the gRPC API (expiry.v1.LabelService, expiry.v1.ProductService, health) on GRPC_ADDR
- the REST gateway for the web UI on HTTP_ADDR
- a watcher that scans new label photos dropped into INGEST_DIR
- the daily expiry digest at NOTIFY_AT

Example:
  DB_URL=postgres://... INGEST_DIR=~/labels expiry-tracker serve --owner me@example.com`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("grpc-addr", "", "gRPC listen address (overrides GRPC_ADDR)")
	serveCmd.Flags().String("http-addr", "", "HTTP listen address, empty string keeps HTTP_ADDR")
	serveCmd.Flags().String("watch", "", "label folder to watch (overrides INGEST_DIR)")
	serveCmd.Flags().BoolVar(&serveNoNotify, "no-notify", false, "do not run the daily digest")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", 500*time.Millisecond, "wait for writes to settle before scanning a new photo")

	_ = viper.BindPFlag("server.grpc_addr", serveCmd.Flags().Lookup("grpc-addr"))
	_ = viper.BindPFlag("server.http_addr", serveCmd.Flags().Lookup("http-addr"))
	_ = viper.BindPFlag("ingest.watch_dir", serveCmd.Flags().Lookup("watch"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	proc := a.processor()
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(3*time.Minute),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		queue.Shutdown(shutdownCtx)
	}()

	var bg sync.WaitGroup
	defer bg.Wait()

	if dir := cfg.Ingest.WatchDir; dir != "" {
		if cfg.Owner == "" {
			logger.Warn("folder watcher disabled: no owner configured", "dir", dir)
		} else {
			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       []string{dir},
				InitialScan: true,
				Debounce:    serveDebounce,
			}, logger)
			if err != nil {
				return err
			}
			bg.Add(1)
			go func() {
				defer bg.Done()
				ingest.Forward(ctx, events, errs, queue, cfg.Owner, logger)
			}()
		}
	}

	if !serveNoNotify {
		at, err := cfg.Notify.DailyAt()
		if err != nil {
			return err
		}
		sched := notify.NewScheduler(newNotifyJob(a), at, logger)
		bg.Add(1)
		go func() {
			defer bg.Done()
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notify scheduler stopped", "error", err)
			}
		}()
	}

	var idx pipeline.Indexer
	if a.index != nil {
		idx = a.index
	}
	products := server.NewProductService(a.products, cfg.Owner, logger,
		server.WithFinder(a.finder()),
		server.WithIndex(idx),
		server.WithClock(timeNow),
	)
	labels := server.NewLabelService(proc, queue, cfg.Owner, logger)

	gs, hs := server.NewGRPCServer(labels, products, logger)
	handler, err := server.NewHTTPHandler(server.HTTPConfig{
		Labels:       labels,
		Products:     products,
		Exporter:     export.NewService(a.products, logger),
		DefaultOwner: cfg.Owner,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Ready:        server.ReadyFunc(a.db, logger),
		Now:          timeNow,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("expiry-tracker starting", "version", version, "grpc_addr", cfg.Server.GRPCAddr, "http_addr", cfg.Server.HTTPAddr,
		"watch_dir", cfg.Ingest.WatchDir, "search", a.index != nil)
	err = server.NewServer(cfg.Server.GRPCAddr, gs, hs, cfg.Server.HTTPAddr, handler, logger).Run(ctx)
	stop()
	return err
}
