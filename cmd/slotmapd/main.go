// Command slotmapd runs a registry meta participant: it joins the leader
// election, maintains the slot table while leading, and serves the admin
// HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/slotmap"
	"github.com/arloliu/slotmap/internal/httpapi"
	"github.com/arloliu/slotmap/internal/logging"
)

type options struct {
	configPath string
	natsURL    string
	httpAddr   string
	nodeID     string
	logLevel   string
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("slotmapd", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config (defaults apply when empty)")
	fs.StringVar(&opts.natsURL, "nats", nats.DefaultURL, "NATS server URL")
	fs.StringVar(&opts.httpAddr, "http", ":8080", "admin HTTP listen address (empty disables it)")
	fs.StringVar(&opts.nodeID, "id", "", "node ID, overrides the config (random when both are empty)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	return opts, nil
}

func loadConfig(opts options) (slotmap.Config, error) {
	cfg := slotmap.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := slotmap.LoadConfig(opts.configPath)
		if err != nil {
			return slotmap.Config{}, err
		}
		cfg = loaded
	}

	if opts.nodeID != "" {
		cfg.NodeID = opts.nodeID
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options) error {
	logger := logging.NewSlogJSON(os.Stderr, opts.logLevel)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	nc, err := nats.Connect(opts.natsURL, nats.Name("slotmapd"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", opts.natsURL, err)
	}
	defer nc.Close()

	registry := prometheus.NewRegistry()
	coord, err := slotmap.NewCoordinator(cfg, nc,
		slotmap.WithLogger(logger),
		slotmap.WithMetrics(slotmap.NewPrometheusMetrics(registry, "")),
	)
	if err != nil {
		return err
	}

	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}
	logger.Info("coordinator started",
		"node_id", coord.NodeID(),
		"is_leader", coord.IsLeader(),
		"slots", cfg.SlotCount,
		"replicas", cfg.ReplicaCount,
	)

	var admin *httpapi.Server
	if opts.httpAddr != "" {
		admin = httpapi.NewServer(coord, httpapi.WithGatherer(registry), httpapi.WithLogger(logger))
		if err := admin.Start(opts.httpAddr); err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			_ = coord.Stop(stopCtx)

			return err
		}
	}

	<-ctx.Done()
	logger.Info("shutting down", "node_id", coord.NodeID())

	if admin != nil {
		if err := admin.Stop(); err != nil {
			logger.Warn("admin server shutdown failed", "error", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+time.Second)
	defer cancel()

	return coord.Stop(stopCtx)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "slotmapd: %v\n", err)
		stop()
		os.Exit(1)
	}
}
