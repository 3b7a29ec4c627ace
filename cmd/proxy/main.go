package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"transit_feed_proxy/internal/cache"
	"transit_feed_proxy/internal/config"
	"transit_feed_proxy/internal/limits"
	"transit_feed_proxy/internal/obs"
	"transit_feed_proxy/internal/proxy"
	"transit_feed_proxy/internal/runtime"
	"transit_feed_proxy/internal/server"
	"transit_feed_proxy/internal/upstream"
)

const defaultListenAddr = ":8080"

func main() {
	var (
		flagConfig    = flag.String("config", "", "path to the resource config YAML")
		flagListen    = flag.String("listen", "", "listen address, overrides listen_addr from the config")
		flagPublicRef = flag.String("public-requestor-ref", "", "overrides public_requestor_ref from the config")
	)
	flag.Parse()

	configPath := *flagConfig
	if configPath == "" && flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}
	if configPath == "" {
		log.Fatalf("usage: %s -config <config.yaml>", os.Args[0])
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Fatalf("read config: %v", err)
	}
	cfg, err := config.ParseYAML(data)
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	if *flagListen != "" {
		cfg.ListenAddr = *flagListen
	}
	if *flagPublicRef != "" {
		cfg.PublicRequestorRef = *flagPublicRef
	}
	warnings, err := config.Validate(cfg)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("config warning: %s", warning)
	}

	snap, err := config.BuildSnapshot(cfg, "file")
	if err != nil {
		log.Fatalf("build snapshot: %v", err)
	}
	store := runtime.NewStore(snap)

	metrics := obs.NewMetrics()
	metrics.SetSnapshotInfo(snap.Version, snap.Source)

	limitConfig, err := limits.FromConfig(cfg.Limits)
	if err != nil {
		log.Fatalf("limits: %v", err)
	}

	client := upstream.NewClient(upstream.Config{})
	cacheLayer := cache.New(
		cache.NewMemoryStore(cache.MaxCachedBytes),
		cache.NewCoalescer(cache.DefaultMaxFlights),
	)
	inflight := runtime.NewInflightTracker()

	handler := &proxy.Handler{
		Resolver:           store,
		Cache:              cacheLayer,
		Upstream:           client,
		Metrics:            metrics,
		Inflight:           inflight,
		Allowlist:          cfg.Allowlist(),
		PublicRequestorRef: cfg.PublicRequestorRef,
		MaxSiriBodyBytes:   limitConfig.MaxSiriBodyBytes,
		SnapshotVersion: func() string {
			return store.Get().Version
		},
	}

	mux := http.NewServeMux()
	mux.Handle(proxy.ResourcePathPrefix, handler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":           "ok",
			"snapshot_version": store.Get().Version,
		})
	})

	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	srv, err := server.Start(mux, listenAddr, server.Options{
		Limits:    limitConfig,
		Shutdown:  shutdownFromConfig(cfg.Shutdown),
		Inflight:  inflight,
		CloseIdle: []func(){client.CloseIdleConnections},
	})
	if err != nil {
		log.Fatalf("start server: %v", err)
	}
	log.Printf("listening on %s snapshot=%s resources=%d", srv.Addr, snap.Version, len(snap.Resources))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)
		defer signal.Stop(reload)
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-reload:
				if err := reloadSnapshot(configPath, *flagPublicRef, store, metrics); err != nil {
					log.Printf("config reload failed, keeping current snapshot: %v", err)
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		return srv.Shutdown()
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	log.Printf("shutdown complete")
}

func reloadSnapshot(path, publicRefOverride string, store *runtime.Store, metrics *obs.Metrics) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, err := config.ParseYAML(data)
	if err != nil {
		return err
	}
	if publicRefOverride != "" {
		cfg.PublicRequestorRef = publicRefOverride
	}
	snap, err := config.BuildSnapshot(cfg, "file")
	if err != nil {
		return err
	}
	store.Swap(snap)
	metrics.SetSnapshotInfo(snap.Version, snap.Source)
	log.Printf("snapshot swapped version=%s resources=%d", snap.Version, len(snap.Resources))
	return nil
}

func shutdownFromConfig(cfg config.ShutdownConfig) runtime.ShutdownConfig {
	return runtime.ShutdownConfig{
		Drain:           time.Duration(cfg.DrainMS) * time.Millisecond,
		GracefulTimeout: time.Duration(cfg.GracefulTimeoutMS) * time.Millisecond,
		ForceClose:      time.Duration(cfg.ForceCloseMS) * time.Millisecond,
	}
}
