package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"eventcal/internal/capture"
	"eventcal/internal/catalog"
	"eventcal/internal/clock"
	"eventcal/internal/config"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	contentDir string
	once       bool
	snapshot   string
}

func main() {
	appLog.Info("eventcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file when set.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.contentDir != "" {
		conf.ContentDir = flags.contentDir
	}

	if lvl, err := appLog.ParseLevel(conf.LogLevel); err != nil {
		appLog.Warn("unknown log level, keeping info", "log_level", conf.LogLevel)
	} else {
		appLog.SetLevel(lvl)
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"content_dir", conf.ContentDir,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	loader := &catalog.Loader{
		ContentDir: conf.ContentDir,
		Fetcher:    ics.NewFetcher(filepath.Join(conf.CacheDir, "ics"), nil),
		Sources:    icsSources(conf),
	}
	store := catalog.NewStore()
	clk := clock.SystemClock{}
	refresher := catalog.NewRefresher(store, loader.Load, clk, loc)

	if err := refresher.Refresh(ctx); err != nil {
		if flags.once {
			os.Exit(1)
		}
		appLog.Warn("serving with an incomplete catalog", "err", err)
	}
	if flags.once {
		appLog.Info("catalog is valid", "events", len(store.Current().Events))
		return
	}

	if err := refresher.Start(ctx, conf.RefreshCron); err != nil {
		appLog.Error("failed to schedule refresh", err)
		os.Exit(1)
	}
	defer refresher.Stop()

	server, err := web.NewServer(conf, store, clk)
	if err != nil {
		appLog.Error("failed to build HTTP server", err)
		os.Exit(1)
	}

	if flags.snapshot != "" {
		if err := runSnapshot(ctx, cancel, server, conf, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "path", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	if err := server.StartServer(ctx); err != nil {
		appLog.Error("HTTP server stopped", err)
		os.Exit(1)
	}
	appLog.Info("eventcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.contentDir, "content", "", "Event content directory (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load and validate the catalog, then exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Serve, write a PNG of /calendar to this path, then exit")

	flag.Parse()

	return cfg
}

// icsSources builds the subscription list. A source without an ID uses its
// name, or its position in the list.
func icsSources(conf *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(conf.ICS))
	for i, src := range conf.ICS {
		if src.URL == "" {
			continue
		}
		id := src.ID
		if id == "" {
			id = src.Name
		}
		if id == "" {
			id = fmt.Sprintf("ics%d", i+1)
		}
		sources = append(sources, ics.Source{ID: id, URL: src.URL})
	}
	return sources
}

// runSnapshot serves in the background until /health answers, captures
// /calendar and stops the server.
func runSnapshot(ctx context.Context, cancel context.CancelFunc, server *web.Server, conf *config.Config, path string) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.StartServer(ctx) }()

	base := "http://" + conf.Listen
	if err := waitHealthy(ctx, base+"/health", 10*time.Second); err != nil {
		cancel()
		return errors.Join(err, <-serveErr)
	}

	err := capture.CaptureCalendarPNG(ctx, capture.Options{
		URL:        base + "/calendar",
		OutputPath: path,
		Username:   conf.BasicAuth.Username,
		Password:   conf.BasicAuth.Password,
	})
	cancel()
	return errors.Join(err, <-serveErr)
}

func waitHealthy(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server at %s not healthy after %s", url, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
