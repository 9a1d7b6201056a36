package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/wheelhouse/internal/config"
	"git.home.luguber.info/inful/wheelhouse/internal/digestcache"
	"git.home.luguber.info/inful/wheelhouse/internal/index"
	"git.home.luguber.info/inful/wheelhouse/internal/metrics"
	"git.home.luguber.info/inful/wheelhouse/internal/notify"
	"git.home.luguber.info/inful/wheelhouse/internal/publish"
	"git.home.luguber.info/inful/wheelhouse/internal/server"
	"git.home.luguber.info/inful/wheelhouse/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	ArtifactDir string `short:"a" help:"Directory of wheel artifacts (overrides config)"`
	Output      string `short:"o" help:"Output directory for the generated index (overrides config)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := indexOptions(cfg, w.ArtifactDir, w.Output, "")
	if cfg.Index.ReleaseNotesPath != "" {
		notes, err := os.ReadFile(cfg.Index.ReleaseNotesPath)
		if err != nil {
			return fmt.Errorf("read release notes: %w", err)
		}
		opts.ReleaseNotes = notes
	}

	registry := prom.NewRegistry()
	synthesizer := index.NewSynthesizer(opts).
		SetRecorder(metrics.NewPrometheusRecorder(registry))

	if cfg.Index.DigestCachePath != "" {
		cache, err := digestcache.Open(cfg.Index.DigestCachePath)
		if err != nil {
			slog.Warn("Digest cache unavailable, hashing directly", "path", cfg.Index.DigestCachePath, "error", err)
		} else {
			defer func() {
				_ = cache.Close()
			}()
			synthesizer.SetDigestCache(cache)
		}
	}

	var publisher *notify.Publisher
	if cfg.Watch.NATSURL != "" {
		publisher, err = notify.NewPublisher(cfg.Watch.NATSURL, cfg.Watch.NATSSubject)
		if err != nil {
			return fmt.Errorf("create rebuild notifier: %w", err)
		}
		defer publisher.Close()
	}

	watcher, err := watch.NewWatcher(watch.Options{
		ArtifactDir:    opts.ArtifactDir,
		Debounce:       cfg.Watch.Debounce,
		ResyncInterval: cfg.Watch.ResyncInterval,
	}, synthesizer, publisher)
	if err != nil {
		return err
	}

	// Metrics are exposed alongside the index while watching.
	srv := server.New(server.Options{
		Addr:     cfg.Serve.Addr,
		SiteDir:  opts.OutputDir,
		Registry: registry,
	})
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe(ctx)
	}()

	slog.Info("Watch mode started, waiting for shutdown signal...")
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	return <-errChan
}

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
	Dir  string `short:"d" help:"Synthesized index tree to serve (overrides config output dir)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	siteDir := firstNonEmpty(s.Dir, cfg.Index.OutputDir)
	if _, err := os.Stat(siteDir); err != nil {
		return fmt.Errorf("index tree not found at %s; run 'wheelhouse index' first", siteDir)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(server.Options{
		Addr:     firstNonEmpty(s.Addr, cfg.Serve.Addr),
		SiteDir:  siteDir,
		Registry: prom.NewRegistry(),
	})
	return srv.ListenAndServe(ctx)
}

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Dir string `short:"d" help:"Synthesized index tree to upload (overrides config output dir)"`
}

func (p *PublishCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	useSSL := true
	if cfg.Publish.UseSSL != nil {
		useSSL = *cfg.Publish.UseSSL
	}

	publisher, err := publish.NewPublisher(publish.Options{
		Endpoint:  cfg.Publish.Endpoint,
		AccessKey: cfg.Publish.AccessKey,
		SecretKey: cfg.Publish.SecretKey,
		Bucket:    cfg.Publish.Bucket,
		Prefix:    cfg.Publish.Prefix,
		UseSSL:    useSSL,
		SiteDir:   firstNonEmpty(p.Dir, cfg.Index.OutputDir),
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := publisher.Sync(ctx)
	if err != nil {
		return err
	}
	slog.Info("Index published", "objects", result.Uploaded, "bytes", result.Bytes)
	return nil
}
