package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/wheelhouse/internal/config"
	"git.home.luguber.info/inful/wheelhouse/internal/digestcache"
	"git.home.luguber.info/inful/wheelhouse/internal/index"
)

// IndexCmd implements the 'index' command.
type IndexCmd struct {
	ArtifactDir string `short:"a" help:"Directory of wheel artifacts (overrides config)"`
	Output      string `short:"o" help:"Output directory for the generated index (overrides config)"`
	BaseURL     string `help:"Base URL hyperlink targets point at (overrides config)"`
	Timestamp   string `help:"Fixed build timestamp (RFC 3339) for reproducible output"`
}

func (i *IndexCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	opts := indexOptions(cfg, i.ArtifactDir, i.Output, i.BaseURL)
	if i.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, i.Timestamp)
		if err != nil {
			return fmt.Errorf("parse --timestamp: %w", err)
		}
		opts.Now = ts
	}
	if cfg.Index.ReleaseNotesPath != "" {
		notes, err := os.ReadFile(cfg.Index.ReleaseNotesPath)
		if err != nil {
			return fmt.Errorf("read release notes: %w", err)
		}
		opts.ReleaseNotes = notes
	}

	synthesizer := index.NewSynthesizer(opts)
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

	result, err := synthesizer.Synthesize()
	if err != nil {
		return err
	}

	slog.Info("Index synthesis complete",
		"packages", result.Packages,
		"wheels", result.Wheels,
		"skipped", len(result.Skipped),
		"output", result.OutputDir)
	for _, d := range result.Skipped {
		slog.Warn("Skipped artifact", "file", d.File, "error", d.Err)
	}
	return nil
}
