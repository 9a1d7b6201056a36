package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/wheelhouse/internal/config"
	"git.home.luguber.info/inful/wheelhouse/internal/index"
	"git.home.luguber.info/inful/wheelhouse/internal/pin"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"wheelhouse.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Index     IndexCmd     `cmd:"" help:"Synthesize the simple package index from the artifact directory"`
	Pin       PinCmd       `cmd:"" help:"Pin manifest dependencies to the exact versions of custom wheels"`
	Normalize NormalizeCmd `cmd:"" help:"Strip local version identifiers from wheel filenames"`
	Organize  OrganizeCmd  `cmd:"" help:"Bucket wheels by size for split hosting"`
	Verify    VerifyCmd    `cmd:"" help:"Verify that a built wheel's metadata carries exact pins"`
	Watch     WatchCmd     `cmd:"" help:"Rebuild the index continuously as the artifact directory changes"`
	Serve     ServeCmd     `cmd:"" help:"Serve the synthesized index over HTTP for local installs"`
	Publish   PublishCmd   `cmd:"" help:"Upload the synthesized index tree to an object store"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// indexOptions assembles synthesizer options from config with CLI overrides.
func indexOptions(cfg *config.Config, artifactDir, outputDir, baseURL string) index.Options {
	opts := index.DefaultOptions()
	opts.ArtifactDir = firstNonEmpty(artifactDir, cfg.ArtifactDir)
	opts.OutputDir = firstNonEmpty(outputDir, cfg.Index.OutputDir)
	opts.BaseURL = firstNonEmpty(baseURL, cfg.Index.BaseURL)
	if cfg.Index.AddDigests != nil {
		opts.AddDigests = *cfg.Index.AddDigests
	}
	if cfg.Index.AddRequiresPython != nil {
		opts.AddRequiresPython = *cfg.Index.AddRequiresPython
	}
	opts.PublicVersions = cfg.Index.PublicVersions
	opts.Title = cfg.Index.Title
	opts.BuildInfo = cfg.Index.BuildInfo
	return opts
}

// watchedPackages converts configured watch entries for the pinner.
func watchedPackages(cfg *config.Config) []pin.WatchedPackage {
	watched := make([]pin.WatchedPackage, 0, len(cfg.Pin.Watched))
	for _, w := range cfg.Pin.Watched {
		watched = append(watched, pin.WatchedPackage{Prefix: w.Prefix, Package: w.Package})
	}
	return watched
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
