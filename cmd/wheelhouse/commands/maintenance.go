package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/wheelhouse/internal/config"
	"git.home.luguber.info/inful/wheelhouse/internal/organize"
	"git.home.luguber.info/inful/wheelhouse/internal/wheelmeta"
)

// NormalizeCmd implements the 'normalize' command.
type NormalizeCmd struct {
	Dir       string `arg:"" optional:"" help:"Directory of wheels to normalize (defaults to configured artifact_dir)"`
	DryRun    bool   `help:"Show what would be renamed without renaming"`
	Recursive bool   `short:"r" help:"Recursively process subdirectories"`
}

func (n *NormalizeCmd) Run(_ *Global, root *CLI) error {
	dir := n.Dir
	if dir == "" {
		cfg, err := config.Load(root.Config)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir = cfg.ArtifactDir
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("directory not found: %s", dir)
	}

	stats, err := organize.NormalizeFilenames(dir, n.Recursive, n.DryRun)
	if err != nil {
		return err
	}

	slog.Info("Normalization complete",
		"total", stats.Total,
		"normalized", stats.Normalized,
		"unchanged", stats.Unchanged,
		"errors", stats.Errors)
	if stats.Errors > 0 {
		return fmt.Errorf("completed with %d error(s)", stats.Errors)
	}
	return nil
}

// OrganizeCmd implements the 'organize' command.
type OrganizeCmd struct {
	ArtifactDir string `short:"a" help:"Directory of wheel artifacts (overrides config)"`
	Output      string `short:"o" help:"Output directory for the bucketed tree (overrides config)"`
}

func (o *OrganizeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	result, err := organize.Run(organize.Options{
		ArtifactDir: firstNonEmpty(o.ArtifactDir, cfg.ArtifactDir),
		OutputDir:   firstNonEmpty(o.Output, cfg.Index.OutputDir),
		SizeLimit:   cfg.Index.SizeLimitMegabytes * 1024 * 1024,
		Now:         time.Now(),
	})
	if err != nil {
		return err
	}

	slog.Info("Wheels organized",
		"total", result.Total,
		"small", result.SmallCount,
		"large", result.LargeCount,
		"release_tag", result.ReleaseTag)
	return nil
}

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	Wheel string `arg:"" help:"Path to the built wheel to inspect"`
}

func (v *VerifyCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	watched := make([]string, 0, len(cfg.Pin.Watched))
	for _, w := range cfg.Pin.Watched {
		watched = append(watched, w.Package)
	}

	report, err := wheelmeta.Verify(v.Wheel, watched)
	if err != nil {
		return err
	}

	slog.Info("Analyzed wheel", "package", report.Meta.Name, "version", report.Meta.Version, "dependencies", len(report.Meta.RequiresDist))
	for _, dep := range report.Watched {
		if dep.Pinned {
			slog.Info("Watched dependency pinned", "dependency", dep.Name, "constraint", dep.Constraint)
		} else {
			slog.Error("Watched dependency NOT pinned", "dependency", dep.Name, "constraint", dep.Constraint)
		}
	}
	for _, dep := range report.Loose {
		slog.Debug("Loose constraint", "dependency", dep.Name, "constraint", dep.Constraint)
	}

	if len(report.Watched) == 0 {
		return fmt.Errorf("none of the watched packages appear in the wheel's dependencies")
	}
	if !report.AllPinned() {
		return fmt.Errorf("wheel has watched dependencies without exact pins")
	}
	slog.Info("All watched dependencies are exact-pinned")
	return nil
}

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	slog.Info("Initializing configuration", "path", root.Config, "force", i.Force)
	return config.Init(root.Config, i.Force)
}
