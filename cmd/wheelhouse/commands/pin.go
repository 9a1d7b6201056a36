package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/wheelhouse/internal/config"
	"git.home.luguber.info/inful/wheelhouse/internal/pin"
)

// PinCmd implements the 'pin' command.
type PinCmd struct {
	ArtifactDir string `short:"a" help:"Directory of custom wheel artifacts (overrides config)"`
	Manifest    string `short:"m" help:"Project manifest to rewrite (overrides config)"`
}

func (p *PinCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pinner := pin.NewPinner(pin.Options{
		ArtifactDir:  firstNonEmpty(p.ArtifactDir, cfg.ArtifactDir),
		ManifestPath: firstNonEmpty(p.Manifest, cfg.Pin.ManifestPath),
		Watched:      watchedPackages(cfg),
	})

	result, err := pinner.PinDependencies()
	if err != nil {
		return err
	}

	for _, status := range result.Packages {
		if status.Applied {
			slog.Info("Dependency pinned", "package", status.Package, "version", status.Version)
		} else {
			slog.Info("Dependency unmodified", "package", status.Package, "version", status.Version)
		}
	}
	slog.Info("Manifest patched", "modified", result.Modified, "backup", result.BackupPath)
	return nil
}
