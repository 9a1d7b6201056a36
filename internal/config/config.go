// Package config loads the wheelhouse configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	ArtifactDir string        `yaml:"artifact_dir"`
	Index       IndexConfig   `yaml:"index"`
	Pin         PinConfig     `yaml:"pin"`
	Watch       WatchConfig   `yaml:"watch,omitempty"`
	Serve       ServeConfig   `yaml:"serve,omitempty"`
	Publish     PublishConfig `yaml:"publish,omitempty"`
}

// IndexConfig controls simple-index synthesis.
type IndexConfig struct {
	OutputDir          string            `yaml:"output_dir"`
	BaseURL            string            `yaml:"base_url"`
	AddDigests         *bool             `yaml:"add_digests,omitempty"`         // default true
	AddRequiresPython  *bool             `yaml:"add_requires_python,omitempty"` // default true
	PublicVersions     bool              `yaml:"public_versions,omitempty"`     // strip local identifiers in displayed versions
	Title              string            `yaml:"title,omitempty"`
	BuildInfo          map[string]string `yaml:"build_info,omitempty"`
	ReleaseNotesPath   string            `yaml:"release_notes,omitempty"` // optional markdown rendered into the landing page
	DigestCachePath    string            `yaml:"digest_cache,omitempty"`  // optional sqlite digest cache
	SizeLimitMegabytes int64             `yaml:"size_limit_mb,omitempty"` // organize threshold
}

// PinConfig controls dependency pinning.
type PinConfig struct {
	ManifestPath string         `yaml:"manifest"`
	Watched      []WatchedEntry `yaml:"watched,omitempty"`
}

// WatchedEntry maps a wheel filename prefix to the canonical package name
// used in manifest constraints. The prefix match is delimiter-bounded so
// "triton" never captures "triton_kernels".
type WatchedEntry struct {
	Prefix  string `yaml:"prefix"`
	Package string `yaml:"package"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce,omitempty"`
	ResyncInterval time.Duration `yaml:"resync_interval,omitempty"`
	NATSURL        string        `yaml:"nats_url,omitempty"`
	NATSSubject    string        `yaml:"nats_subject,omitempty"`
}

// ServeConfig controls the local index server.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// PublishConfig controls publishing the synthesized tree to an S3-compatible
// object store. Credentials come from the environment so they never land in
// the config file.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    *bool  `yaml:"use_ssl,omitempty"` // default true
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// DefaultWatched is the custom-built package family the pinner looks for
// when the config does not override it.
var DefaultWatched = []WatchedEntry{
	{Prefix: "torch", Package: "torch"},
	{Prefix: "triton", Package: "triton"},
	{Prefix: "triton_kernels", Package: "triton-kernels"},
	{Prefix: "torchvision", Package: "torchvision"},
	{Prefix: "amdsmi", Package: "amdsmi"},
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env if present; its absence is not an error.
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			break
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Index.Title == "" {
		config.Index.Title = "Custom Wheel Repository"
	}
	if config.Index.SizeLimitMegabytes == 0 {
		config.Index.SizeLimitMegabytes = 100
	}
	if len(config.Pin.Watched) == 0 {
		config.Pin.Watched = DefaultWatched
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = 2 * time.Second
	}
	if config.Watch.ResyncInterval == 0 {
		config.Watch.ResyncInterval = 30 * time.Minute
	}
	if config.Watch.NATSSubject == "" {
		config.Watch.NATSSubject = "wheelhouse.index.rebuilt"
	}
	if config.Serve.Addr == "" {
		config.Serve.Addr = ":8080"
	}
	if config.Publish.AccessKey == "" {
		config.Publish.AccessKey = os.Getenv("WHEELHOUSE_ACCESS_KEY")
	}
	if config.Publish.SecretKey == "" {
		config.Publish.SecretKey = os.Getenv("WHEELHOUSE_SECRET_KEY")
	}
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# wheelhouse configuration
artifact_dir: ./artifacts

index:
  output_dir: ./pypi-repo
  base_url: https://mybucket.s3.amazonaws.com
  title: Custom Wheel Repository
  build_info:
    rocm_version: "7.0"
    python_version: "3.12"
    gpu_arch: gfx942

pin:
  manifest: ./vllm/pyproject.toml
  # watched defaults to the custom-built package family:
  # torch, triton, triton-kernels, torchvision, amdsmi

watch:
  debounce: 2s
  resync_interval: 30m

serve:
  addr: :8080

# publish:
#   endpoint: s3.amazonaws.com
#   bucket: mybucket
#   # credentials via WHEELHOUSE_ACCESS_KEY / WHEELHOUSE_SECRET_KEY
`

	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
