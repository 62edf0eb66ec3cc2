package daemon

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codegraphd/codegraphd/cluster"
	"github.com/codegraphd/codegraphd/watch"
)

// Config is codegraphd's complete configuration, grounded on
// config.Config's DefaultConfig/Validate/LoadFromFile shape.
type Config struct {
	Repo    RepoConfig    `yaml:"repo"`
	Extract ExtractConfig `yaml:"extract"`
	Watch   WatchConfig   `yaml:"watch"`
	Cluster ClusterConfig `yaml:"cluster"`
	Health  HealthConfig  `yaml:"health"`
	API     APIConfig     `yaml:"api"`
}

// RepoConfig configures the watched repository.
type RepoConfig struct {
	Path string `yaml:"path"`
}

// ExtractConfig configures extraction behavior.
type ExtractConfig struct {
	Extensions  []string      `yaml:"extensions"`
	IgnoreGlobs []string      `yaml:"ignore_globs"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WatchConfig configures the watcher/scheduler.
type WatchConfig struct {
	QuiescenceDelay time.Duration `yaml:"quiescence_delay"`
	BatchSize       int           `yaml:"batch_size"`
	WorkerParallelism int         `yaml:"worker_parallelism"`
}

// ClusterConfig configures the clusterer.
type ClusterConfig struct {
	TargetReduction     int     `yaml:"target_reduction"`
	MinClusterSize      int     `yaml:"min_cluster_size"`
	MaxClusters         int     `yaml:"max_clusters"`
	SmallProjectThreshold int   `yaml:"small_project_threshold"`
	Resolution          float64 `yaml:"resolution"`
}

// HealthConfig configures the supervisor's health thresholds.
type HealthConfig struct {
	MemoryWarnMB   int `yaml:"memory_warn_mb"`
	ErrorRateWarn  float64 `yaml:"error_rate_warn"`
	QueueDepthWarn int `yaml:"queue_depth_warn"`
}

// APIConfig configures the query/control API's transport.
type APIConfig struct {
	SocketPath string `yaml:"socket_path"`
}

// DefaultConfig returns the configuration table's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{Path: "."},
		Extract: ExtractConfig{
			Extensions:  watch.DefaultExtensions,
			IgnoreGlobs: watch.DefaultIgnorePatterns,
			Timeout:     30 * time.Second,
		},
		Watch: WatchConfig{
			QuiescenceDelay:   500 * time.Millisecond,
			BatchSize:         10,
			WorkerParallelism: 0, // 0 means "use runtime.NumCPU()"
		},
		Cluster: ClusterConfig{
			TargetReduction:       100,
			MinClusterSize:        2,
			MaxClusters:           50,
			SmallProjectThreshold: 20,
			Resolution:            1.0,
		},
		Health: HealthConfig{
			MemoryWarnMB:   500,
			ErrorRateWarn:  0.1,
			QueueDepthWarn: 100,
		},
		API: APIConfig{SocketPath: ".graph/codegraphd.sock"},
	}
}

// Validate rejects genuinely invalid configuration (the InvalidConfig
// error kind, exit code 4), unlike Options.Validate in the cluster
// package, which clamps instead of rejecting — clustering parameters
// are forgiving defaults, but a negative batch size or quiescence delay
// signals a configuration mistake worth refusing to start over.
func (c *Config) Validate() error {
	if c.Watch.BatchSize <= 0 {
		return fmt.Errorf("watch.batch_size must be positive")
	}
	if c.Watch.QuiescenceDelay <= 0 {
		return fmt.Errorf("watch.quiescence_delay must be positive")
	}
	if c.Cluster.Resolution < 1.0 || c.Cluster.Resolution > 1.2 {
		return fmt.Errorf("cluster.resolution must be in [1.0, 1.2]")
	}
	if c.Health.MemoryWarnMB <= 0 {
		return fmt.Errorf("health.memory_warn_mb must be positive")
	}
	return nil
}

// ClusterOptions converts the config's cluster section into
// cluster.Options.
func (c *Config) ClusterOptions() cluster.Options {
	return cluster.Options{
		SmallProjectThreshold: c.Cluster.SmallProjectThreshold,
		MinClusterSize:        c.Cluster.MinClusterSize,
		MaxClusters:           c.Cluster.MaxClusters,
		Resolution:            c.Cluster.Resolution,
		MaxIterations:         10,
	}
}

// LoadFromFile loads configuration from a YAML file, applying defaults
// for anything the file does not set.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}
