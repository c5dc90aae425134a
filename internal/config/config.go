// Package config loads the engine's configuration from a YAML file with
// environment-variable overrides and sane defaults, the same
// singleton-plus-applyEnvOverrides shape the teacher's internal/config
// package uses.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the engine's full configuration surface.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	WarmPath WarmPathConfig `yaml:"warm_path"`
	Persist  PersistConfig  `yaml:"persist"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Identity IdentityConfig `yaml:"identity"`
}

// ServerConfig addresses for the four control-plane adapters.
type ServerConfig struct {
	RESTAddr           string `yaml:"rest_addr"`
	GRPCAddr           string `yaml:"grpc_addr"`
	StreamAddr         string `yaml:"stream_addr"`
	NotifyAddr         string `yaml:"notify_addr"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

// PipelineConfig sizes the shard set and the beat scheduler driving it.
type PipelineConfig struct {
	NumShards      int `yaml:"num_shards"`
	RingCapacity   int `yaml:"ring_capacity"`
	BeatIntervalMs int `yaml:"beat_interval_ms"`
}

// WarmPathConfig sizes the container pool and the Cloud Tasks overflow
// behind it.
type WarmPathConfig struct {
	PoolCapacity       int    `yaml:"pool_capacity"`
	CloudTasksEnabled  bool   `yaml:"cloud_tasks_enabled"`
	CloudTasksProject  string `yaml:"cloud_tasks_project"`
	CloudTasksLocation string `yaml:"cloud_tasks_location"`
	CloudTasksQueue    string `yaml:"cloud_tasks_queue"`
	TargetURL          string `yaml:"target_url"`
}

// PersistConfig points at the durable stores for spec bags and chain
// heads.
type PersistConfig struct {
	PostgresURL string        `yaml:"postgres_url"`
	Spanner     SpannerConfig `yaml:"spanner"`
}

// SpannerConfig identifies the chain-head database.
type SpannerConfig struct {
	ProjectID  string `yaml:"project_id"`
	InstanceID string `yaml:"instance_id"`
	DatabaseID string `yaml:"database_id"`
}

// PubSubConfig configures the Pub/Sub source/sink pair.
type PubSubConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
}

// SupabaseConfig configures the Supabase mirror sink.
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Table      string `yaml:"table"`
}

// IdentityConfig configures the SPIFFE/SPIRE mTLS identity the control
// adapters present to each other.
type IdentityConfig struct {
	TrustDomain  string `yaml:"trust_domain"`
	WorkloadAddr string `yaml:"workload_addr"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton config, loading it from
// CONFIG_PATH (default "config.yaml") on first call and applying
// environment overrides and defaults on top.
func Get() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found, using process environment")
		}
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load file, using defaults", "error", err)
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

// LoadConfig reads and decodes a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.RESTAddr = getEnv("CORE_REST_ADDR", c.Server.RESTAddr)
	c.Server.GRPCAddr = getEnv("CORE_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.StreamAddr = getEnv("CORE_STREAM_ADDR", c.Server.StreamAddr)
	c.Server.NotifyAddr = getEnv("CORE_NOTIFY_ADDR", c.Server.NotifyAddr)
	if v := getEnvInt("CORE_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownTimeoutSec = v
	}

	if v := getEnvInt("CORE_NUM_SHARDS", 0); v > 0 {
		c.Pipeline.NumShards = v
	}
	if v := getEnvInt("CORE_RING_CAPACITY", 0); v > 0 {
		c.Pipeline.RingCapacity = v
	}
	if v := getEnvInt("CORE_BEAT_INTERVAL_MS", 0); v > 0 {
		c.Pipeline.BeatIntervalMs = v
	}

	if v := getEnvInt("CORE_WARM_POOL_CAPACITY", 0); v > 0 {
		c.WarmPath.PoolCapacity = v
	}
	c.WarmPath.CloudTasksEnabled = getEnvBool("CORE_CLOUD_TASKS_ENABLED", c.WarmPath.CloudTasksEnabled)
	c.WarmPath.CloudTasksProject = getEnv("GCP_PROJECT_ID", c.WarmPath.CloudTasksProject)
	c.WarmPath.CloudTasksLocation = getEnv("CLOUD_TASKS_LOCATION", c.WarmPath.CloudTasksLocation)
	c.WarmPath.CloudTasksQueue = getEnv("CLOUD_TASKS_QUEUE", c.WarmPath.CloudTasksQueue)
	c.WarmPath.TargetURL = getEnv("CORE_WARM_TARGET_URL", c.WarmPath.TargetURL)

	c.Persist.PostgresURL = getEnv("CORE_DATABASE_URL", c.Persist.PostgresURL)
	c.Persist.Spanner.ProjectID = getEnv("SPANNER_PROJECT_ID", c.Persist.Spanner.ProjectID)
	c.Persist.Spanner.InstanceID = getEnv("SPANNER_INSTANCE_ID", c.Persist.Spanner.InstanceID)
	c.Persist.Spanner.DatabaseID = getEnv("SPANNER_DATABASE_ID", c.Persist.Spanner.DatabaseID)

	if projectID := getEnv("GCP_PROJECT_ID", ""); projectID != "" {
		c.PubSub.ProjectID = projectID
	}
	c.PubSub.TopicID = getEnv("PUBSUB_TOPIC_ID", c.PubSub.TopicID)
	c.PubSub.Enabled = getEnvBool("PUBSUB_ENABLED", c.PubSub.Enabled)

	c.Supabase.URL = getEnv("SUPABASE_URL", c.Supabase.URL)
	c.Supabase.ServiceKey = getEnv("SUPABASE_SERVICE_KEY", c.Supabase.ServiceKey)
	c.Supabase.Table = getEnv("SUPABASE_TABLE", c.Supabase.Table)

	c.Identity.TrustDomain = getEnv("SPIFFE_TRUST_DOMAIN", c.Identity.TrustDomain)
	c.Identity.WorkloadAddr = getEnv("SPIFFE_ENDPOINT_SOCKET", c.Identity.WorkloadAddr)
}

func (c *Config) applyDefaults() {
	if c.Server.RESTAddr == "" {
		c.Server.RESTAddr = ":8080"
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":9090"
	}
	if c.Server.StreamAddr == "" {
		c.Server.StreamAddr = ":8081"
	}
	if c.Server.NotifyAddr == "" {
		c.Server.NotifyAddr = ":8082"
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = 30
	}
	if c.Pipeline.NumShards == 0 {
		c.Pipeline.NumShards = 8
	}
	if c.Pipeline.RingCapacity == 0 {
		c.Pipeline.RingCapacity = 64
	}
	if c.Pipeline.BeatIntervalMs == 0 {
		c.Pipeline.BeatIntervalMs = 1
	}
	if c.WarmPath.PoolCapacity == 0 {
		c.WarmPath.PoolCapacity = 8
	}
	if c.WarmPath.CloudTasksLocation == "" {
		c.WarmPath.CloudTasksLocation = "us-central1"
	}
	if c.WarmPath.CloudTasksQueue == "" {
		c.WarmPath.CloudTasksQueue = "core-warmpath"
	}
	if c.PubSub.TopicID == "" {
		c.PubSub.TopicID = "core-events"
	}
	if c.Supabase.Table == "" {
		c.Supabase.Table = "emitted_records"
	}
	if c.Identity.TrustDomain == "" {
		c.Identity.TrustDomain = "spiffe://core.local"
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
