package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory     = "memory"
	StoreRedis      = "redis"
	StoreS3         = "s3"
	StoreCloudflare = "cloudflare"

	RenderModeUpstream = "upstream"
	RenderModeDemo     = "demo"
)

// EdgeHostConfig stores edge-host runtime configuration.
type EdgeHostConfig struct {
	ServerPort      string        `env:"SERVER_PORT"       envDefault:"8787"`
	LogLevel        string        `env:"LOG_LEVEL"         envDefault:"info"`
	AssetStore      string        `env:"ASSET_STORE"       envDefault:"memory"`
	AssetSeedDir    string        `env:"ASSET_SEED_DIR"`
	AssetSeedReset  bool          `env:"ASSET_SEED_RESET"`
	AssetPrefix     string        `env:"ASSET_PREFIX"      envDefault:"/_app/"`
	StaticPathsFile string        `env:"STATIC_PATHS_FILE"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"20s"`

	Render     RenderConfig
	Discovery  DiscoveryConfig
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	S3         S3Config         `envPrefix:"S3_"`
	Cloudflare CloudflareConfig `envPrefix:"CLOUDFLARE_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Publish    PublishConfig    `envPrefix:"SEED_"`

	MetricsBearerToken string `env:"METRICS_BEARER_TOKEN"`
}

// RenderConfig selects how pages are rendered.
type RenderConfig struct {
	Mode            string        `env:"RENDER_MODE"              envDefault:"upstream"`
	OriginURL       string        `env:"RENDER_ORIGIN_URL"        envDefault:"http://localhost:3000"`
	Timeout         time.Duration `env:"RENDER_TIMEOUT"           envDefault:"15s"`
	DeclineNotFound bool          `env:"RENDER_DECLINE_NOT_FOUND" envDefault:"true"`
	DemoWaitDelay   time.Duration `env:"DEMO_WAIT_DELAY"          envDefault:"500ms"`
}

// DiscoveryConfig controls render origin discovery in Kubernetes.
type DiscoveryConfig struct {
	Enabled         bool          `env:"K8S_DISCOVERY_ENABLED"          envDefault:"false"`
	Namespace       string        `env:"K8S_NAMESPACE"                  envDefault:"default"`
	RefreshInterval time.Duration `env:"K8S_DISCOVERY_REFRESH_INTERVAL" envDefault:"30s"`
	ServiceSelector string        `env:"K8S_SERVICE_SELECTOR_RENDER"    envDefault:"app.kubernetes.io/name=render-origin"`
}

type RedisConfig struct {
	Addr         string        `env:"ADDR"           envDefault:"localhost:6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB"             envDefault:"0"`
	KeyPrefix    string        `env:"KEY_PREFIX"     envDefault:"edge:asset:"`
	TTL          time.Duration `env:"TTL"            envDefault:"0s"`
	PoolSize     int           `env:"POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT"  envDefault:"3s"`
}

type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Prefix          string `env:"PREFIX"`
	Region          string `env:"REGION"            envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE"    envDefault:"false"`
}

type CloudflareConfig struct {
	Token        string  `env:"TOKEN"`
	AccountID    string  `env:"ACCOUNT_ID"`
	NamespaceID  string  `env:"NAMESPACE_ID"`
	APIBaseURL   string  `env:"API_BASE_URL"`
	APIRateLimit float64 `env:"API_RPS"      envDefault:"4"`
}

// RateLimitConfig bounds renders globally and per client. RPS 0 disables
// limiting; the client values fall back to the global ones when zero.
type RateLimitConfig struct {
	RPS         float64 `env:"RPS"          envDefault:"100"`
	Burst       int     `env:"BURST"        envDefault:"200"`
	ClientRPS   float64 `env:"CLIENT_RPS"   envDefault:"10"`
	ClientBurst int     `env:"CLIENT_BURST" envDefault:"20"`
}

// PublishConfig bounds asset uploads.
type PublishConfig struct {
	Concurrency   int     `env:"CONCURRENCY" envDefault:"8"`
	RatePerSecond float64 `env:"RPS"         envDefault:"0"`
}

// UploadConfig holds what upload-worker reads from the environment. Flags
// cover the rest.
type UploadConfig struct {
	Token        string  `env:"CLOUDFLARE_TOKEN"`
	APIBaseURL   string  `env:"CLOUDFLARE_API_BASE_URL"`
	APIRateLimit float64 `env:"CLOUDFLARE_API_RPS" envDefault:"4"`
	LogLevel     string  `env:"LOG_LEVEL"          envDefault:"info"`
	NatsURL      string  `env:"NATS_URL"`
	NatsStream   string  `env:"NATS_STREAM"        envDefault:"EDGE_DEPLOYS"`
}

// LoadEdgeHost reads edge-host configuration from the environment and an
// optional .env file.
func LoadEdgeHost() (*EdgeHostConfig, error) {
	_ = godotenv.Load()

	cfg := &EdgeHostConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *EdgeHostConfig) validate() error {
	stores := []string{StoreMemory, StoreRedis, StoreS3, StoreCloudflare}
	if !slices.Contains(stores, cfg.AssetStore) {
		return fmt.Errorf("ASSET_STORE must be one of %s, got %q", strings.Join(stores, ", "), cfg.AssetStore)
	}

	switch cfg.AssetStore {
	case StoreRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("ASSET_STORE=redis requires REDIS_ADDR")
		}
	case StoreS3:
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("ASSET_STORE=s3 requires S3_BUCKET")
		}
	case StoreCloudflare:
		if cfg.Cloudflare.Token == "" || cfg.Cloudflare.NamespaceID == "" {
			return fmt.Errorf("ASSET_STORE=cloudflare requires CLOUDFLARE_TOKEN and CLOUDFLARE_NAMESPACE_ID")
		}
	}

	switch cfg.Render.Mode {
	case RenderModeDemo:
	case RenderModeUpstream:
		if !cfg.Discovery.Enabled && cfg.Render.OriginURL == "" {
			return fmt.Errorf("RENDER_MODE=upstream requires RENDER_ORIGIN_URL or K8S_DISCOVERY_ENABLED=true")
		}
		if cfg.Render.Timeout <= 0 {
			return fmt.Errorf("RENDER_TIMEOUT must be positive")
		}
	default:
		return fmt.Errorf("RENDER_MODE must be upstream or demo, got %q", cfg.Render.Mode)
	}

	if cfg.Discovery.Enabled && cfg.Discovery.RefreshInterval <= 0 {
		return fmt.Errorf("K8S_DISCOVERY_REFRESH_INTERVAL must be positive")
	}

	if cfg.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive")
	}
	if cfg.RateLimit.ClientRPS < 0 || cfg.RateLimit.ClientBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_CLIENT_RPS and RATE_LIMIT_CLIENT_BURST must not be negative")
	}

	if cfg.Publish.Concurrency <= 0 {
		return fmt.Errorf("SEED_CONCURRENCY must be positive")
	}

	return nil
}

// LoadUpload reads upload-worker environment configuration.
func LoadUpload() (*UploadConfig, error) {
	_ = godotenv.Load()

	cfg := &UploadConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("could not find CLOUDFLARE_TOKEN environment variable")
	}
	return cfg, nil
}
