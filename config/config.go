package config

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Social   SocialConfig   `mapstructure:"social"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// AdminIPs restricts the admin routes to these client addresses when set.
	AdminIPs []string `mapstructure:"admin_ips"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

// CacheConfig selects redis when RedisAddr is set, the in-process store otherwise.
type CacheConfig struct {
	RedisAddr        string        `mapstructure:"redis_addr"`
	RedisPassword    string        `mapstructure:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	SubscriberBuffer int           `mapstructure:"subscriber_buffer"`
}

type SecurityConfig struct {
	JWTSecret      string  `mapstructure:"jwt_secret"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig controls the zap output. When Filename is empty logs go to stderr only.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type SocialConfig struct {
	// FounderUserID receives the identity badge. Zero disables it.
	FounderUserID      int64     `mapstructure:"founder_user_id"`
	EarlyAdopterCutoff time.Time `mapstructure:"early_adopter_cutoff"`
	RankingSize        int       `mapstructure:"ranking_size"`
	// RankingWarmInterval is how often the ranking candidates' engagement
	// counts are pre-computed. Zero disables warming.
	RankingWarmInterval time.Duration `mapstructure:"ranking_warm_interval"`
	EngagementCacheTTL  time.Duration `mapstructure:"engagement_cache_ttl"`
	NotificationTTL     time.Duration `mapstructure:"notification_ttl"`
}

type NotifyConfig struct {
	QueueSize        int           `mapstructure:"queue_size"`
	BatchSize        int           `mapstructure:"batch_size"`
	FlushInterval    time.Duration `mapstructure:"flush_interval"`
	RetryMaxElapsed  time.Duration `mapstructure:"retry_max_elapsed"`
	RetryInitialWait time.Duration `mapstructure:"retry_initial_wait"`
}

type CatalogConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	ImageBase string        `mapstructure:"image_base"`
	APIKey    string        `mapstructure:"api_key"`
	Language  string        `mapstructure:"language"`
	RPS       float64       `mapstructure:"rps"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Retries   int           `mapstructure:"retries"`
}

// Load reads config from the given YAML file path. Every key can be
// overridden with CINECIRCLE_<SECTION>_<KEY>.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Default returns the configuration used when no file is present.
// Environment overrides still apply.
func Default() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("cinecircle")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeHook adds RFC 3339 timestamps to viper's default duration and slice hooks.
var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeHookFunc(time.RFC3339),
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.admin_ips", []string{})
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/cinecircle.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.sweep_interval", "30s")
	v.SetDefault("cache.subscriber_buffer", 256)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.filename", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("social.founder_user_id", 0)
	v.SetDefault("social.early_adopter_cutoff", "2025-03-01T00:00:00Z")
	v.SetDefault("social.ranking_size", 10)
	v.SetDefault("social.ranking_warm_interval", "1m")
	v.SetDefault("social.engagement_cache_ttl", "5m")
	v.SetDefault("social.notification_ttl", "720h")
	v.SetDefault("notify.queue_size", 1024)
	v.SetDefault("notify.batch_size", 100)
	v.SetDefault("notify.flush_interval", "1s")
	v.SetDefault("notify.retry_max_elapsed", "30s")
	v.SetDefault("notify.retry_initial_wait", "200ms")
	v.SetDefault("catalog.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("catalog.image_base", "https://image.tmdb.org/t/p")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.language", "es-ES")
	v.SetDefault("catalog.rps", 20)
	v.SetDefault("catalog.timeout", "5s")
	v.SetDefault("catalog.cache_ttl", "10m")
	v.SetDefault("catalog.retries", 2)
}
