package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "IMPOSTOR"

const (
	STORE_MEMORY   = "memory"
	STORE_POSTGRES = "postgres"
	STORE_REMOTE   = "remote"
)

type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	PostgresURL     string        `mapstructure:"postgres_url"`
	RemoteURL       string        `mapstructure:"remote_url"`
	RoomTTL         time.Duration `mapstructure:"room_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// 是否开放 /api/v1/kv 原始记录接口，只应在可信的 remote 客户端部署中打开
	ExposeKV bool `mapstructure:"expose_kv"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type AppConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// 生成邀请二维码时使用的外部地址，为空时按请求推断
	PublicURL string `mapstructure:"public_url"`
	StaticDir string `mapstructure:"static_dir"`

	PollInterval time.Duration `mapstructure:"poll_interval"`

	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// 命令行参数名到配置键的映射
var FLAG_KEYS = map[string]string{
	"host":             "host",
	"port":             "port",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"public-url":       "public_url",
	"static-dir":       "static_dir",
	"poll-interval":    "poll_interval",
	"store-driver":     "store.driver",
	"postgres-url":     "store.postgres_url",
	"remote-url":       "store.remote_url",
	"room-ttl":         "store.room_ttl",
	"cleanup-interval": "store.cleanup_interval",
	"expose-kv":        "store.expose_kv",
	"rate-limit-rps":   "rate_limit.rps",
	"rate-limit-burst": "rate_limit.burst",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("public_url", "")
	v.SetDefault("static_dir", "./impostor-fe")
	v.SetDefault("poll_interval", 1500*time.Millisecond)
	v.SetDefault("store.driver", STORE_MEMORY)
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.remote_url", "")
	v.SetDefault("store.room_ttl", 6*time.Hour)
	v.SetDefault("store.cleanup_interval", time.Minute)
	v.SetDefault("store.expose_kv", false)
	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)
}

// NewViper 创建带默认值和环境变量前缀的 viper 实例
// 环境变量形如 IMPOSTOR_STORE_DRIVER
func NewViper() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// AddFlags 注册所有可以从命令行覆盖的配置项
func AddFlags(fs *pflag.FlagSet) {
	fs.String("host", "0.0.0.0", "address to bind to (env: IMPOSTOR_HOST)")
	fs.IntP("port", "p", 8080, "port to listen on (env: IMPOSTOR_PORT)")
	fs.String("log-level", "info", "debug, info, warn or error (env: IMPOSTOR_LOG_LEVEL)")
	fs.String("log-format", "console", "console or json (env: IMPOSTOR_LOG_FORMAT)")
	fs.String("public-url", "", "external base url used in invite links (env: IMPOSTOR_PUBLIC_URL)")
	fs.String("static-dir", "./impostor-fe", "directory of the web client (env: IMPOSTOR_STATIC_DIR)")
	fs.Duration("poll-interval", 1500*time.Millisecond, "room polling interval (env: IMPOSTOR_POLL_INTERVAL)")
	fs.String("store-driver", STORE_MEMORY, "memory, postgres or remote (env: IMPOSTOR_STORE_DRIVER)")
	fs.String("postgres-url", "", "postgres connection string (env: IMPOSTOR_STORE_POSTGRES_URL)")
	fs.String("remote-url", "", "base url of another server used as the store (env: IMPOSTOR_STORE_REMOTE_URL)")
	fs.Duration("room-ttl", 6*time.Hour, "time before an untouched room expires (env: IMPOSTOR_STORE_ROOM_TTL)")
	fs.Duration("cleanup-interval", time.Minute, "interval between expired room sweeps (env: IMPOSTOR_STORE_CLEANUP_INTERVAL)")
	fs.Bool("expose-kv", false, "serve the raw record store to trusted remote clients (env: IMPOSTOR_STORE_EXPOSE_KV)")
	fs.Float64("rate-limit-rps", 5, "requests per second per client (env: IMPOSTOR_RATE_LIMIT_RPS)")
	fs.Int("rate-limit-burst", 10, "request burst per client (env: IMPOSTOR_RATE_LIMIT_BURST)")
}

// BindFlags 让显式设置的命令行参数优先于配置文件和环境变量
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error

	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := FLAG_KEYS[f.Name]
		if !ok {
			return
		}

		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}

// Load 依次读取 .env、app_config.json 和环境变量，两个文件都是可选的
func Load(v *viper.Viper) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("加载配置失败: %w", err)
		}
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("端口无效（必须在 1-65535 之间）: %d", c.Port)
	}

	switch c.Store.Driver {
	case STORE_MEMORY:
	case STORE_POSTGRES:
		if c.Store.PostgresURL == "" {
			return errors.New("使用 postgres 存储时必须设置 store.postgres_url")
		}
	case STORE_REMOTE:
		if c.Store.RemoteURL == "" {
			return errors.New("使用 remote 存储时必须设置 store.remote_url")
		}
	default:
		return fmt.Errorf("未知的存储类型: %q", c.Store.Driver)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("轮询间隔必须大于 0: %s", c.PollInterval)
	}

	return nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InitConfig 不带命令行参数加载配置，失败时直接 panic
func InitConfig() *AppConfig {
	config, err := Load(NewViper())
	if err != nil {
		panic(err)
	}

	return config
}
