package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AdminJWT JWTConfig      `mapstructure:"admin_jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
}

// CaptchaConfig 验证码配置，provider 为 none 时所有场景都不校验
type CaptchaConfig struct {
	Provider  string                 `mapstructure:"provider"` // none / image / turnstile
	Scenes    CaptchaSceneConfig     `mapstructure:"scenes"`
	Image     CaptchaImageConfig     `mapstructure:"image"`
	Turnstile CaptchaTurnstileConfig `mapstructure:"turnstile"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	Register bool `mapstructure:"register"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// CaptchaTurnstileConfig Cloudflare Turnstile 配置
type CaptchaTurnstileConfig struct {
	SiteKey   string `mapstructure:"site_key"`
	SecretKey string `mapstructure:"secret_key"`
	VerifyURL string `mapstructure:"verify_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 校验配置（令牌由外部账号系统签发）
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 写接口限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// EngineConfig 佣金引擎配置（方案形态固定，数值可配置）
type EngineConfig struct {
	RewardPool        float64        `mapstructure:"reward_pool"`         // 每次购买的奖励池
	NFTPrice          float64        `mapstructure:"nft_price"`           // 藏品固定价格
	LevelRates        []float64      `mapstructure:"level_rates"`         // 各层级比例（百分比）
	LevelGates        map[string]int `mapstructure:"level_gates"`         // 层级 -> 最少激活直推人数
	MaxLevels         int            `mapstructure:"max_levels"`          // 佣金层级上限
	GenealogyMaxDepth int            `mapstructure:"genealogy_max_depth"` // 族谱展示深度
	TotalDays         int            `mapstructure:"total_days"`          // 分期天数
	AccrualInterval   time.Duration  `mapstructure:"accrual_interval"`    // 分期发放间隔
	DeactivationGrace time.Duration  `mapstructure:"deactivation_grace"`  // 停用宽限期
	TickBatchSize     int            `mapstructure:"tick_batch_size"`     // 单批扫描条数
	JobLockTTL        time.Duration  `mapstructure:"job_lock_ttl"`        // 任务锁过期时间
	ReportCacheTTL    time.Duration  `mapstructure:"report_cache_ttl"`    // 报表缓存时间
}

// WorkerConfig 后台定时任务配置
type WorkerConfig struct {
	AccrualTickInterval       time.Duration `mapstructure:"accrual_tick_interval"`
	DeactivationCheckInterval time.Duration `mapstructure:"deactivation_check_interval"`
	RunOnStart                bool          `mapstructure:"run_on_start"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	// 可选的 .env 文件，先于环境变量读取
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_dotenv_loaded", "file", ".env")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	// 设置默认值（可选）
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "engine.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("log.stdout", false)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/nftlevel.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "member-change-me-in-production")
	viper.SetDefault("jwt.issuer", "")
	viper.SetDefault("admin_jwt.secret", "admin-change-me-in-production")
	viper.SetDefault("admin_jwt.issuer", "")
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "nl")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.rate_limit.window_seconds", 60)
	viper.SetDefault("security.rate_limit.max_requests", 30)
	viper.SetDefault("security.rate_limit.block_seconds", 120)
	viper.SetDefault("engine.reward_pool", 100)
	viper.SetDefault("engine.nft_price", 100)
	viper.SetDefault("engine.level_rates", []float64{10, 3, 2, 1, 1, 1, 0.5, 0.5, 0.5, 0.5})
	viper.SetDefault("engine.level_gates", map[string]int{"2": 3, "3": 5})
	viper.SetDefault("engine.max_levels", 10)
	viper.SetDefault("engine.genealogy_max_depth", 6)
	viper.SetDefault("engine.total_days", 365)
	viper.SetDefault("engine.accrual_interval", "24h")
	viper.SetDefault("engine.deactivation_grace", "10m")
	viper.SetDefault("engine.tick_batch_size", 200)
	viper.SetDefault("engine.job_lock_ttl", "30m")
	viper.SetDefault("engine.report_cache_ttl", "60s")
	viper.SetDefault("worker.accrual_tick_interval", "1h")
	viper.SetDefault("worker.deactivation_check_interval", "1m")
	viper.SetDefault("worker.run_on_start", false)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("captcha.provider", "none")
	viper.SetDefault("captcha.scenes.register", false)
	viper.SetDefault("captcha.image.length", 5)
	viper.SetDefault("captcha.image.width", 240)
	viper.SetDefault("captcha.image.height", 80)
	viper.SetDefault("captcha.image.noise_count", 2)
	viper.SetDefault("captcha.image.show_line", 2)
	viper.SetDefault("captcha.image.expire_seconds", 300)
	viper.SetDefault("captcha.image.max_store", 10240)
	viper.SetDefault("captcha.turnstile.site_key", "")
	viper.SetDefault("captcha.turnstile.secret_key", "")
	viper.SetDefault("captcha.turnstile.verify_url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	viper.SetDefault("captcha.turnstile.timeout_ms", 2000)

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
