package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger          `mapstructure:"logger"`
	DB        Database        `mapstructure:"database"`
	API       API             `mapstructure:"api"`
	Trading   Trading         `mapstructure:"trading"`
	Worker    Worker          `mapstructure:"worker"`
	PriceFeed PriceFeed       `mapstructure:"price_feed"`
	Exchange  Exchange        `mapstructure:"exchange"`
	Cache     Cache           `mapstructure:"cache"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Trading struct {
	MinConfidenceScore float64       `mapstructure:"min_confidence_score"`
	TargetProfitRatio  float64       `mapstructure:"target_profit_ratio"`
	StopLossRatio      float64       `mapstructure:"stop_loss_ratio"`
	SignalValidity     time.Duration `mapstructure:"signal_validity"`
	ExpireSweepCron    string        `mapstructure:"expire_sweep_cron"`
}

type Worker struct {
	Interval          time.Duration `mapstructure:"interval"`
	ErrorBackoff      time.Duration `mapstructure:"error_backoff"`
	WatchList         []string      `mapstructure:"watch_list"`
	AutoTradeScore    float64       `mapstructure:"auto_trade_score"`
	AlertScore        float64       `mapstructure:"alert_score"`
	CandleCount       int           `mapstructure:"candle_count"`
	LastPriceCacheTTL time.Duration `mapstructure:"last_price_cache_ttl"`
}

type PriceFeed struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

type Exchange struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	AlertChatID               string        `mapstructure:"alert_chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
	MaxUserRequestPerSecond   int           `mapstructure:"max_user_request_per_second"`
	RatelimitExpireDuration   time.Duration `mapstructure:"ratelimit_expire_duration"`
	RateLimitCleanupDuration  time.Duration `mapstructure:"rate_limit_cleanup_duration"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("trading.min_confidence_score", 80.0)
	viper.SetDefault("trading.target_profit_ratio", 0.05)
	viper.SetDefault("trading.stop_loss_ratio", -0.02)
	viper.SetDefault("trading.signal_validity", 4*time.Hour)
	viper.SetDefault("trading.expire_sweep_cron", "*/10 * * * *")
	viper.SetDefault("worker.interval", 5*time.Minute)
	viper.SetDefault("worker.error_backoff", time.Minute)
	viper.SetDefault("worker.auto_trade_score", 75.0)
	viper.SetDefault("worker.alert_score", 60.0)
	viper.SetDefault("worker.candle_count", 48)
	viper.SetDefault("worker.last_price_cache_ttl", time.Minute)
	viper.SetDefault("worker.watch_list", []string{
		"KRW-BTC", "KRW-ETH", "KRW-XRP", "KRW-SOL", "KRW-ADA",
		"KRW-DOGE", "KRW-AVAX", "KRW-DOT", "KRW-MATIC", "KRW-LINK",
	})
	viper.SetDefault("price_feed.base_url", "https://api.upbit.com")
	viper.SetDefault("price_feed.timeout", 10*time.Second)
	viper.SetDefault("price_feed.max_request_per_min", 60)
	viper.SetDefault("exchange.timeout", 15*time.Second)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("telegram.timeout_duration", 10*time.Second)
	viper.SetDefault("telegram.max_global_request_per_second", 30)
	viper.SetDefault("telegram.max_user_request_per_second", 1)
	viper.SetDefault("telegram.ratelimit_expire_duration", 10*time.Minute)
	viper.SetDefault("telegram.rate_limit_cleanup_duration", 5*time.Minute)
	viper.SetDefault("rate_limit.requests_per_second", 10.0)
	viper.SetDefault("rate_limit.burst", 30)
}
