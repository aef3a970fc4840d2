package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Port        string `mapstructure:"port"`
	Development bool   `mapstructure:"development"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaCfg struct {
	Brokers            []string `mapstructure:"brokers"`
	NotificationsTopic string   `mapstructure:"notifications_topic"`
}

type JWTCfg struct {
	Algorithm     string `mapstructure:"algorithm"` // HS256 or RS256
	HSSecret      string `mapstructure:"hs_secret"`
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type IdentityCfg struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type WSCfg struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageBytes      int64 `mapstructure:"max_message_bytes"`
	SendBuffer           int   `mapstructure:"send_buffer"`
}

type Config struct {
	App             AppCfg      `mapstructure:"app"`
	Mongo           MongoCfg    `mapstructure:"mongo"`
	Redis           RedisCfg    `mapstructure:"redis"`
	Kafka           KafkaCfg    `mapstructure:"kafka"`
	JWT             JWTCfg      `mapstructure:"jwt"`
	Identity        IdentityCfg `mapstructure:"identity"`
	WS              WSCfg       `mapstructure:"ws"`
	RateLimitPerMin int         `mapstructure:"rate_limit_per_min"`

	// Derived
	IdentityTimeout time.Duration
	PingInterval    time.Duration
	WriteDeadline   time.Duration
}

// Load reads the yaml config at path and applies APP_ prefixed env overrides
// (APP_MONGO_URI, APP_APP_PORT, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.port", "8080")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "voxsynq")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.notifications_topic", "notification.requested")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("identity.timeout_seconds", 3)
	v.SetDefault("ws.ping_interval_seconds", 30)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_bytes", 64*1024)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("rate_limit_per_min", 300)

	if err := v.ReadInConfig(); err != nil {
		// config file is optional when env vars carry everything
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.IdentityTimeout = time.Duration(cfg.Identity.TimeoutSeconds) * time.Second
	cfg.PingInterval = time.Duration(cfg.WS.PingIntervalSeconds) * time.Second
	cfg.WriteDeadline = time.Duration(cfg.WS.WriteDeadlineSeconds) * time.Second
	return &cfg, nil
}
