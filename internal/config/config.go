/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * Economy tunables (level thresholds, treasure box thresholds, cashback
 * parameters) are configuration, never code constants, so operations can
 * retune the economy without a deploy.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultLevelThresholds       = "0,500,2500,10000,50000,200000,1000000,5000000,20000000,100000000"
	defaultTreasureBoxThresholds = "50000,100000,200000,500000,1000000"
)

// Config holds all the configuration variables for the gifting-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string  `mapstructure:"SERVER_PORT"`
	DatabaseURL             string  `mapstructure:"DATABASE_URL"`
	RedisURL                string  `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string  `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RedisContributionPrefix string  `mapstructure:"REDIS_CONTRIBUTION_PREFIX"`
	RabbitMQURL             string  `mapstructure:"RABBITMQ_URL"`
	JWTSecret               string  `mapstructure:"JWT_SECRET"`
	LevelThresholds         string  `mapstructure:"LEVEL_THRESHOLDS"`
	TreasureBoxThresholds   string  `mapstructure:"TREASURE_BOX_THRESHOLDS"`
	CashbackProbabilityPct  int     `mapstructure:"CASHBACK_PROBABILITY_PCT"`
	CashbackMaxShare        float64 `mapstructure:"CASHBACK_MAX_SHARE"`
	CashbackWindowSeconds   int     `mapstructure:"CASHBACK_WINDOW_SECONDS"`
	BeansPerDiamond         int64   `mapstructure:"BEANS_PER_DIAMOND"`
	GiftRateLimitPerMinute  int     `mapstructure:"GIFT_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "usefuns:rate_limit")
	viper.SetDefault("REDIS_CONTRIBUTION_PREFIX", "usefuns:contribution")
	viper.SetDefault("LEVEL_THRESHOLDS", defaultLevelThresholds)
	viper.SetDefault("TREASURE_BOX_THRESHOLDS", defaultTreasureBoxThresholds)
	viper.SetDefault("CASHBACK_PROBABILITY_PCT", 30)
	viper.SetDefault("CASHBACK_MAX_SHARE", 0.1)
	viper.SetDefault("CASHBACK_WINDOW_SECONDS", 300)
	viper.SetDefault("BEANS_PER_DIAMOND", 1)
	viper.SetDefault("GIFT_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "GIFTING_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("REDIS_CONTRIBUTION_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("LEVEL_THRESHOLDS")
	_ = viper.BindEnv("TREASURE_BOX_THRESHOLDS")
	_ = viper.BindEnv("CASHBACK_PROBABILITY_PCT")
	_ = viper.BindEnv("CASHBACK_MAX_SHARE")
	_ = viper.BindEnv("CASHBACK_WINDOW_SECONDS")
	_ = viper.BindEnv("BEANS_PER_DIAMOND")
	_ = viper.BindEnv("GIFT_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "usefuns:rate_limit"
	}
	config.RedisContributionPrefix = strings.TrimSpace(config.RedisContributionPrefix)
	if config.RedisContributionPrefix == "" {
		config.RedisContributionPrefix = "usefuns:contribution"
	}
	if strings.TrimSpace(config.LevelThresholds) == "" {
		config.LevelThresholds = defaultLevelThresholds
	}
	if strings.TrimSpace(config.TreasureBoxThresholds) == "" {
		config.TreasureBoxThresholds = defaultTreasureBoxThresholds
	}

	if config.CashbackProbabilityPct < 0 {
		log.Printf("level=warn component=config msg=\"negative cashback probability configured; coercing to zero\" pct=%d", config.CashbackProbabilityPct)
		config.CashbackProbabilityPct = 0
	}
	if config.CashbackProbabilityPct > 100 {
		log.Printf("level=warn component=config msg=\"cashback probability too high; capping at 100\" pct=%d", config.CashbackProbabilityPct)
		config.CashbackProbabilityPct = 100
	}
	if config.CashbackMaxShare < 0 {
		log.Printf("level=warn component=config msg=\"negative cashback share configured; coercing to zero\" share=%f", config.CashbackMaxShare)
		config.CashbackMaxShare = 0
	}
	if config.CashbackMaxShare > 1 {
		log.Printf("level=warn component=config msg=\"cashback share too high; capping at 1.0\" share=%f", config.CashbackMaxShare)
		config.CashbackMaxShare = 1
	}
	if config.CashbackWindowSeconds <= 0 {
		config.CashbackWindowSeconds = 300
	}
	if config.BeansPerDiamond <= 0 {
		config.BeansPerDiamond = 1
	}
	if config.GiftRateLimitPerMinute <= 0 {
		config.GiftRateLimitPerMinute = 60
	}

	return
}

// SplitList splits a comma-separated configuration value, dropping empty
// entries. Used for the level and treasure box threshold lists.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
