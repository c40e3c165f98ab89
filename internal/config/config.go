package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	MongoURI      string        `mapstructure:"mongo_uri"`
	MongoDB       string        `mapstructure:"mongo_db"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	AllowedOrigin string        `mapstructure:"allowed_origin"`
	HistoryLimit  int64         `mapstructure:"history_limit"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "circlechat")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("allowed_origin", "*")
	v.SetDefault("history_limit", 50)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("write_timeout", "5s")

	v.SetEnvPrefix("circlechat")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | DB: %s\n", cfg.Mode, cfg.Port, cfg.MongoDB)
	return &cfg, nil
}
