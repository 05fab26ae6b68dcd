package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisDB      int           `mapstructure:"redis_db"`
	NotifyBuffer int           `mapstructure:"notify_buffer"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`

	Conference ConferenceDefaults `mapstructure:"conference"`
}

// ConferenceDefaults seeds the configuration of a conference created on
// first join.
type ConferenceDefaults struct {
	ShowTyping          bool           `mapstructure:"show_typing"`
	Permissions         map[string]any `mapstructure:"permissions"`
	RoomSceneControlled bool           `mapstructure:"room_scene_controlled"`
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
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("notify_buffer", 64)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("conference.show_typing", true)
	v.SetDefault("conference.room_scene_controlled", false)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Redis: %s\n", cfg.Mode, cfg.Port, cfg.RedisAddr)
	return &cfg, nil
}
