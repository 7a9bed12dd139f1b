package config

import "time"

// Config holds relay configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MaxRoomSize caps members per room; zero disables the cap.
	MaxRoomSize int `mapstructure:"max_room_size" yaml:"max_room_size"`

	// RateLimitPerIP is the sustained rate of new connections allowed per
	// client IP, per second. Zero disables rate limiting.
	RateLimitPerIP float64 `mapstructure:"rate_limit_per_ip" yaml:"rate_limit_per_ip"`

	// EnforceHost drops start/transport-control frames from members other
	// than the room's recorded host. Off by default: the original protocol
	// trusts clients to respect host roles.
	EnforceHost bool `mapstructure:"enforce_host" yaml:"enforce_host"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxRoomSize:       0,
		RateLimitPerIP:    10,
		EnforceHost:       false,
	}
}
