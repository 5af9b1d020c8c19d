package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// CaseInsensitiveRooms controls whether two differently-cased room
	// names refer to the same room. Lookup keys are lower-cased when true;
	// the display name keeps the creator's casing either way.
	CaseInsensitiveRooms bool `mapstructure:"case_insensitive_rooms" yaml:"case_insensitive_rooms"`

	// MaxMessageLength rejects oversized message bodies before persistence.
	MaxMessageLength int `mapstructure:"max_message_length" yaml:"max_message_length"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		DatabasePath:         "privatechat.db",
		LogLevel:             "info",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		JWTSecret:            "change-me",
		JWTIssuer:            "privatechat",
		JWTAudience:          "privatechat-clients",
		JWTTTL:               24 * time.Hour,
		CaseInsensitiveRooms: true,
		MaxMessageLength:     4096,
	}
}
