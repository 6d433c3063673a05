package config

import "time"

// Config is the root configuration for the wstap tool.
type Config struct {
	Target    TargetConfig    `yaml:"target"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Log       LogConfig       `yaml:"log"`
}

// TargetConfig identifies the WebSocket endpoint to connect to.
type TargetConfig struct {
	URL       string   `yaml:"url"`
	Protocols []string `yaml:"protocols"`
}

// ReconnectConfig holds the backoff parameters for the reconnect engine.
type ReconnectConfig struct {
	Disabled            bool          `yaml:"disabled"`
	InitialInterval     time.Duration `yaml:"initial_interval"`
	MaxInterval         time.Duration `yaml:"max_interval"`
	Multiplier          float64       `yaml:"multiplier"`
	RandomizationFactor float64       `yaml:"randomization_factor"`
}

// RecorderConfig holds frame recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds the Postgres connection for recorded frames.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
