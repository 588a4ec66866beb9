package config

import (
	"path/filepath"
	"time"
)

// RecorderConfig is the root configuration for a recorder instance.
type RecorderConfig struct {
	Feed    FeedConfig    `yaml:"feed"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// FeedConfig holds the WebSocket feed settings.
type FeedConfig struct {
	WSURL             string        `yaml:"ws_url"`
	Channel           string        `yaml:"channel"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	IdleInterval      time.Duration `yaml:"idle_interval"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"` // inbound frame channel capacity
}

// InputConfig names the instruments to subscribe.
// InstrumentsPath takes precedence over the inline list.
type InputConfig struct {
	InstrumentsPath string   `yaml:"instruments_path"`
	Instruments     []string `yaml:"instruments"`
}

// OutputConfig holds the per-channel file settings.
type OutputConfig struct {
	Dir           string `yaml:"dir"`
	QueueCapacity int    `yaml:"queue_capacity"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // relative paths resolve inside output.dir; "-" disables
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogPath returns the log file location, or "" when file logging is off.
func (c *RecorderConfig) LogPath() string {
	if c.Log.File == "" || c.Log.File == "-" {
		return ""
	}
	if filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(c.Output.Dir, c.Log.File)
}
