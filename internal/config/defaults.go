package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSURL             = "wss://api.bitfinex.com/ws/2"
	DefaultChannel           = "trades"
	DefaultKeepaliveInterval = 300 * time.Second
	DefaultIdleInterval      = 10 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultBufferSize        = 10000
	DefaultQueueCapacity     = 1024
	DefaultLogLevel          = "info"
	DefaultLogFile           = "recorder.log"
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

// ApplyDefaults fills unset fields. Command-line overrides should be
// applied before calling it.
func (c *RecorderConfig) ApplyDefaults() {
	// Feed defaults
	if c.Feed.WSURL == "" {
		c.Feed.WSURL = DefaultWSURL
	}
	if c.Feed.Channel == "" {
		c.Feed.Channel = DefaultChannel
	}
	if c.Feed.KeepaliveInterval == 0 {
		c.Feed.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Feed.IdleInterval == 0 {
		c.Feed.IdleInterval = DefaultIdleInterval
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultBufferSize
	}

	if c.Output.QueueCapacity == 0 {
		c.Output.QueueCapacity = DefaultQueueCapacity
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
