package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *RecorderConfig) Validate() error {
	if c.Feed.WSURL == "" {
		return errors.New("feed.ws_url is required")
	}
	if !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("feed.ws_url must use ws:// or wss://, got %q", c.Feed.WSURL)
	}
	if c.Feed.Channel == "" {
		return errors.New("feed.channel is required")
	}
	if c.Feed.KeepaliveInterval <= 0 {
		return errors.New("feed.keepalive_interval must be > 0")
	}
	if c.Feed.IdleInterval <= 0 {
		return errors.New("feed.idle_interval must be > 0")
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}

	if c.Input.InstrumentsPath == "" && len(c.Input.Instruments) == 0 {
		return errors.New("input.instruments_path or input.instruments is required")
	}

	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}
	if c.Output.QueueCapacity < 1 {
		return errors.New("output.queue_capacity must be >= 1")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
