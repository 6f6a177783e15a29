package live

import (
	"log/slog"
	"net/http"
	"time"
)

// Config configures a Bridge.
type Config struct {
	// Logger receives connection and dispatch logs.
	// Default: slog.Default().
	Logger *slog.Logger

	// DispatchQueue is the buffer size of the dispatch channel.
	DispatchQueue int

	// SendBuffer is the per-connection outbound frame buffer. A client
	// that falls this many frames behind is disconnected.
	SendBuffer int

	// ReadTimeout bounds how long a connection may stay silent.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration

	// CheckOrigin validates WebSocket upgrade origins.
	// Default: accept same-origin only (gorilla's default).
	CheckOrigin func(*http.Request) bool
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Config)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDispatchQueue sets the dispatch channel buffer.
func WithDispatchQueue(n int) BridgeOption {
	return func(c *Config) {
		c.DispatchQueue = n
	}
}

// WithSendBuffer sets the per-connection outbound buffer.
func WithSendBuffer(n int) BridgeOption {
	return func(c *Config) {
		c.SendBuffer = n
	}
}

// WithReadTimeout sets the connection read deadline interval.
func WithReadTimeout(d time.Duration) BridgeOption {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithWriteTimeout sets the per-frame write deadline.
func WithWriteTimeout(d time.Duration) BridgeOption {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(fn func(*http.Request) bool) BridgeOption {
	return func(c *Config) {
		c.CheckOrigin = fn
	}
}

func defaultBridgeConfig() Config {
	return Config{
		Logger:        slog.Default(),
		DispatchQueue: 64,
		SendBuffer:    32,
		ReadTimeout:   60 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}
