package server

import "time"

type Config struct {
	// ListenAddr is the HTTP listen address for the inspection API.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// ClientQueueSize bounds the messages buffered per websocket client.
	// A client whose queue fills up is disconnected.
	ClientQueueSize int `json:"client_queue_size,omitempty" yaml:"client_queue_size"`

	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout"`

	// MaxOverlaySize caps width and height accepted by POST /overlay.
	MaxOverlaySize int `json:"max_overlay_size,omitempty" yaml:"max_overlay_size"`

	// MaxBodyBytes caps request bodies accepted by the API.
	MaxBodyBytes int64 `json:"max_body_bytes,omitempty" yaml:"max_body_bytes"`

	// OverlayDensity is used when an overlay request omits density.
	OverlayDensity float64 `json:"overlay_density,omitempty" yaml:"overlay_density"`
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8089",
		ClientQueueSize: 256,
		WriteTimeout:    10 * time.Second,
		MaxOverlaySize:  4096,
		MaxBodyBytes:    1 << 20,
		OverlayDensity:  1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.ClientQueueSize <= 0 {
		c.ClientQueueSize = d.ClientQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxOverlaySize <= 0 {
		c.MaxOverlaySize = d.MaxOverlaySize
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.OverlayDensity <= 0 {
		c.OverlayDensity = d.OverlayDensity
	}
	return c
}
