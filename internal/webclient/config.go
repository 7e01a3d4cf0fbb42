package webclient

import "time"

// Config controls the web client.
type Config struct {
	// Timeout bounds a whole request including the body read. 0 uses 30s.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout"`

	// UserAgent is set on requests that do not carry one.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent"`
}

const defaultTimeout = 30 * time.Second
