package network

import "time"

// Config tunes the interceptor. The zero value captures everything.
type Config struct {
	// MaxCaptureBytes caps the body bytes copied into capture records.
	// The caller still receives the complete body. 0 means no cap.
	MaxCaptureBytes int `json:"max_capture_bytes,omitempty" yaml:"max_capture_bytes"`

	// Now returns the wall-clock time used for timestamps. Defaults to time.Now.
	Now func() time.Time `json:"-" yaml:"-"`

	// NewID returns a fresh correlation id. Defaults to a random UUID.
	NewID func() string `json:"-" yaml:"-"`
}
