package store

// Config controls the capture store.
type Config struct {
	// StoragePath is the directory holding captures.db and the blobs/ tree.
	StoragePath string `json:"storage_path" yaml:"storage_path"`

	// RedactSensitiveHeaders replaces credential-bearing header values with
	// RedactedValue before they are written. nil means true.
	RedactSensitiveHeaders *bool `json:"redact_sensitive_headers,omitempty" yaml:"redact_sensitive_headers"`

	// MaxBodyBytes truncates stored bodies. 0 stores them whole.
	MaxBodyBytes int `json:"max_body_bytes,omitempty" yaml:"max_body_bytes"`
}

func (c *Config) redact() bool {
	return c.RedactSensitiveHeaders == nil || *c.RedactSensitiveHeaders
}
