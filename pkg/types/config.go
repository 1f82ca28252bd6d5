// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds HTTP settings for requests to the citation service.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. A timeout surfaces as a
	// transient network failure.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "tallies/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ServiceConfig locates the citation-analysis service.
type ServiceConfig struct {
	// APIBase is the tallies endpoint; requests go to APIBase/<doi>.
	APIBase string `json:"api_base" yaml:"api_base" mapstructure:"api_base"`

	// ReportBase prefixes the URL-encoded DOI to build the full report URL.
	ReportBase string `json:"report_base" yaml:"report_base" mapstructure:"report_base"`

	// RateLimitRetries is the number of retries on HTTP 429 (default 0).
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// CacheConfig bounds the in-memory result cache.
type CacheConfig struct {
	// MaxEntries caps the number of cached DOIs. Zero means unbounded.
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`
}

// LibraryConfig locates the bibliography the CLI reads entries from.
type LibraryConfig struct {
	// Path is a CSL-YAML, CSL-JSON, or SQLite library file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups all settings.
type Config struct {
	HTTP     HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Service  ServiceConfig `json:"service" yaml:"service" mapstructure:"service"`
	Cache    CacheConfig   `json:"cache" yaml:"cache" mapstructure:"cache"`
	Library  LibraryConfig `json:"library" yaml:"library" mapstructure:"library"`
	LogLevel string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}
