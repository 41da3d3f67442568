package config

import (
	"fmt"
	"strings"
)

var validTLSPolicies = map[string]bool{
	"require":       true,
	"opportunistic": true,
	"ignore":        true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for required fields and invalid values.
// It collects all failures into a single error so the operator sees every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	// Transport
	if c.Transport.URL == "" {
		errs = append(errs, "transport.url is required")
	}
	if !validTLSPolicies[c.Transport.TLSPolicy] {
		errs = append(errs, fmt.Sprintf("transport.tls_policy must be one of require, opportunistic, ignore (got %q)", c.Transport.TLSPolicy))
	}

	// Pool
	if c.Pool.MaxConnections < 1 {
		errs = append(errs, "pool.max_connections must be at least 1")
	}
	if c.Pool.MaxMessages < 1 {
		errs = append(errs, "pool.max_messages must be at least 1")
	}
	if c.Pool.RateLimit < 1 {
		errs = append(errs, "pool.rate_limit must be at least 1")
	}
	if c.Pool.RateWindow <= 0 {
		errs = append(errs, "pool.rate_window must be positive")
	}

	// DKIM: all-or-nothing
	dkimSet := 0
	for _, v := range []string{c.DKIM.Domain, c.DKIM.Selector, c.DKIM.KeyFile} {
		if v != "" {
			dkimSet++
		}
	}
	if dkimSet != 0 && dkimSet != 3 {
		errs = append(errs, "dkim.domain, dkim.selector, and dkim.key_file must all be set to enable signing")
	}
	if c.DKIM.KeyBits != 0 && c.DKIM.KeyBits < 1024 {
		errs = append(errs, "dkim.key_bits must be at least 1024")
	}

	// Logging
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", c.Logging.Format))
	}

	// Observability
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		errs = append(errs, "observability.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
