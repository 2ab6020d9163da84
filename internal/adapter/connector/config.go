package connector

import (
	"crypto/tls"
	"time"
)

// TLSConfig is a connector's client-side TLS configuration (spec.md §6.1
// `client.tls`): the SNI name to present and the set of trusted CAs.
type TLSConfig struct {
	Name   string
	Config *tls.Config
}

// Config is the immutable set of knobs a Connector is built from, grounded on
// connector/mod.rs's Connector fields (connect_timeout, tls, max_waiters,
// min_connections, fail_limit, fail_penalty).
type Config struct {
	ConnectTimeout time.Duration
	TLS            *TLSConfig
	MaxWaiters     int
	MinConnections int
	FailureLimit   int
	FailurePenalty time.Duration
	WaiterTimeout  time.Duration // 0 disables; see SPEC_FULL.md supplemented features
}

const (
	DefaultMaxWaiters = 8
)

// Update folds other's non-zero-value fields onto c, matching
// connector/mod.rs's ConnectorConfig::update prefix-folding semantics: later,
// more specific entries override earlier, less specific ones field-by-field.
func (c Config) Update(other Config) Config {
	if other.ConnectTimeout != 0 {
		c.ConnectTimeout = other.ConnectTimeout
	}
	if other.TLS != nil {
		c.TLS = other.TLS
	}
	if other.MaxWaiters != 0 {
		c.MaxWaiters = other.MaxWaiters
	}
	if other.MinConnections != 0 {
		c.MinConnections = other.MinConnections
	}
	if other.FailureLimit != 0 {
		c.FailureLimit = other.FailureLimit
	}
	if other.FailurePenalty != 0 {
		c.FailurePenalty = other.FailurePenalty
	}
	if other.WaiterTimeout != 0 {
		c.WaiterTimeout = other.WaiterTimeout
	}
	return c
}

func (c Config) withDefaults() Config {
	if c.MaxWaiters == 0 {
		c.MaxWaiters = DefaultMaxWaiters
	}
	return c
}
