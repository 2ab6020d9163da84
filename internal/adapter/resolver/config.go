package resolver

import "time"

// Config configures a Namerd resolver instance. One Config is built per proxy's
// `namerd` block (spec.md §6.1): addr and namespace select the naming service
// endpoint, interval paces the polling loop. The path to resolve is passed to
// Resolve.
type Config struct {
	Addr      string
	Namespace string
	Interval  time.Duration
}

const (
	DefaultNamespace = "default"
	DefaultInterval  = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}
