package config

// Document is the top-level configuration shape (spec.md §6.1): one or more
// proxies, each wrapping a set of inbound servers, a namerd resolver, and
// optional client TLS / admission settings.
type Document struct {
	BufferSize int            `yaml:"bufferSize,omitempty" json:"bufferSize,omitempty"`
	Proxies    []ProxyConfig  `yaml:"proxies" json:"proxies"`
	Logging    *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// ProxyConfig describes one proxy instance: its inbound servers, the name it
// resolves via namerd, and overrides for its connector.
type ProxyConfig struct {
	Servers    []ServerConfig `yaml:"servers" json:"servers"`
	Namerd     NamerdConfig   `yaml:"namerd" json:"namerd"`
	Client     *ClientConfig  `yaml:"client,omitempty" json:"client,omitempty"`
	MaxWaiters *uint          `yaml:"maxWaiters,omitempty" json:"maxWaiters,omitempty"`
}

// ServerConfig is one inbound listening socket. Kind is "io.l5d.tcp" for
// plain TCP or "io.l5d.tls" for a TLS-terminating listener.
type ServerConfig struct {
	Kind            string              `yaml:"kind" json:"kind"`
	Addr            string              `yaml:"addr" json:"addr"`
	AlpnProtocols   []string            `yaml:"alpnProtocols,omitempty" json:"alpnProtocols,omitempty"`
	DefaultIdentity *Identity           `yaml:"defaultIdentity,omitempty" json:"defaultIdentity,omitempty"`
	Identities      map[string]Identity `yaml:"identities,omitempty" json:"identities,omitempty"`
}

// Identity is a certificate/private-key pair used by a TLS server socket,
// keyed by SNI name in ServerConfig.Identities.
type Identity struct {
	CertPaths      []string `yaml:"certPaths" json:"certPaths"`
	PrivateKeyPath string   `yaml:"privateKeyPath" json:"privateKeyPath"`
}

// NamerdConfig identifies the logical name this proxy resolves and how often.
type NamerdConfig struct {
	Addr         string `yaml:"addr" json:"addr"`
	Path         string `yaml:"path" json:"path"`
	Namespace    string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	IntervalSecs *uint  `yaml:"intervalSecs,omitempty" json:"intervalSecs,omitempty"`
}

// ClientConfig holds outbound (connector-side) settings for a proxy.
type ClientConfig struct {
	TLS *ClientTLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// ClientTLSConfig is the connector's client-TLS configuration: the SNI name
// to present and the trust anchors to validate the peer against.
type ClientTLSConfig struct {
	Name           string   `yaml:"name" json:"name"`
	TrustCertPaths []string `yaml:"trustCertPaths,omitempty" json:"trustCertPaths,omitempty"`
}

// LoggingConfig is the ambient logging configuration, not part of spec.md's
// core schema but carried the way the teacher's own config always does.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

const (
	DefaultBufferSize   = 64 * 1024
	DefaultIntervalSecs = 60
	DefaultNamespace    = "default"
	DefaultMaxWaiters   = 8
)

// WithDefaults returns a copy of d with every spec.md §6.1 default applied.
func (d Document) WithDefaults() Document {
	if d.BufferSize == 0 {
		d.BufferSize = DefaultBufferSize
	}
	for i := range d.Proxies {
		d.Proxies[i] = d.Proxies[i].withDefaults()
	}
	return d
}

func (p ProxyConfig) withDefaults() ProxyConfig {
	if p.Namerd.Namespace == "" {
		p.Namerd.Namespace = DefaultNamespace
	}
	if p.Namerd.IntervalSecs == nil {
		secs := uint(DefaultIntervalSecs)
		p.Namerd.IntervalSecs = &secs
	}
	if p.MaxWaiters == nil {
		w := uint(DefaultMaxWaiters)
		p.MaxWaiters = &w
	}
	return p
}
