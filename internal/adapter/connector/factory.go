package connector

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/olla4/internal/core/domain"
	"github.com/thushan/olla4/internal/core/ports"
)

// PrefixedConfig pairs a path prefix with the partial connector config that
// applies to every destination name under it.
type PrefixedConfig struct {
	Prefix domain.Path
	Config Config
}

// Factory implements ports.ConnectorFactory. Grounded on connector/mod.rs's
// ConnectorFactory: either a single global Connector, or an ordered list of
// prefix/config pairs folded together per destination name.
type Factory struct {
	global   *Connector
	prefixed []PrefixedConfig
	cache    *xsync.Map[string, ports.Connector]
}

// NewGlobal builds a factory that returns the same Connector for every path.
func NewGlobal(cfg Config) *Factory {
	return &Factory{global: New(cfg)}
}

// NewPrefixed builds a factory that folds every PrefixedConfig whose prefix is
// a prefix of the requested destination path into a fresh Config, then mints a
// Connector from the fold. Per-name connectors are cached since the set of
// configurations is itself static.
func NewPrefixed(prefixed []PrefixedConfig) *Factory {
	return &Factory{
		prefixed: prefixed,
		cache:    xsync.NewMap[string, ports.Connector](),
	}
}

func (f *Factory) Connector(dst domain.Path) (ports.Connector, error) {
	if f.global != nil {
		return f.global, nil
	}

	key := dst.String()
	if c, ok := f.cache.Load(key); ok {
		return c, nil
	}

	cfg := Config{}
	for _, pc := range f.prefixed {
		if pc.Prefix.StartsWith(dst) {
			cfg = cfg.Update(pc.Config)
		}
	}

	conn := New(cfg)
	actual, _ := f.cache.LoadOrStore(key, conn)
	return actual, nil
}
