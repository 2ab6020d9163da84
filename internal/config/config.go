package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/thushan/olla4/internal/core/domain"
)

const (
	// EnvPrefix is the environment-variable prefix for config overrides, e.g.
	// OLLA4_BUFFERSIZE. Entries inside the proxies list cannot be overridden
	// this way.
	EnvPrefix = "OLLA4"

	DefaultFileWriteDelay = 150 * time.Millisecond
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// sniffConfigType returns "yaml" or "json" by inspecting the first
// non-whitespace byte of content, per spec.md §6.1's auto-detection rule.
func sniffConfigType(content []byte) string {
	trimmed := bytes.TrimLeftFunc(content, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return "json"
	}
	return "yaml"
}

// Load reads the configuration document at path, applies OLLA4_* environment
// overrides, fills in spec.md §6.1 defaults and returns the result. Unknown
// keys in the document are rejected, matching spec.md's "additional/unknown
// keys are rejected" invariant. A malformed or unreadable document surfaces
// as a *domain.ConfigError, fatal at startup per spec.md §7.
func Load(path string, onConfigChange func()) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigError(path, "cannot read config file", err)
	}

	v := viper.New()
	v.SetConfigType(sniffConfigType(content))
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, domain.NewConfigError(path, "cannot parse config file", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("bufferSize")

	var doc Document
	decodeOpt := viper.DecoderConfigOption(func(c *mapstructure.DecoderConfig) {
		c.ErrorUnused = true
		c.TagName = "yaml"
	})
	if err := v.Unmarshal(&doc, decodeOpt); err != nil {
		return nil, domain.NewConfigError(path, "unknown or malformed field", err)
	}

	doc = doc.WithDefaults()
	if err := validate(doc); err != nil {
		return nil, err
	}

	if onConfigChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return
			}
			lastReload = now

			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
		v.WatchConfig()
	}

	return &doc, nil
}

// validate checks the structural invariants Load's decode step can't: at
// least one proxy, at least one server per proxy, a recognised server kind,
// and a non-empty namerd address/path.
func validate(doc Document) error {
	if len(doc.Proxies) == 0 {
		return domain.NewConfigError("proxies", "at least one proxy is required", nil)
	}
	for i, p := range doc.Proxies {
		if len(p.Servers) == 0 {
			return domain.NewConfigError(fmt.Sprintf("proxies[%d].servers", i), "at least one server is required", nil)
		}
		for j, s := range p.Servers {
			switch s.Kind {
			case "io.l5d.tcp", "io.l5d.tls":
			default:
				return domain.NewConfigError(fmt.Sprintf("proxies[%d].servers[%d].kind", i, j), "must be io.l5d.tcp or io.l5d.tls", nil)
			}
			if s.Addr == "" {
				return domain.NewConfigError(fmt.Sprintf("proxies[%d].servers[%d].addr", i, j), "must not be empty", nil)
			}
			if s.Kind == "io.l5d.tls" && s.DefaultIdentity == nil && len(s.Identities) == 0 {
				return domain.NewConfigError(fmt.Sprintf("proxies[%d].servers[%d]", i, j), "io.l5d.tls requires defaultIdentity or identities", nil)
			}
		}
		if p.Namerd.Addr == "" {
			return domain.NewConfigError(fmt.Sprintf("proxies[%d].namerd.addr", i), "must not be empty", nil)
		}
		if p.Namerd.Path == "" {
			return domain.NewConfigError(fmt.Sprintf("proxies[%d].namerd.path", i), "must not be empty", nil)
		}
	}
	return nil
}
