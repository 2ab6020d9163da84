package proxy

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/thushan/olla4/internal/config"
	"github.com/thushan/olla4/internal/core/domain"
)

// buildServerTLS turns a server's spec.md §6.1 `io.l5d.tls` fields into a
// crypto/tls.Config: a default certificate, optional per-SNI-name identities
// served via GetCertificate, and the configured ALPN protocol list.
func buildServerTLS(s config.ServerConfig) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: s.AlpnProtocols,
	}

	certsByName := make(map[string]tls.Certificate, len(s.Identities))
	for name, identity := range s.Identities {
		cert, err := loadIdentity(identity)
		if err != nil {
			return nil, domain.NewConfigError("identities."+name, "cannot load TLS identity", err)
		}
		certsByName[name] = cert
	}

	var defaultCert *tls.Certificate
	if s.DefaultIdentity != nil {
		cert, err := loadIdentity(*s.DefaultIdentity)
		if err != nil {
			return nil, domain.NewConfigError("defaultIdentity", "cannot load TLS identity", err)
		}
		defaultCert = &cert
	}

	cfg.GetCertificate = func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		if cert, ok := certsByName[hello.ServerName]; ok {
			return &cert, nil
		}
		if defaultCert != nil {
			return defaultCert, nil
		}
		return nil, domain.NewConfigError("tls", "no certificate for SNI name "+hello.ServerName, nil)
	}

	return cfg, nil
}

// buildClientTLS turns a proxy's `client.tls` block into a crypto/tls.Config
// used by the connector to dial endpoints. A nil TrustCertPaths falls back to
// the system root pool.
func buildClientTLS(c *config.ClientTLSConfig) (name string, cfg *tls.Config, err error) {
	if c == nil {
		return "", nil, nil
	}

	cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	if len(c.TrustCertPaths) > 0 {
		pool := x509.NewCertPool()
		for _, path := range c.TrustCertPaths {
			pem, readErr := os.ReadFile(path)
			if readErr != nil {
				return "", nil, domain.NewConfigError("client.tls.trustCertPaths", "cannot read trust cert", readErr)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return "", nil, domain.NewConfigError("client.tls.trustCertPaths", "no valid certs in "+path, nil)
			}
		}
		cfg.RootCAs = pool
	}

	return c.Name, cfg, nil
}

// loadIdentity concatenates every PEM file in CertPaths (leaf followed by any
// intermediates) into a single certificate chain paired with the private key.
func loadIdentity(identity config.Identity) (tls.Certificate, error) {
	if len(identity.CertPaths) == 0 {
		return tls.Certificate{}, domain.NewConfigError("certPaths", "at least one cert path is required", nil)
	}

	var certPEM []byte
	for _, path := range identity.CertPaths {
		chunk, err := os.ReadFile(path)
		if err != nil {
			return tls.Certificate{}, err
		}
		certPEM = append(certPEM, chunk...)
	}

	keyPEM, err := os.ReadFile(identity.PrivateKeyPath)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}
