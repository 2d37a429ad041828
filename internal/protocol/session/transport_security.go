package session

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrTLSKeyFileRequired  = errors.New("session: tls key file required")
	ErrTLSCertFileRequired = errors.New("session: tls cert file required")
	ErrTLSInvalidCA        = errors.New("session: tls ca file has no certificates")
)

// ValidateClientTransport checks the TLS settings used for rtmps links.
func (c TLSConfig) ValidateClientTransport() error {
	hasCert := strings.TrimSpace(c.CertFile) != ""
	hasKey := strings.TrimSpace(c.KeyFile) != ""
	if hasCert && !hasKey {
		return ErrTLSKeyFileRequired
	}
	if hasKey && !hasCert {
		return ErrTLSCertFileRequired
	}
	return nil
}

// ClientTLSConfig builds the crypto/tls client config for host. Without a CA file
// the system roots are used.
func (c TLSConfig) ClientTLSConfig(host string) (*tls.Config, error) {
	if err := c.ValidateClientTransport(); err != nil {
		return nil, err
	}
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         host,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if name := strings.TrimSpace(c.ServerName); name != "" {
		out.ServerName = name
	}
	if caFile := strings.TrimSpace(c.CAFile); caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("session: read tls ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrTLSInvalidCA
		}
		out.RootCAs = pool
	}
	if strings.TrimSpace(c.CertFile) != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("session: load tls client cert: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}
