// Package tlsauto serves the moderation API over HTTPS with certificates
// managed by certmagic. It is only engaged when a public TLS domain is
// configured; local and behind-proxy deployments stay on plain HTTP.
package tlsauto

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/caddyserver/certmagic"
)

// CertManager provisions and renews the certificate for the configured domain.
type CertManager struct {
	domain string
	logger *slog.Logger
	cfg    *certmagic.Config
}

// NewCertManager creates a manager restricted to exactly one domain.
func NewCertManager(domain, acmeEmail string, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = acmeEmail
	certmagic.DefaultACME.Agreed = true

	if os.Getenv("QUELL_ENV") != "production" {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	cfg := certmagic.NewDefault()
	cm := &CertManager{domain: domain, logger: logger, cfg: cfg}

	cfg.OnDemand = &certmagic.OnDemandConfig{
		DecisionFunc: cm.allowCert,
	}
	return cm
}

// allowCert only permits certificates for the single configured domain.
func (cm *CertManager) allowCert(_ context.Context, name string) error {
	if name != cm.domain {
		return fmt.Errorf("unknown domain: %s", name)
	}
	return nil
}

// ListenAndServe manages the domain's certificate, then serves the handler
// over TLS on port 443.
func (cm *CertManager) ListenAndServe(ctx context.Context, handler http.Handler) error {
	if err := cm.cfg.ManageSync(ctx, []string{cm.domain}); err != nil {
		return fmt.Errorf("manage certificate: %w", err)
	}

	tlsConfig := cm.cfg.TLSConfig()
	tlsConfig.NextProtos = append([]string{"h2", "http/1.1"}, tlsConfig.NextProtos...)

	srv := &http.Server{
		Addr:      ":443",
		Handler:   handler,
		TLSConfig: tlsConfig,
	}
	cm.logger.Info("serving HTTPS", "domain", cm.domain)
	return srv.ListenAndServeTLS("", "")
}
