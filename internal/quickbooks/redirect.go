package quickbooks

import (
	"net/url"
	"strings"

	"github.com/equipqr/equipqr-backend/pkg/config"
)

// validateRedirectTarget decides whether a stored post-connect redirect may be
// used. Only the production host, local development hosts, and configured
// preview domains are allowed; anything else falls back to the production base
// so the callback can never become an open redirect.
func validateRedirectTarget(cfg config.QuickBooksConfig, target string) string {
	fallback := strings.TrimRight(strings.TrimSpace(cfg.ProductionBase), "/")

	target = strings.TrimSpace(target)
	if target == "" {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fallback
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" {
		return target
	}

	if prod, err := url.Parse(fallback); err == nil {
		if host == strings.ToLower(prod.Hostname()) {
			return target
		}
	}

	for _, suffix := range cfg.PreviewSuffixes {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if strings.HasSuffix(host, suffix) {
			return target
		}
	}

	return fallback
}

// appendQuery adds status parameters to a redirect URL, preserving whatever
// query string it already carries.
func appendQuery(target string, params map[string]string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	for key, value := range params {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
