package validation

import (
	"net/url"
	"strings"

	apperrors "go-dashboard-inspector/internal/errors"
)

// URLValidator checks Grafana endpoints and remote screenshot URLs
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator accepts http and https on any host
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{},
	}
}

// NewURLValidatorWithOptions restricts schemes and, when hosts is non-empty, hosts
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateURL parses raw and checks scheme and host
func (v *URLValidator) ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}
	if !v.isSchemeAllowed(strings.ToLower(parsed.Scheme)) {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if parsed.Host == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if !v.isHostAllowed(parsed.Hostname()) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}
	return parsed, nil
}

// NormalizeBaseURL validates a service root such as a Grafana URL and
// returns it without query, fragment or trailing slash
func (v *URLValidator) NormalizeBaseURL(raw string) (string, error) {
	parsed, err := v.ValidateURL(raw)
	if err != nil {
		return "", err
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed is true for any host when no restriction is set
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
