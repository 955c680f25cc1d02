package helpers

import (
	"fmt"
	"net/url"
	"strings"
)

// -----------------------------------------------------------------------------

// ValidateProxy checks if a proxy string is roughly valid.
func ValidateProxy(proxyStr string) bool {
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "socks5"
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	proxyStr = strings.TrimSpace(proxyStr)
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}

// -----------------------------------------------------------------------------

// ParseProxy turns "host:port" or a full proxy URL into the URL used by the
// HTTP transport.
func ParseProxy(proxyStr string) (*url.URL, error) {
	if !ValidateProxy(proxyStr) {
		return nil, NewConfigurationError(fmt.Sprintf("invalid proxy url '%s'", proxyStr), nil)
	}
	return url.Parse(FormatProxy(proxyStr))
}
