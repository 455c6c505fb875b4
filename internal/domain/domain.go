// Package domain reduces hosts and URLs to registrable domains using the
// public suffix list.
package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var ErrInvalid = errors.New("invalid domain")

// Registrable returns the eTLD+1 of a host or URL, e.g.
// "https://shop.example.co.uk/x" -> "example.co.uk".
func Registrable(input string) (string, error) {
	host := Hostname(input)
	if host == "" || net.ParseIP(host) != nil {
		return "", invalid(input)
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", invalid(input)
	}
	// The list's implicit "*" rule accepts any TLD; only keep ICANN suffixes
	// and multi-label private ones (github.io and the like).
	if suffix, icann := publicsuffix.PublicSuffix(d); !icann && !strings.Contains(suffix, ".") {
		return "", invalid(input)
	}
	return d, nil
}

// Hostname extracts a lower-cased host from a bare host or a URL.
// It returns "" when nothing host-like is present.
func Hostname(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// Matches reports whether host equals d or is a subdomain of it.
func Matches(host, d string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
	if host == "" || d == "" {
		return false
	}
	return host == d || strings.HasSuffix(host, "."+d)
}

func invalid(input string) error {
	return fmt.Errorf("%w: %q is not a valid domain", ErrInvalid, strings.TrimSpace(input))
}
