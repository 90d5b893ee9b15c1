package guard

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// Validation errors. Callers use errors.Is to distinguish policy
// rejections from malformed input.
var (
	// ErrInvalidURL is returned when the input cannot be parsed as a URL
	// or lacks a hostname.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedScheme is returned for any scheme other than http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: only http and https are allowed")

	// ErrPrivateHost is returned when the hostname matches loopback,
	// a private address range, localhost, or 0.0.0.0.
	ErrPrivateHost = errors.New("hostname resolves to a private or loopback address range")

	// ErrHTTPSRequired is returned by ValidateWithOptions when
	// RequireHTTPS is set and the scheme is plain http.
	ErrHTTPSRequired = errors.New("https is required")
)

// loopbackRanges are rejected by default but may be allowed with
// Options.AllowLoopback. The check is lexical: it applies only when
// the hostname itself is an IP literal.
var loopbackRanges = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
}

// privateRanges are always rejected.
var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

// Validate checks a URL against the scrape policy. It is a pure
// function: no DNS lookups, no network I/O. A nil return means the
// URL may be fetched.
func Validate(rawURL string) error {
	return ValidateWithOptions(rawURL, Options{})
}

// Options configures ValidateWithOptions beyond the baseline policy.
type Options struct {
	// RequireHTTPS rejects plain-http URLs.
	RequireHTTPS bool

	// AllowLoopback permits localhost and loopback-literal hostnames.
	// Meant for scraping services you run yourself; private ranges
	// and link-local addresses stay rejected.
	AllowLoopback bool
}

// ValidateWithOptions applies the Validate policy with the extra
// constraints and allowances in opts.
func ValidateWithOptions(rawURL string, opts Options) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w (got %q)", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}

	isLocalhost := host == "localhost" || strings.HasSuffix(host, ".localhost")
	if isLocalhost && !opts.AllowLoopback {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}
	if host == "0.0.0.0" {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}

	// IP-literal hostnames are checked against the address ranges.
	// Bracketed IPv6 literals arrive here already unbracketed via Hostname().
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if addr.IsUnspecified() {
			return fmt.Errorf("%w: %s", ErrPrivateHost, host)
		}
		if !opts.AllowLoopback {
			for _, p := range loopbackRanges {
				if p.Contains(addr) {
					return fmt.Errorf("%w: %s", ErrPrivateHost, host)
				}
			}
		}
		for _, p := range privateRanges {
			if p.Contains(addr) {
				return fmt.Errorf("%w: %s", ErrPrivateHost, host)
			}
		}
		if addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
			return fmt.Errorf("%w: %s", ErrPrivateHost, host)
		}
	}

	if opts.RequireHTTPS && u.Scheme != "https" {
		return ErrHTTPSRequired
	}

	return nil
}
