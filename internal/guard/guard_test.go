package guard

import (
	"errors"
	"testing"
)

// TestValidate tests the SSRF validation policy.
func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts public http and https URLs", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{
			"https://example.com",
			"http://example.com/path?q=1",
			"https://sub.example.co.uk:8443/deep/path",
			"http://93.184.216.34/",
		} {
			if err := Validate(u); err != nil {
				t.Errorf("Validate(%q) = %v, want nil", u, err)
			}
		}
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{
			"ftp://example.com",
			"file:///etc/passwd",
			"gopher://example.com",
			"javascript:alert(1)",
		} {
			if err := Validate(u); !errors.Is(err, ErrUnsupportedScheme) {
				t.Errorf("Validate(%q) = %v, want ErrUnsupportedScheme", u, err)
			}
		}
	})

	t.Run("rejects loopback and private ranges", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{
			"http://127.0.0.1/",
			"http://127.8.9.10:8080/",
			"http://10.0.0.5/",
			"http://10.255.255.255/",
			"http://172.16.0.1/",
			"http://172.31.200.14/",
			"http://192.168.1.1/admin",
			"http://localhost/",
			"http://localhost:3000/",
			"http://foo.localhost/",
			"http://0.0.0.0/",
			"http://[::1]/",
		} {
			if err := Validate(u); !errors.Is(err, ErrPrivateHost) {
				t.Errorf("Validate(%q) = %v, want ErrPrivateHost", u, err)
			}
		}
	})

	t.Run("accepts hosts adjacent to private ranges", func(t *testing.T) {
		t.Parallel()

		// 172.32.x.x and 192.169.x.x sit just outside the RFC1918 blocks.
		for _, u := range []string{
			"http://172.32.0.1/",
			"http://172.15.255.255/",
			"http://192.169.0.1/",
			"http://11.0.0.1/",
		} {
			if err := Validate(u); err != nil {
				t.Errorf("Validate(%q) = %v, want nil", u, err)
			}
		}
	})

	t.Run("rejects unparseable input", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{
			"http://",
			"://missing-scheme",
			"not a url at all",
		} {
			if err := Validate(u); err == nil {
				t.Errorf("Validate(%q) = nil, want error", u)
			}
		}
	})
}

// TestValidateWithOptions tests the optional https requirement.
func TestValidateWithOptions(t *testing.T) {
	t.Parallel()

	t.Run("requires https when asked", func(t *testing.T) {
		t.Parallel()

		err := ValidateWithOptions("http://example.com", Options{RequireHTTPS: true})
		if !errors.Is(err, ErrHTTPSRequired) {
			t.Errorf("expected ErrHTTPSRequired, got %v", err)
		}

		if err := ValidateWithOptions("https://example.com", Options{RequireHTTPS: true}); err != nil {
			t.Errorf("https URL should pass, got %v", err)
		}
	})

	t.Run("baseline policy still applies", func(t *testing.T) {
		t.Parallel()

		err := ValidateWithOptions("https://192.168.0.1", Options{RequireHTTPS: true})
		if !errors.Is(err, ErrPrivateHost) {
			t.Errorf("expected ErrPrivateHost, got %v", err)
		}
	})
}

// TestAllowLoopback tests the loopback allowance for self-hosted
// targets.
func TestAllowLoopback(t *testing.T) {
	t.Parallel()

	opts := Options{AllowLoopback: true}

	t.Run("permits loopback hosts", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{
			"http://127.0.0.1:8080/",
			"http://localhost/dev",
			"http://app.localhost/",
			"http://[::1]/",
		} {
			if err := ValidateWithOptions(u, opts); err != nil {
				t.Errorf("ValidateWithOptions(%q) = %v, want nil", u, err)
			}
		}
	})

	t.Run("private ranges stay rejected", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{
			"http://10.0.0.1/",
			"http://172.16.5.5/",
			"http://192.168.1.1/",
			"http://0.0.0.0/",
		} {
			err := ValidateWithOptions(u, opts)
			if !errors.Is(err, ErrPrivateHost) {
				t.Errorf("ValidateWithOptions(%q) = %v, want ErrPrivateHost", u, err)
			}
		}
	})
}
