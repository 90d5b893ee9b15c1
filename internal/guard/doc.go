// Package guard validates URLs before any network I/O happens.
//
// The validation is purely syntactic: schemes other than http/https
// are rejected, and hostnames that textually match loopback, RFC1918
// private ranges, "localhost", or 0.0.0.0 are rejected to block
// server-side request forgery against internal services.
//
// Known gap: the guard never resolves DNS, so a public hostname that
// privately resolves (DNS rebinding) is not caught. Closing that gap
// would make validation a network operation and change its semantics,
// so it is documented here instead of silently hardened.
package guard
