package forward

import "fmt"

// Fingerprint builds the cache identity of a request:
// "{protocol}://{host}:{port}{path}", protocol defaulting to "http"
// and port defaulting to "80" when absent. No normalization (case,
// percent-encoding, default-port elision) is performed: equality is
// exact byte match.
func Fingerprint(scheme, host, port, path string) string {
	if scheme == "" {
		scheme = "http"
	}
	if port == "" {
		port = "80"
	}
	return fmt.Sprintf("%s://%s:%s%s", scheme, host, port, path)
}
