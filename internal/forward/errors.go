package forward

import "errors"

// Error kinds the forwarding pipeline distinguishes. Cache miss and
// oversize-entry are not errors at all: cache.Store signals them
// through return values, never through these.
var (
	// ErrMalformedRequest covers recv failure, truncated read, and
	// unparsable HTTP on the client side.
	ErrMalformedRequest = errors.New("forward: malformed client request")

	// ErrMissingHost covers a request that carries no Host header and
	// no absolute-URI host, so no fingerprint can be derived.
	ErrMissingHost = errors.New("forward: request has no host")

	// ErrTunnelUnsupported names the CONNECT case. HTTPS tunneling is
	// out of scope; Handle answers a CONNECT request with 501 Not
	// Implemented directly rather than relaying it through the GET/POST
	// path, and does not return this value.
	ErrTunnelUnsupported = errors.New("forward: CONNECT tunneling is not supported")

	// ErrOrigin covers DNS failure, dial failure, and send/receive
	// failure against the origin.
	ErrOrigin = errors.New("forward: origin request failed")
)
