// Package forward implements the forwarding pipeline: the per-request
// state machine that decides whether a request is served from the
// cache.Store or relayed to the origin, streaming the origin response
// back to the client while capturing it for cache insertion.
package forward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/WillKirkmanM/proxy/internal/cache"
	"github.com/WillKirkmanM/proxy/internal/logging"
)

// Metrics is the subset of instrumentation the pipeline drives. Its
// shape is satisfied by *metrics.Metrics; declaring it here (rather
// than importing the concrete type) keeps forward decoupled from how
// the numbers are exported.
type Metrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheInsert(bytes int64)
	RecordOriginError()
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheHit()         {}
func (noopMetrics) RecordCacheMiss()        {}
func (noopMetrics) RecordCacheInsert(int64) {}
func (noopMetrics) RecordOriginError()      {}

// Config bounds the pipeline's buffers and timeouts.
type Config struct {
	// ScratchBufferSize is the fixed buffer used to read from the
	// origin in the relay loop (at least 8 KiB).
	ScratchBufferSize int

	// MaxCaptureBytes bounds worker-local response capture.
	MaxCaptureBytes int64

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the compiled-in defaults.
func DefaultConfig(maxEntryBytes int64) Config {
	return Config{
		ScratchBufferSize: 8192,
		MaxCaptureBytes:   maxEntryBytes,
		DialTimeout:       10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

// Pipeline runs the per-connection state machine against a shared
// cache.Store. A Pipeline has no goroutines of its own: Handle is
// called once per accepted connection by the caller's worker dispatch.
type Pipeline struct {
	store   *cache.Store
	cfg     Config
	logger  *logging.Logger
	metrics Metrics
	dial    func(network, address string) (net.Conn, error)
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithLogger attaches a structured logger for per-request and
// failure-path observability.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics attaches a Metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithDialer overrides how the pipeline dials the origin. Tests use
// this to substitute an in-process origin stub instead of net.Dial.
func WithDialer(dial func(network, address string) (net.Conn, error)) Option {
	return func(p *Pipeline) { p.dial = dial }
}

// New constructs a Pipeline bound to store.
func New(store *cache.Store, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		cfg:     cfg,
		metrics: noopMetrics{},
		dial:    net.Dial,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle drives one connection through RECV_REQUEST → PARSE →
// BUILD_KEY → CACHE_LOOKUP → {HIT, MISS} → DONE. The caller owns
// conn's lifetime: Handle does not close it.
func (p *Pipeline) Handle(ctx context.Context, conn net.Conn) {
	start := time.Now()

	if p.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(start.Add(p.cfg.ReadTimeout))
	}

	req, err := readRequest(conn)
	if err != nil {
		writeBadRequest(conn)
		p.logOutcome(ctx, "", "malformed_request", start)
		return
	}

	if req.method == "CONNECT" {
		writeNotImplemented(conn)
		p.logOutcome(ctx, "", "tunnel_unsupported", start)
		return
	}

	fingerprint := Fingerprint("http", req.host, req.port, req.path)

	if payload, hit := p.store.Lookup(fingerprint); hit {
		p.metrics.RecordCacheHit()
		if p.cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
		}
		conn.Write(payload)
		p.logOutcome(ctx, fingerprint, "hit", start)
		return
	}
	p.metrics.RecordCacheMiss()

	p.handleMissAndReport(ctx, conn, req, fingerprint, start)
}

// clientWriteError marks a failed write to the client socket. This is
// never reported to the client (it IS the client's socket that
// failed) and never produces a synthetic error envelope, regardless of
// whether earlier bytes already went out.
type clientWriteError struct{ err error }

func (e *clientWriteError) Error() string { return e.err.Error() }
func (e *clientWriteError) Unwrap() error { return e.err }

// originError wraps a DNS/dial/send/receive failure against the
// origin, with whether any response byte had already reached the
// client when it occurred: the fact that decides whether the caller
// still owes a 502 envelope. Once bytes have been sent to the client,
// origin failures are abandoned silently rather than surfaced.
type originError struct {
	err       error
	sentBytes bool
}

func (e *originError) Error() string { return e.err.Error() }
func (e *originError) Unwrap() error { return e.err }

// handleMissAndReport runs the miss path and converts its outcome
// into the client-visible effect (a 502 envelope, or silence) plus
// metrics and logging.
func (p *Pipeline) handleMissAndReport(ctx context.Context, conn net.Conn, req *parsedRequest, fingerprint string, start time.Time) {
	err := p.handleMiss(conn, req, fingerprint)
	if err == nil {
		p.logOutcome(ctx, fingerprint, "miss", start)
		return
	}

	var cwe *clientWriteError
	if errors.As(err, &cwe) {
		p.logOutcome(ctx, fingerprint, "client_write_failed", start)
		return
	}

	p.metrics.RecordOriginError()

	var oe *originError
	if errors.As(err, &oe) && !oe.sentBytes {
		writeBadGateway(conn)
	}
	p.logOutcome(ctx, fingerprint, "origin_error", start)
}

// handleMiss implements RESOLVE → DIAL_ORIGIN → REWRITE_HEADERS →
// SEND_ORIGIN → RELAY_LOOP → CACHE_INSERT?.
func (p *Pipeline) handleMiss(client net.Conn, req *parsedRequest, fingerprint string) error {
	address := net.JoinHostPort(req.host, req.port)

	origin, err := p.dial("tcp", address)
	if err != nil {
		return &originError{err: fmt.Errorf("%w: %v", ErrOrigin, err)}
	}
	defer origin.Close()

	if p.cfg.DialTimeout > 0 {
		origin.SetDeadline(time.Now().Add(p.cfg.DialTimeout))
	}

	wire := rewriteAndSerialize(req)
	if _, err := origin.Write(wire); err != nil {
		return &originError{err: fmt.Errorf("%w: %v", ErrOrigin, err)}
	}

	return p.relay(client, origin, fingerprint)
}

// relay implements the relay loop: read from origin into a fixed
// scratch buffer, write each chunk to the client, and, while capture
// is still live, append it to a growable buffer for post-hoc
// insertion. At origin EOF, insert the captured bytes if capture
// survived and anything was captured.
func (p *Pipeline) relay(client, origin net.Conn, fingerprint string) error {
	scratch := make([]byte, p.cfg.ScratchBufferSize)
	captured := newCapture(p.cfg.MaxCaptureBytes)

	sentAnyBytes := false

	for {
		n, readErr := origin.Read(scratch)
		if n > 0 {
			chunk := scratch[:n]

			if _, writeErr := client.Write(chunk); writeErr != nil {
				// Discard everything accumulated so far: no partial
				// cache insert on a client-write failure.
				return &clientWriteError{err: writeErr}
			}
			sentAnyBytes = true

			if captured.live() {
				captured.append(chunk)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			// Origin read error mid-stream suppresses insertion; it
			// is only reported to the client if no bytes went out yet.
			return &originError{err: fmt.Errorf("%w: %v", ErrOrigin, readErr), sentBytes: sentAnyBytes}
		}
	}

	if captured.live() && len(captured.bytes()) > 0 {
		if p.store.Insert(fingerprint, captured.bytes()) {
			p.metrics.RecordCacheInsert(int64(len(captured.bytes())))
		}
	}

	return nil
}

func (p *Pipeline) logOutcome(ctx context.Context, fingerprint, outcome string, start time.Time) {
	if p.logger == nil {
		return
	}
	p.logger.RequestLogger(ctx, fingerprint, outcome, time.Since(start))
}
