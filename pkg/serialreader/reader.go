// Package serialreader owns the serial device exclusively and turns its
// byte stream into RTCM3 frames for a caster to broadcast.
package serialreader

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fossettahq/rtcm-caster/pkg/rtcm3"
)

// Port is the minimal surface serialreader needs from a serial
// connection. go.bug.st/serial.Port satisfies this directly.
type Port interface {
	io.Reader
	io.Closer
}

// readBufferSize bounds a single Read call; original_source reads
// whatever in_waiting reports, but a fixed bound keeps backoff timing
// predictable under go.bug.st/serial's blocking-read model.
const readBufferSize = 512

// FrameSink receives every frame the Framer validates, in arrival order.
type FrameSink func(rtcm3.Frame)

// Reader runs a dedicated goroutine over a single Port, feeding a
// rtcm3.Framer and invoking a sink for each frame it emits. Exactly one
// goroutine ever touches the Port, matching the exclusive-ownership
// model described for the serial device.
type Reader struct {
	port   Port
	sink   FrameSink
	logger logrus.FieldLogger

	maxRetries int
	retryDelay time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithRetry overrides the non-fatal-error retry budget and backoff.
// maxRetries <= 0 means retry indefinitely.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(r *Reader) {
		r.maxRetries = maxRetries
		r.retryDelay = delay
	}
}

// New builds a Reader over port, invoking sink for every frame the
// framer validates. The caller owns configuring the device (see
// hardware/lc29h) before constructing a Reader; Reader only reads.
func New(port Port, sink FrameSink, logger logrus.FieldLogger, opts ...Option) *Reader {
	r := &Reader{
		port:       port,
		sink:       sink,
		logger:     logger,
		maxRetries: 10,
		retryDelay: 500 * time.Millisecond,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrStopped is returned by Run after a deliberate Stop; callers are not
// expected to treat it as a failure.
var ErrStopped = errors.New("serialreader: stopped")

// Run reads from the port until ctx is canceled, Stop is called, or a
// read fails more than the configured retry budget allows. It blocks
// the calling goroutine; callers normally invoke it via `go reader.Run(ctx)`.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.doneCh)

	framer := rtcm3.NewFramer()
	buf := make([]byte, readBufferSize)
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return ErrStopped
		default:
		}

		n, err := r.port.Read(buf)
		if err != nil {
			failures++
			r.logger.WithError(err).WithField("failures", failures).Warn("serial read failed")

			if r.maxRetries > 0 && failures > r.maxRetries {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.stopCh:
				return ErrStopped
			case <-time.After(r.retryDelay):
			}
			continue
		}

		failures = 0
		if n == 0 {
			continue
		}

		for _, frame := range framer.Feed(buf[:n]) {
			r.sink(frame)
		}
	}
}

// Stop signals Run to return at its next read boundary and blocks until
// it does. Safe to call once; a second call panics on the closed
// channel, matching the single-owner lifecycle of a Reader.
func (r *Reader) Stop() {
	close(r.stopCh)
	<-r.doneCh
}
