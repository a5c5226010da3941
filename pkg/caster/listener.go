package caster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// acceptPollInterval bounds how long Accept blocks at a time, so Stop
// can take effect promptly instead of waiting on a pending accept.
const acceptPollInterval = 1 * time.Second

// Listener is the caster's TCP accept loop: it binds a listening
// socket, hands every accepted connection to a Session, and keeps track
// of in-flight handlers so Stop can wait for them (briefly) before
// returning.
type Listener struct {
	addr     string
	session  *Session
	registry *Registry
	logger   logrus.FieldLogger

	running atomic.Bool
	ln      net.Listener
	wg      sync.WaitGroup
}

// NewListener constructs a Listener that will serve session on addr and
// close registry's subscribers when stopped.
func NewListener(addr string, session *Session, registry *Registry, logger logrus.FieldLogger) *Listener {
	return &Listener{
		addr:     addr,
		session:  session,
		registry: registry,
		logger:   logger,
	}
}

// ListenAndServe binds addr and runs the accept loop until Stop is
// called. It returns nil on a clean shutdown, or the bind error if
// binding fails.
func (l *Listener) ListenAndServe() error {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("caster: listen on %s: %w", l.addr, err)
	}
	l.ln = ln
	l.running.Store(true)

	l.logger.WithField("addr", l.addr).Info("caster listening")

	for l.running.Load() {
		if tcpLn, ok := ln.(*net.TCPListener); ok {
			tcpLn.SetDeadline(time.Now().Add(acceptPollInterval))
		}

		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if !l.running.Load() {
				return nil
			}
			l.logger.WithError(err).Error("accept failed")
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.session.Handle(conn)
		}()
	}

	return nil
}

// Stop closes the listener and every current subscriber, then waits up
// to grace for in-flight session handlers to finish admission before
// returning.
func (l *Listener) Stop(grace time.Duration) {
	l.running.Store(false)
	if l.ln != nil {
		l.ln.Close()
	}
	if l.registry != nil {
		l.registry.CloseAll()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		l.logger.Warn("caster shutdown grace period elapsed with handlers still in flight")
	}
}
