package caster

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SendTimeout bounds how long Broadcast waits on a single subscriber's
// write before treating it as failed. RTCM corrections are time-valuable;
// a subscriber that can't keep up is dropped, not buffered.
var SendTimeout = 2 * time.Second

// Subscriber is an admitted client connection, owned by exactly one
// Registry for the duration of its life.
type Subscriber struct {
	conn        net.Conn
	mountpoint  string
	connectedAt time.Time
	bytesSent   uint64
}

// NewSubscriber wraps an already-admitted connection.
func NewSubscriber(conn net.Conn, mountpoint string) *Subscriber {
	return &Subscriber{
		conn:        conn,
		mountpoint:  mountpoint,
		connectedAt: time.Now(),
	}
}

// Peer returns the subscriber's remote address.
func (s *Subscriber) Peer() string {
	return s.conn.RemoteAddr().String()
}

// Mountpoint returns the mountpoint this subscriber is attached to.
func (s *Subscriber) Mountpoint() string {
	return s.mountpoint
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}

func (s *Subscriber) send(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(SendTimeout)); err != nil {
		return err
	}
	n, err := s.conn.Write(data)
	atomic.AddUint64(&s.bytesSent, uint64(n))
	return err
}

// SubscriberInfo is a point-in-time, immutable view of a Subscriber,
// safe to retain after the Registry that produced it has moved on.
type SubscriberInfo struct {
	Peer        string
	Mountpoint  string
	ConnectedAt time.Time
	BytesSent   uint64
}

// Registry is a synchronized collection of subscribers supporting add,
// remove, broadcast and snapshot. A subscriber is reachable from exactly
// one Registry for the duration of its life.
type Registry struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	logger logrus.FieldLogger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{
		subs:   make(map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Add makes sub visible to the next Broadcast.
func (r *Registry) Add(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub] = struct{}{}
}

// Remove drops sub from the registry. Idempotent: safe to call after
// Broadcast has already removed it.
func (r *Registry) Remove(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, sub)
}

// Broadcast sends frame to every current subscriber, regardless of
// which mountpoint each admitted under — mountpoint name gates
// admission, not content; every subscriber receives the same stream.
// Subscribers whose send fails are removed once the full pass
// completes, so iteration stays stable; a subscriber that fails once is
// guaranteed absent from the next call. Broadcast reports how many
// subscribers the frame was delivered to.
func (r *Registry) Broadcast(frame []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []*Subscriber
	delivered := 0

	for sub := range r.subs {
		if err := sub.send(frame); err != nil {
			failed = append(failed, sub)
			continue
		}
		delivered++
	}

	for _, sub := range failed {
		delete(r.subs, sub)
		sub.Close()
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"peer":       sub.Peer(),
				"mountpoint": sub.mountpoint,
			}).Info("subscriber removed after send failure")
		}
	}

	return delivered
}

// Snapshot returns a point-in-time view of every current subscriber.
func (r *Registry) Snapshot() []SubscriberInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SubscriberInfo, 0, len(r.subs))
	for sub := range r.subs {
		out = append(out, SubscriberInfo{
			Peer:        sub.Peer(),
			Mountpoint:  sub.mountpoint,
			ConnectedAt: sub.connectedAt,
			BytesSent:   atomic.LoadUint64(&sub.bytesSent),
		})
	}
	return out
}

// Len returns the current subscriber count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// CloseAll closes and drops every current subscriber. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		sub.Close()
	}
	r.subs = make(map[*Subscriber]struct{})
}
