package caster

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Stats holds the caster's running counters: rtcm_frames and
// bytes_broadcast, a fixed start timestamp, and a derived active_clients
// drawn from a Registry snapshot. Counters are incremented only by the
// broadcaster and read via atomic loads, so Snapshot needs no lock of
// its own.
type Stats struct {
	rtcmFrames     uint64
	bytesBroadcast uint64
	startedAt      time.Time
	registry       *Registry

	promFrames  prometheus.Counter
	promBytes   prometheus.Counter
	promClients prometheus.GaugeFunc
}

// NewStats constructs a Stats bound to registry. If promReg is non-nil,
// the counters are also registered as Prometheus metrics on it; pass
// nil to skip Prometheus exposition entirely.
func NewStats(registry *Registry, promReg prometheus.Registerer) *Stats {
	s := &Stats{
		startedAt: time.Now(),
		registry:  registry,
	}

	if promReg == nil {
		return s
	}

	s.promFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtcm_caster_frames_total",
		Help: "Total RTCM3 frames broadcast to subscribers.",
	})
	s.promBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtcm_caster_bytes_broadcast_total",
		Help: "Total bytes broadcast to subscribers.",
	})
	s.promClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rtcm_caster_active_clients",
		Help: "Current number of admitted subscribers.",
	}, func() float64 { return float64(registry.Len()) })

	promReg.MustRegister(s.promFrames, s.promBytes, s.promClients)
	return s
}

// RecordFrame accounts for one RTCM3 frame of n bytes having just been
// broadcast.
func (s *Stats) RecordFrame(n int) {
	atomic.AddUint64(&s.rtcmFrames, 1)
	atomic.AddUint64(&s.bytesBroadcast, uint64(n))

	if s.promFrames != nil {
		s.promFrames.Inc()
		s.promBytes.Add(float64(n))
	}
}

// Snapshot is the immutable, typed view of Stats returned by Snapshot.
type Snapshot struct {
	RTCMFrames     uint64
	BytesBroadcast uint64
	ActiveClients  int
	StartedAt      time.Time
	Uptime         time.Duration
}

// Snapshot returns a point-in-time copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		RTCMFrames:     atomic.LoadUint64(&s.rtcmFrames),
		BytesBroadcast: atomic.LoadUint64(&s.bytesBroadcast),
		ActiveClients:  s.registry.Len(),
		StartedAt:      s.startedAt,
		Uptime:         time.Since(s.startedAt),
	}
}

// RunHeartbeat logs Snapshot at the given interval until ctx is done.
// Grounded on original_source's status loop (a plain sleep-and-log
// cycle); a full scheduler has no place to exercise it here.
func (s *Stats) RunHeartbeat(ctx context.Context, interval time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Snapshot()
			logger.WithFields(logrus.Fields{
				"active_clients":  snap.ActiveClients,
				"rtcm_frames":     snap.RTCMFrames,
				"bytes_broadcast": snap.BytesBroadcast,
				"uptime":          snap.Uptime.Round(time.Second).String(),
			}).Info("caster heartbeat")
		}
	}
}
