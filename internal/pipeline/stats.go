package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats holds counters shared between the producer, the consumer and the
// status API. Everything else in the pipeline is owned by one goroutine.
type Stats struct {
	SessionID string
	Started   time.Time

	captured      atomic.Uint64
	processed     atomic.Uint64
	emitted       atomic.Uint64
	discarded     atomic.Uint64
	queueFull     atomic.Uint64
	backlog       atomic.Int64
	maxBacklog    atomic.Int64
	bytesWritten  atomic.Int64
	bytesPunched  atomic.Int64
	punchFailures atomic.Uint64
	lastLit       atomic.Int64
	armed         atomic.Int64
}

// NewStats creates the counters for one recording session
func NewStats(sessionID string) *Stats {
	return &Stats{
		SessionID: sessionID,
		Started:   time.Now(),
	}
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	SessionID     string    `json:"session_id"`
	Started       time.Time `json:"started"`
	Uptime        string    `json:"uptime"`
	Captured      uint64    `json:"captured"`
	Processed     uint64    `json:"processed"`
	Emitted       uint64    `json:"emitted"`
	Discarded     uint64    `json:"discarded"`
	QueueFull     uint64    `json:"queue_full"`
	Backlog       int64     `json:"backlog"`
	MaxBacklog    int64     `json:"max_backlog"`
	BytesWritten  int64     `json:"bytes_written"`
	BytesPunched  int64     `json:"bytes_punched"`
	PunchFailures uint64    `json:"punch_failures"`
	LastLit       int64     `json:"last_lit"`
	Armed         int64     `json:"armed"`
}

// Snapshot reads every counter
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		SessionID:     s.SessionID,
		Started:       s.Started,
		Uptime:        time.Since(s.Started).Truncate(time.Second).String(),
		Captured:      s.captured.Load(),
		Processed:     s.processed.Load(),
		Emitted:       s.emitted.Load(),
		Discarded:     s.discarded.Load(),
		QueueFull:     s.queueFull.Load(),
		Backlog:       s.backlog.Load(),
		MaxBacklog:    s.maxBacklog.Load(),
		BytesWritten:  s.bytesWritten.Load(),
		BytesPunched:  s.bytesPunched.Load(),
		PunchFailures: s.punchFailures.Load(),
		LastLit:       s.lastLit.Load(),
		Armed:         s.armed.Load(),
	}
}

func (s *Stats) setBacklog(n int) {
	v := int64(n)
	s.backlog.Store(v)
	for {
		cur := s.maxBacklog.Load()
		if v <= cur || s.maxBacklog.CompareAndSwap(cur, v) {
			return
		}
	}
}
