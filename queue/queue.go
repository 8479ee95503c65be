// Package queue implements the byte-granular bounded queue xpi/dispatch
// draws reply buffers from (§6.2): a fixed pool of reusable buffers feeds
// a bounded channel of committed messages, the same send-queue/
// send-completion-queue split aistore's transport package uses for a
// stream's workCh/cmplCh pair, adapted to a single in-process producer
// rather than a wire protocol of its own.
package queue

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrQueueExhausted is returned by Reserve when every pooled buffer is
// either reserved or sitting in the committed queue awaiting a consumer.
var ErrQueueExhausted = errors.New("queue: exhausted")

// Queue is a single-producer, single-reservation-at-a-time bounded byte
// queue. Reserve/Commit/Discard implement dispatch.OutboundProducer;
// Drain lets a consumer (link/tcp) pull committed messages out.
type Queue struct {
	pool    chan []byte
	out     chan []byte
	current []byte

	depth     prometheus.Gauge
	dropped   prometheus.Counter
	committed prometheus.Counter
}

// New builds a Queue holding up to capacity committed messages, each
// buffer sized mtu bytes.
func New(name string, capacity, mtu int) *Queue {
	q := &Queue{
		pool: make(chan []byte, capacity),
		out:  make(chan []byte, capacity),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "xpigo_queue_depth",
			Help:        "Number of committed messages awaiting a consumer.",
			ConstLabels: prometheus.Labels{"queue": name},
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "xpigo_queue_reserve_exhausted_total",
			Help:        "Number of Reserve calls that failed because the queue was full.",
			ConstLabels: prometheus.Labels{"queue": name},
		}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "xpigo_queue_committed_total",
			Help:        "Number of messages successfully committed.",
			ConstLabels: prometheus.Labels{"queue": name},
		}),
	}
	for i := 0; i < capacity; i++ {
		q.pool <- make([]byte, mtu)
	}
	return q
}

// Collectors returns the queue's Prometheus collectors, for registration
// with a prometheus.Registerer.
func (q *Queue) Collectors() []prometheus.Collector {
	return []prometheus.Collector{q.depth, q.dropped, q.committed}
}

// Reserve hands out the next free pooled buffer. Only one reservation may
// be outstanding at a time; callers must Commit or Discard before
// reserving again.
func (q *Queue) Reserve(n int) ([]byte, error) {
	if len(q.out) == cap(q.out) {
		q.dropped.Inc()
		return nil, ErrQueueExhausted
	}
	select {
	case buf := <-q.pool:
		if cap(buf) < n {
			buf = make([]byte, n)
		}
		q.current = buf[:n]
		return q.current, nil
	default:
		q.dropped.Inc()
		return nil, ErrQueueExhausted
	}
}

// Commit publishes the first n bytes of the most recently reserved buffer
// to the consumer side, copying out so the pooled backing array can be
// reused immediately.
func (q *Queue) Commit(n int) error {
	buf := q.current
	q.current = nil
	out := make([]byte, n)
	copy(out, buf[:n])
	q.pool <- buf[:cap(buf)]
	q.out <- out
	q.committed.Inc()
	q.depth.Set(float64(len(q.out)))
	return nil
}

// Discard returns the most recently reserved buffer to the pool without
// publishing anything.
func (q *Queue) Discard() {
	if q.current == nil {
		return
	}
	buf := q.current
	q.current = nil
	q.pool <- buf[:cap(buf)]
}

// Drain returns the channel a consumer reads committed messages from.
func (q *Queue) Drain() <-chan []byte { return q.out }
