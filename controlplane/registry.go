package controlplane

import (
	"time"

	"github.com/netsys-lab/reliable/dataplane"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrChannelUnavailable is returned by Create when the channel of a new
// session cannot be opened.
var ErrChannelUnavailable = errors.New("channel unavailable")

// ChannelOpener establishes the channel of a new session.
type ChannelOpener func() (dataplane.Channel, error)

// Registry tracks the live sessions of one loop. It is not safe for
// concurrent use; only the loop goroutine may touch it once the loop runs.
type Registry struct {
	sessions  []*Session
	nextID    uint64
	retired   dataplane.SocketMetrics
	onDestroy []func(*Session)
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make([]*Session, 0),
	}
}

// OnDestroy registers f to be called after a session has been torn down.
func (r *Registry) OnDestroy(f func(*Session)) {
	r.onDestroy = append(r.onDestroy, f)
}

// Create opens a channel and registers a new session on top of it.
func (r *Registry) Create(open ChannelOpener, source dataplane.Source, sink dataplane.Sink, cfg *Config) (*Session, error) {
	c := cfg.WithDefaults()
	ch, err := open()
	if err != nil {
		return nil, errors.Wrapf(ErrChannelUnavailable, "%v", err)
	}

	r.nextID++
	logger := log.WithField("session", r.nextID)
	metrics := dataplane.NewMetrics()
	s := &Session{
		ID:       r.nextID,
		channel:  ch,
		sender:   dataplane.NewSender(source, ch, c.Timeout, metrics, logger),
		receiver: dataplane.NewReceiver(sink, ch, metrics, logger),
		metrics:  metrics,
		registry: r,
		log:      logger,
	}
	r.sessions = append(r.sessions, s)
	logger.Infof("Session created with timeout %s", c.Timeout)
	return s, nil
}

// Tick runs the retransmission timer of every live session.
func (r *Registry) Tick(now time.Time) {
	for _, s := range r.Sessions() {
		s.OnTimerTick(now)
	}
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// Sessions returns a snapshot of the live sessions in creation order.
func (r *Registry) Sessions() []*Session {
	sessions := make([]*Session, len(r.sessions))
	copy(sessions, r.sessions)
	return sessions
}

// Totals sums the metrics of live and destroyed sessions.
func (r *Registry) Totals() dataplane.SocketMetrics {
	total := r.retired
	for _, s := range r.sessions {
		total = total.Add(s.Metrics())
	}
	return total
}

func (r *Registry) remove(s *Session) {
	for i, v := range r.sessions {
		if v == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			r.retired = r.retired.Add(s.Metrics())
			break
		}
	}
	for _, f := range r.onDestroy {
		f(s)
	}
}
