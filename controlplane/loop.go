package controlplane

import (
	"context"
	"time"

	"github.com/netsys-lab/reliable/blockmetrics"
	"github.com/netsys-lab/reliable/utils"
	log "github.com/sirupsen/logrus"
)

const EVENT_QUEUE_LEN = 64

type inboundPacket struct {
	session *Session
	buf     []byte
}

// Loop serializes every event of its sessions onto the goroutine that calls
// Run. Other goroutines only hand events over through the Post methods.
// Sessions must be created before Run or from within the loop goroutine.
type Loop struct {
	cfg        Config
	registry   *Registry
	metrics    *blockmetrics.Metrics
	packets    chan inboundPacket
	inputReady chan *Session
	sinkReady  chan *Session
	done       chan struct{}
}

func NewLoop(cfg *Config) *Loop {
	c := cfg.WithDefaults()
	return &Loop{
		cfg:        c,
		registry:   NewRegistry(),
		metrics:    blockmetrics.NewMetrics(c.MetricsInterval),
		packets:    make(chan inboundPacket, EVENT_QUEUE_LEN),
		inputReady: make(chan *Session, EVENT_QUEUE_LEN),
		sinkReady:  make(chan *Session, EVENT_QUEUE_LEN),
		done:       make(chan struct{}),
	}
}

func (l *Loop) Registry() *Registry {
	return l.registry
}

func (l *Loop) Metrics() *blockmetrics.Metrics {
	return l.metrics
}

func (l *Loop) Config() Config {
	return l.cfg
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// PostPacket queues a received datagram for s. The loop takes ownership
// of buf.
func (l *Loop) PostPacket(s *Session, buf []byte) {
	select {
	case l.packets <- inboundPacket{session: s, buf: buf}:
	case <-l.done:
	}
}

func (l *Loop) PostInputReady(s *Session) {
	select {
	case l.inputReady <- s:
	case <-l.done:
	}
}

func (l *Loop) PostSinkReady(s *Session) {
	select {
	case l.sinkReady <- s:
	case <-l.done:
	}
}

// Run processes events until ctx is done or, with ExitWhenIdle, until no
// session is left.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	l.metrics.Collect(l.cfg.Now(), l.registry.Totals())
	for {
		if l.cfg.ExitWhenIdle && l.registry.Len() == 0 {
			l.logTotals()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-l.packets:
			p.session.Dispatch(p.buf, l.cfg.Now())
		case s := <-l.inputReady:
			s.OnInputAvailable(l.cfg.Now())
		case s := <-l.sinkReady:
			s.OnSinkCapacityAvailable()
		case <-ticker.C:
			now := l.cfg.Now()
			l.registry.Tick(now)
			if l.metrics.Collect(now, l.registry.Totals()) {
				if sample, ok := l.metrics.Latest(); ok {
					log.Debugf("Tx %s/s, Rx %s/s", utils.ByteCountSI(int64(sample.TxBandwidth)), utils.ByteCountSI(int64(sample.RxBandwidth)))
				}
			}
		}
	}
}

func (l *Loop) logTotals() {
	m := l.registry.Totals()
	log.Infof("All sessions closed, sent %s in %d packets, received %s in %d packets",
		utils.ByteCountSI(int64(m.TxBytes)), m.TxPackets, utils.ByteCountSI(int64(m.RxBytes)), m.RxPackets)
}
