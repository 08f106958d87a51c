package stats

import (
	"sync"
	"sync/atomic"
	"time"

	om "github.com/cevaris/ordered_map"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
)

type StatsFetcher interface {
	GetStats() []Stats
}

var DefaultStatsDumpFrequencySeconds = c.StatsCaptureFrequencySeconds // may be overridden by SetStatsDumpFrequency

// Manager owns the RunStats of every run started by a process and dumps them to the log periodically.
type Manager struct {
	ticker              *time.Ticker
	tickerDone          chan struct{}
	tickerIsRunningFlag int32
	tickerFrequency     int
	mu                  sync.Mutex
	log                 logger.Logger
	runs                *om.OrderedMap // run name -> *RunStats
}

// SetStatsDumpFrequency returns an option for NewManager. Zero disables dumping.
func SetStatsDumpFrequency(seconds int) func(m *Manager) {
	return func(m *Manager) {
		m.tickerFrequency = seconds
	}
}

func NewManager(log logger.Logger, options ...func(m *Manager)) *Manager {
	m := &Manager{log: log, tickerFrequency: DefaultStatsDumpFrequencySeconds}
	for _, option := range options {
		option(m)
	}
	m.tickerDone = make(chan struct{})
	m.runs = om.NewOrderedMap()
	return m
}

// AddRun creates and registers the RunStats for name, replacing any earlier run of that name.
func (m *Manager) AddRun(name string) *RunStats {
	r := NewRunStats(m.log, name)
	m.mu.Lock()
	m.runs.Set(name, r)
	m.mu.Unlock()
	return r
}

func (m *Manager) StartDumping() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if atomic.LoadInt32(&m.tickerIsRunningFlag) == 1 {
		m.log.Debug("stats dumper ticker already running")
		return
	}
	if m.tickerFrequency <= 0 {
		m.log.Debug("stats dumper disabled")
		return
	}
	m.ticker = time.NewTicker(time.Second * time.Duration(m.tickerFrequency))
	atomic.StoreInt32(&m.tickerIsRunningFlag, 1)
	go func() {
		m.log.Debug("stats dumper ticker started")
		for {
			select {
			case <-m.tickerDone:
				m.log.Debug("stats dumper ticker stopped")
				return
			case <-m.ticker.C:
				m.logStats()
			}
		}
	}()
}

// StopDumping stops the ticker and dumps the current stats once more,
// only if the ticker was started by StartDumping().
func (m *Manager) StopDumping() {
	m.mu.Lock()
	running := atomic.LoadInt32(&m.tickerIsRunningFlag) == 1
	if running {
		atomic.StoreInt32(&m.tickerIsRunningFlag, 0)
		m.ticker.Stop()
	}
	m.mu.Unlock()
	if running {
		m.tickerDone <- struct{}{} // we can't close ticker.C; send outside the lock since the dumper takes it
		m.logStats()
	}
}

func (m *Manager) logStats() {
	for _, s := range m.GetStats() {
		m.log.Info(s.String())
	}
}

// GetStats implements StatsFetcher.
func (m *Manager) GetStats() []Stats {
	m.mu.Lock()
	runs := make([]*RunStats, 0, m.runs.Len())
	iter := m.runs.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		runs = append(runs, kv.Value.(*RunStats))
	}
	m.mu.Unlock()
	retval := make([]Stats, 0)
	for _, r := range runs {
		retval = append(retval, r.GetStats()...)
	}
	return retval
}
