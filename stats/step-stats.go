package stats

import (
	"fmt"
	"sync"
	"time"

	om "github.com/cevaris/ordered_map"
	c "github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
)

// Stats is a snapshot of one pipeline step of a run.
type Stats struct {
	RunName            string `json:"runName"`
	StepName           string `json:"stepName"`
	StatusText         string `json:"statusText"`
	StatusEmoji        string `json:"statusEmoji"`
	ElapsedTimeMs      int64  `json:"elapsedTimeMs"`
	TotalRowsProcessed int    `json:"totalRowsProcessed"`
	RowsPerSecondAvg   int64  `json:"rowsPerSecondAvg"`
}

// RunStats records the row count and duration of each step of one run.
// It implements silver.Observer and is safe for concurrent use.
type RunStats struct {
	log     logger.Logger
	name    string
	mu      sync.Mutex
	steps   *om.OrderedMap // step name -> *Stats
	done    bool
	failed  bool
	started time.Time
}

func NewRunStats(log logger.Logger, name string) *RunStats {
	return &RunStats{log: log, name: name, steps: om.NewOrderedMap(), started: time.Now()}
}

// StepDone saves the outcome of a step. Repeated steps accumulate.
func (r *RunStats) StepDone(name string, rows int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Stats{RunName: r.name, StepName: name}
	if v, ok := r.steps.Get(name); ok {
		s = v.(*Stats)
	}
	s.TotalRowsProcessed += rows
	s.ElapsedTimeMs += d.Milliseconds()
	s.RowsPerSecondAvg = rowsPerSecond(s.TotalRowsProcessed, s.ElapsedTimeMs)
	r.steps.Set(name, s)
	r.log.Debug("STATS: ", r.name, " step ", name, " rows=", rows, " took ", d)
}

// Complete marks the run as finished.
func (r *RunStats) Complete() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

// Fail marks the run as finished with an error.
func (r *RunStats) Fail() {
	r.mu.Lock()
	r.done, r.failed = true, true
	r.mu.Unlock()
}

// GetStats implements StatsFetcher.
func (r *RunStats) GetStats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	statusText, statusEmoji := "running", "\U0000231B" // hour glass
	if r.failed {
		statusText, statusEmoji = "failed", c.EmojiBang
	} else if r.done {
		statusText, statusEmoji = "complete", "\U00002705" // green tick
	}
	retval := make([]Stats, 0, r.steps.Len())
	iter := r.steps.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		s := *kv.Value.(*Stats)
		s.StatusText = statusText
		s.StatusEmoji = statusEmoji
		retval = append(retval, s)
	}
	return retval
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v %v %v "+
			"elapsedTimeMs=%v "+
			"totalRowsProcessed=%v "+
			"rowsPerSecondAvg=%v",
		s.RunName, s.StepName, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeMs,
		s.TotalRowsProcessed,
		s.RowsPerSecondAvg,
	)
}

func rowsPerSecond(rows int, ms int64) int64 {
	if ms < 1 {
		ms = 1
	}
	return int64(rows) * 1000 / ms
}
