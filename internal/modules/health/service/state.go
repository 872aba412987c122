package service

import (
	"sync/atomic"
	"time"
)

// State: то, что отдаём в /readyz и /healthz.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected     atomic.Bool
	lastTickUnix    atomic.Int64 // unix seconds
	lastRetrainUnix atomic.Int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time   { return fromUnix(s.lastTickUnix.Load()) }

func (s *State) TouchRetrain(t time.Time) { s.lastRetrainUnix.Store(t.Unix()) }
func (s *State) LastRetrain() time.Time   { return fromUnix(s.lastRetrainUnix.Load()) }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func fromUnix(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}
