package robstride

import (
	"math"
	"sync"
)

const (
	simPhaseStep = 0.1
	simAmplitude = 0.1
)

// simNodes is the fixed synthetic node set appended by Scan when simulation
// is enabled.
var simNodes = []NodeInfo{
	{ID: 1, Name: "Sim node 1"},
	{ID: 2, Name: "Sim node 2"},
}

// simulator synthesizes encoder feedback when no transport is present: each
// read returns the last written setpoint plus a small sinusoidal perturbation
// driven by a single advancing phase.
type simulator struct {
	mu    sync.Mutex
	phase float64
	last  map[uint8]float64
}

func newSimulator() *simulator {
	return &simulator{last: make(map[uint8]float64)}
}

func (s *simulator) write(node uint8, value float64) {
	s.mu.Lock()
	s.last[node] = value
	s.mu.Unlock()
}

func (s *simulator) read(node uint8) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase += simPhaseStep
	return s.last[node] + simAmplitude*math.Sin(s.phase)
}

func (s *simulator) reset() {
	s.mu.Lock()
	s.phase = 0
	s.last = make(map[uint8]float64)
	s.mu.Unlock()
}
