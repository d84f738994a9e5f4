package robstride

import (
	"fmt"
	"sync"
	"time"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

// drainInterval is the worker's idle sleep between iterations.
const drainInterval = 2 * time.Millisecond

// workerJoinTimeout bounds how long Disconnect waits for the worker to exit
// before abandoning it. The loop never blocks longer than one transaction,
// so an abandoned worker drains out on its own.
const workerJoinTimeout = 500 * time.Millisecond

// pending holds everything shared between the caller's tick and the worker:
// coalesced position writes, requested reads, the feedback cache and the
// per-node runtime flags. One mutex, O(1) critical sections, never held
// across I/O.
type pending struct {
	mu      sync.Mutex
	writes  map[uint8]float64
	reads   map[uint8]struct{}
	cache   map[uint8]float64
	enabled map[uint8]bool
	posMode map[uint8]bool
}

func newPending() *pending {
	p := &pending{}
	p.reset()
	return p
}

func (p *pending) reset() {
	p.mu.Lock()
	p.writes = make(map[uint8]float64)
	p.reads = make(map[uint8]struct{})
	p.cache = make(map[uint8]float64)
	p.enabled = make(map[uint8]bool)
	p.posMode = make(map[uint8]bool)
	p.mu.Unlock()
}

// postWrite records a position setpoint, replacing any undrained one for the
// same node (last write wins).
func (p *pending) postWrite(node uint8, value float64) {
	p.mu.Lock()
	p.writes[node] = value
	p.mu.Unlock()
}

func (p *pending) postRead(node uint8) {
	p.mu.Lock()
	p.reads[node] = struct{}{}
	p.mu.Unlock()
}

// drain atomically snapshots and clears the pending writes and reads, so
// requests posted while the worker is busy are neither lost nor processed
// twice.
func (p *pending) drain() (map[uint8]float64, []uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writes) == 0 && len(p.reads) == 0 {
		return nil, nil
	}
	writes := p.writes
	p.writes = make(map[uint8]float64)
	reads := make([]uint8, 0, len(p.reads))
	for node := range p.reads {
		reads = append(reads, node)
	}
	p.reads = make(map[uint8]struct{})
	return writes, reads
}

func (p *pending) cached(node uint8) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.cache[node]
	return v, ok
}

func (p *pending) setCached(node uint8, value float64) {
	p.mu.Lock()
	p.cache[node] = value
	p.mu.Unlock()
}

func (p *pending) isEnabled(node uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled[node]
}

func (p *pending) setEnabled(node uint8, v bool) {
	p.mu.Lock()
	p.enabled[node] = v
	p.mu.Unlock()
}

func (p *pending) inPosMode(node uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posMode[node]
}

func (p *pending) setPosMode(node uint8, v bool) {
	p.mu.Lock()
	p.posMode[node] = v
	p.mu.Unlock()
}

// worker is the background loop draining pending writes and reads against
// the active backend. backend is nil under pure simulation.
type worker struct {
	backend Backend
	pending *pending
	sim     *simulator
	onError func(error)
	stop    chan struct{}
	done    chan struct{}
}

func newWorker(backend Backend, p *pending, sim *simulator, onError func(error)) *worker {
	return &worker{
		backend: backend,
		pending: p,
		sim:     sim,
		onError: onError,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (w *worker) start() {
	go w.run()
}

func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}
		w.runOnce()
		time.Sleep(drainInterval)
	}
}

// runOnce drains one snapshot. One node's failure never stops the rest.
func (w *worker) runOnce() {
	writes, reads := w.pending.drain()
	for node, value := range writes {
		if err := w.dispatchWrite(node, value); err != nil {
			w.onError(fmt.Errorf("write node %d: %w", node, err))
		}
	}
	for _, node := range reads {
		if err := w.dispatchRead(node); err != nil {
			w.onError(fmt.Errorf("read node %d: %w", node, err))
		}
	}
}

func (w *worker) dispatchWrite(node uint8, value float64) error {
	if w.backend == nil {
		w.sim.write(node, value)
		return nil
	}
	if !w.pending.isEnabled(node) {
		if err := w.backend.Enable(node); err != nil {
			return err
		}
		w.pending.setEnabled(node, true)
	}
	if !w.pending.inPosMode(node) {
		if err := w.backend.WriteParam(node, wire.RunMode, wire.RunModePosition); err != nil {
			return err
		}
		w.pending.setPosMode(node, true)
	}
	return w.backend.WriteParam(node, wire.TargetPosition, value)
}

func (w *worker) dispatchRead(node uint8) error {
	if w.backend == nil {
		w.pending.setCached(node, w.sim.read(node))
		return nil
	}
	value, err := w.backend.ReadParam(node, wire.MechanicalPosition, readTimeout)
	if err != nil {
		// Timeout or malformed reply: keep whatever the cache holds.
		return err
	}
	w.pending.setCached(node, value)
	return nil
}

// join waits for the loop to exit, giving up after workerJoinTimeout.
func (w *worker) join() {
	close(w.stop)
	select {
	case <-w.done:
	case <-time.After(workerJoinTimeout):
	}
}
