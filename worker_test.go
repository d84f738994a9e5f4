package robstride

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

type paramWrite struct {
	node  uint8
	param wire.Param
	value float64
}

// recordBackend captures every backend call for assertions.
type recordBackend struct {
	mu      sync.Mutex
	writes  []paramWrite
	enables []uint8
	readVal float64
	readErr error
}

func (b *recordBackend) Name() string { return "record" }

func (b *recordBackend) ReadParam(node uint8, p wire.Param, _ time.Duration) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return 0, b.readErr
	}
	return b.readVal, nil
}

func (b *recordBackend) WriteParam(node uint8, p wire.Param, value float64) error {
	b.mu.Lock()
	b.writes = append(b.writes, paramWrite{node, p, value})
	b.mu.Unlock()
	return nil
}

func (b *recordBackend) Enable(node uint8) error {
	b.mu.Lock()
	b.enables = append(b.enables, node)
	b.mu.Unlock()
	return nil
}

func (b *recordBackend) Disable(node uint8) error                  { return nil }
func (b *recordBackend) SetPID(uint8, float64, float64, float64) error { return nil }
func (b *recordBackend) Prepare(uint8)                             {}
func (b *recordBackend) Discover() ([]uint8, error)                { return nil, ErrNoBackend }
func (b *recordBackend) Close() error                              { return nil }

func (b *recordBackend) targetWrites(node uint8) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []float64
	for _, w := range b.writes {
		if w.node == node && w.param.Index == wire.TargetPosition.Index {
			out = append(out, w.value)
		}
	}
	return out
}

func TestPendingLastWriteWins(t *testing.T) {
	p := newPending()
	p.postWrite(5, 1.0)
	p.postWrite(5, 2.0)
	writes, _ := p.drain()
	if len(writes) != 1 {
		t.Fatalf("drained %d writes, want 1", len(writes))
	}
	if writes[5] != 2.0 {
		t.Errorf("drained value = %v, want 2.0", writes[5])
	}
	if writes, _ := p.drain(); writes != nil {
		t.Error("second drain returned already-processed writes")
	}
}

func TestWorkerDispatchesLatestWriteOnly(t *testing.T) {
	rb := &recordBackend{}
	p := newPending()
	w := newWorker(rb, p, newSimulator(), func(error) {})

	p.postWrite(5, 1.0)
	p.postWrite(5, 2.0)
	w.runOnce()

	if got := rb.targetWrites(5); len(got) != 1 || got[0] != 2.0 {
		t.Errorf("target writes = %v, want [2.0]", got)
	}
	if len(rb.enables) != 1 || rb.enables[0] != 5 {
		t.Errorf("enables = %v, want [5]", rb.enables)
	}
}

func TestWorkerEnableSequenceIssuedOnce(t *testing.T) {
	rb := &recordBackend{}
	p := newPending()
	w := newWorker(rb, p, newSimulator(), func(error) {})

	p.postWrite(9, 1.0)
	w.runOnce()
	p.postWrite(9, 2.0)
	w.runOnce()

	if len(rb.enables) != 1 {
		t.Errorf("enable issued %d times, want 1", len(rb.enables))
	}
	var modeWrites int
	rb.mu.Lock()
	for _, pw := range rb.writes {
		if pw.param.Index == wire.RunMode.Index {
			modeWrites++
		}
	}
	rb.mu.Unlock()
	if modeWrites != 1 {
		t.Errorf("run_mode written %d times, want 1", modeWrites)
	}
	if got := rb.targetWrites(9); len(got) != 2 {
		t.Errorf("target writes = %v, want two values", got)
	}
}

func TestWorkerReadFailureKeepsCache(t *testing.T) {
	rb := &recordBackend{readErr: errors.New("node offline")}
	p := newPending()
	w := newWorker(rb, p, newSimulator(), func(error) {})

	p.setCached(7, 1.25)
	p.postRead(7)
	w.runOnce()
	if v, ok := p.cached(7); !ok || v != 1.25 {
		t.Errorf("cache after failed read = %v, %v; want stale 1.25", v, ok)
	}

	rb.mu.Lock()
	rb.readErr = nil
	rb.readVal = 2.5
	rb.mu.Unlock()
	p.postRead(7)
	w.runOnce()
	if v, _ := p.cached(7); v != 2.5 {
		t.Errorf("cache after successful read = %v, want 2.5", v)
	}
}

func TestWorkerSimulationPath(t *testing.T) {
	p := newPending()
	sim := newSimulator()
	w := newWorker(nil, p, sim, func(error) {})

	p.postWrite(3, 0.5)
	p.postRead(3)
	w.runOnce()

	v, ok := p.cached(3)
	if !ok {
		t.Fatal("no cached value after simulated read")
	}
	if v < 0.5-simAmplitude || v > 0.5+simAmplitude {
		t.Errorf("simulated read %v outside [%v, %v]", v, 0.5-simAmplitude, 0.5+simAmplitude)
	}
}
