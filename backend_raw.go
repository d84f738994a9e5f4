package robstride

import (
	"sync"
	"time"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

const (
	// readTimeout bounds a single parameter read transaction.
	readTimeout = 30 * time.Millisecond
	// enableSettle is the gap between the run_mode write and the enable
	// command, per the vendor's enable sequence.
	enableSettle = 20 * time.Millisecond
	// recvSlice is the poll granularity while waiting for a response.
	recvSlice = 10 * time.Millisecond
)

// rawBackend speaks the Robstride private protocol directly over a
// Transport. Request/response transactions are serialized through the shared
// io mutex so the worker and the scanner never interleave on the bus.
type rawBackend struct {
	tr      Transport
	io      *sync.Mutex
	host    uint16
	onError func(error)
}

func newRawBackend(tr Transport, io *sync.Mutex, host uint16, onError func(error)) *rawBackend {
	return &rawBackend{tr: tr, io: io, host: host, onError: onError}
}

func (b *rawBackend) Name() string { return "raw" }

func (b *rawBackend) send(cmd uint8, node uint8, payload [8]byte) error {
	return b.tr.Send(NewExtendedFrame(wire.RequestID(cmd, b.host, node), payload[:]))
}

// flush discards stale frames sitting in the receive path.
func (b *rawBackend) flush() {
	for {
		if _, err := b.tr.Receive(time.Millisecond); err != nil {
			return
		}
	}
}

func (b *rawBackend) ReadParam(node uint8, p wire.Param, timeout time.Duration) (float64, error) {
	b.io.Lock()
	defer b.io.Unlock()
	b.tr.SetFilter(wire.ResponseID(wire.CmdReadParam, b.host, node))
	defer b.tr.SetFilter()
	b.flush()
	payload := wire.EncodeRead(p)
	if err := b.send(wire.CmdReadParam, node, payload); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(timeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return 0, ErrRecvTimeout
		}
		if remain > recvSlice {
			remain = recvSlice
		}
		f, err := b.tr.Receive(remain)
		if err != nil {
			continue
		}
		v, err := wire.VerifyReadResponse(b.host, node, p, f.ID, f.Extended, f.Data)
		if err != nil {
			// Malformed or unrelated frame, same as silence.
			continue
		}
		return v, nil
	}
}

func (b *rawBackend) WriteParam(node uint8, p wire.Param, value float64) error {
	b.io.Lock()
	defer b.io.Unlock()
	payload := wire.EncodeWrite(p, value)
	return b.send(wire.CmdWriteParam, node, payload)
}

// Enable puts the node in position-control mode and powers it on:
// run_mode=1, a short settle, then the enable command.
func (b *rawBackend) Enable(node uint8) error {
	if err := b.WriteParam(node, wire.RunMode, wire.RunModePosition); err != nil {
		return err
	}
	time.Sleep(enableSettle)
	b.io.Lock()
	defer b.io.Unlock()
	return b.send(wire.CmdEnable, node, wire.EncodeCommand())
}

// Disable stops the node and drops it back to idle mode.
func (b *rawBackend) Disable(node uint8) error {
	b.io.Lock()
	if err := b.send(wire.CmdDisable, node, wire.EncodeCommand()); err != nil {
		b.io.Unlock()
		return err
	}
	b.io.Unlock()
	return b.WriteParam(node, wire.RunMode, wire.RunModeIdle)
}

// SetPID is a no-op: the raw wire protocol has no verified tuning-parameter
// mapping.
func (b *rawBackend) SetPID(node uint8, kp, ki, kd float64) error { return nil }

func (b *rawBackend) Prepare(node uint8) {}

// Discover has no backend-level mechanism under the raw protocol; the
// scanner falls back to direct probing.
func (b *rawBackend) Discover() ([]uint8, error) { return nil, ErrNoBackend }

func (b *rawBackend) Close() error { return nil }
