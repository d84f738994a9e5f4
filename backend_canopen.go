package robstride

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/n2048-creative-technology/blender-robstride/pkg/canopen"
	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

// Drive-profile object dictionary entries used by the generic backend.
const (
	odControlword    uint16 = 0x6040
	odModes          uint16 = 0x6060
	odPositionActual uint16 = 0x6064
	odTargetPosition uint16 = 0x607A
	odDeviceType     uint16 = 0x1000
	// Vendor tuning objects. Unverified heuristic carried over from the
	// original integration; treated as best effort.
	odPIDKp uint16 = 0x3000
	odPIDKi uint16 = 0x3001
	odPIDKd uint16 = 0x3002
)

const (
	controlwordEnable   uint16 = 0x000F
	controlwordShutdown uint16 = 0x0006
	modeProfilePosition byte   = 1
)

// discoverWindow is how long the scanner-facing Discover call collects
// replies to its network-wide probe.
const discoverWindow = 500 * time.Millisecond

// canopenBackend drives nodes through expedited SDO transfers against fixed
// drive-profile objects.
type canopenBackend struct {
	tr      Transport
	io      *sync.Mutex
	onError func(error)

	mu    sync.Mutex
	nodes map[uint8]struct{}
}

func newCANopenBackend(tr Transport, io *sync.Mutex, onError func(error)) *canopenBackend {
	return &canopenBackend{tr: tr, io: io, onError: onError, nodes: make(map[uint8]struct{})}
}

func (b *canopenBackend) Name() string { return "generic" }

// download writes an object and waits briefly for the confirmation so
// back-to-back writes do not overrun the node.
func (b *canopenBackend) download(node uint8, index uint16, sub uint8, data []byte) error {
	id, payload, err := canopen.DownloadRequest(canopen.NodeID(node), index, sub, data)
	if err != nil {
		return err
	}
	b.io.Lock()
	defer b.io.Unlock()
	b.tr.SetFilter(canopen.SDOTxBase + uint32(node))
	defer b.tr.SetFilter()
	if err := b.tr.Send(NewFrame(id, payload[:])); err != nil {
		return err
	}
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		f, err := b.tr.Receive(recvSlice)
		if err != nil {
			continue
		}
		n, idx, s, err := canopen.ParseDownloadResponse(f.ID, f.Data)
		if err == nil && uint8(n) == node && idx == index && s == sub {
			return nil
		}
	}
	return ErrRecvTimeout
}

func (b *canopenBackend) upload(node uint8, index uint16, sub uint8, timeout time.Duration) ([]byte, error) {
	id, payload, err := canopen.UploadRequest(canopen.NodeID(node), index, sub)
	if err != nil {
		return nil, err
	}
	b.io.Lock()
	defer b.io.Unlock()
	b.tr.SetFilter(canopen.SDOTxBase + uint32(node))
	defer b.tr.SetFilter()
	if err := b.tr.Send(NewFrame(id, payload[:])); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		f, err := b.tr.Receive(recvSlice)
		if err != nil {
			continue
		}
		n, idx, s, data, err := canopen.ParseUploadResponse(f.ID, f.Data)
		if err == nil && uint8(n) == node && idx == index && s == sub {
			return data, nil
		}
	}
	return nil, ErrRecvTimeout
}

// ReadParam maps the Robstride parameter onto its drive-profile equivalent.
func (b *canopenBackend) ReadParam(node uint8, p wire.Param, timeout time.Duration) (float64, error) {
	switch p.Index {
	case wire.MechanicalPosition.Index:
		data, err := b.upload(node, odPositionActual, 0, timeout)
		if err != nil {
			return 0, err
		}
		if len(data) != 4 {
			return 0, fmt.Errorf("position actual: got %d bytes, want 4", len(data))
		}
		return float64(int32(binary.LittleEndian.Uint32(data))), nil
	case wire.RunMode.Index:
		data, err := b.upload(node, odModes, 0, timeout)
		if err != nil {
			return 0, err
		}
		if len(data) < 1 {
			return 0, fmt.Errorf("modes of operation: empty reply")
		}
		return float64(data[0]), nil
	}
	return 0, fmt.Errorf("no object mapping for parameter %s", p.Name)
}

func (b *canopenBackend) WriteParam(node uint8, p wire.Param, value float64) error {
	switch p.Index {
	case wire.RunMode.Index:
		mode := byte(0)
		if value == wire.RunModePosition {
			mode = modeProfilePosition
		}
		return b.download(node, odModes, 0, []byte{mode})
	case wire.TargetPosition.Index:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(math.Round(value))))
		return b.download(node, odTargetPosition, 0, buf[:])
	}
	return fmt.Errorf("no object mapping for parameter %s", p.Name)
}

func (b *canopenBackend) controlword(node uint8, cw uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], cw)
	return b.download(node, odControlword, 0, buf[:])
}

func (b *canopenBackend) Enable(node uint8) error {
	b.Prepare(node)
	return b.controlword(node, controlwordEnable)
}

func (b *canopenBackend) Disable(node uint8) error {
	return b.controlword(node, controlwordShutdown)
}

// SetPID writes the gains to vendor-specific tuning objects. Best effort.
func (b *canopenBackend) SetPID(node uint8, kp, ki, kd float64) error {
	for _, g := range []struct {
		index uint16
		value float64
	}{{odPIDKp, kp}, {odPIDKi, ki}, {odPIDKd, kd}} {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(g.value)))
		if err := b.download(node, g.index, 0, buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func (b *canopenBackend) Prepare(node uint8) {
	b.mu.Lock()
	b.nodes[node] = struct{}{}
	b.mu.Unlock()
}

// Discover fires a device-type read at every node id and collects whoever
// answers within the window.
func (b *canopenBackend) Discover() ([]uint8, error) {
	b.io.Lock()
	defer b.io.Unlock()
	b.tr.SetFilter()
	for node := uint8(1); node <= 127; node++ {
		id, payload, err := canopen.UploadRequest(canopen.NodeID(node), odDeviceType, 0)
		if err != nil {
			continue
		}
		if err := b.tr.Send(NewFrame(id, payload[:])); err != nil {
			return nil, err
		}
	}
	seen := make(map[uint8]struct{})
	var found []uint8
	deadline := time.Now().Add(discoverWindow)
	for time.Now().Before(deadline) {
		f, err := b.tr.Receive(recvSlice)
		if err != nil {
			continue
		}
		n, idx, _, _, err := canopen.ParseUploadResponse(f.ID, f.Data)
		if err != nil || idx != odDeviceType {
			continue
		}
		if _, dup := seen[uint8(n)]; dup {
			continue
		}
		seen[uint8(n)] = struct{}{}
		found = append(found, uint8(n))
	}
	return found, nil
}

func (b *canopenBackend) Close() error {
	b.mu.Lock()
	b.nodes = make(map[uint8]struct{})
	b.mu.Unlock()
	return nil
}
