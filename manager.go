package robstride

import (
	"log"
	"sync"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

// ConnectionState describes the manager's lifecycle state. Simulated means
// the worker is running without a transport; the simulate flag itself is
// orthogonal and may also be set while Connected.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
	Simulated
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Simulated:
		return "simulated"
	}
	return "disconnected"
}

// NodeInfo is one discovered node as reported by Scan.
type NodeInfo struct {
	ID   uint8
	Name string
}

// Config carries the manager's settings. The zero value is usable; defaults
// match the original deployment (socketcan, can0, 1 Mbit/s, host 0x00AA).
type Config struct {
	Interface string
	Channel   string
	Bitrate   int
	HostID    uint16
	Preferred BackendKind
	Simulate  bool
	// Vendor, when set, makes the vendor backend available to selection.
	Vendor VendorClient

	Debug     bool
	OnMessage func(string)
	OnError   func(error)
	// OnScanProgress, when set, is called after each probed id during a
	// direct scan.
	OnScanProgress func(done, total int)

	// OpenTransport overrides the registry lookup, mainly for tests.
	OpenTransport func(name string, cfg *TransportConfig) (Transport, error)
}

func (cfg *Config) setDefaults() {
	if cfg.Interface == "" {
		cfg.Interface = "socketcan"
	}
	if cfg.Channel == "" {
		cfg.Channel = "can0"
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = 1_000_000
	}
	if cfg.HostID == 0 {
		cfg.HostID = wire.DefaultHostID
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) { log.Println(msg) }
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) { log.Println(err) }
	}
	if cfg.OpenTransport == nil {
		cfg.OpenTransport = NewTransport
	}
}

// scanOptions bound and shape node discovery.
type scanOptions struct {
	min   uint8
	max   uint8
	quick bool
}

// Manager owns the transport, the backend selection and the background
// worker. It is the single object the host application talks to; all methods
// are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	state   ConnectionState
	tr      Transport
	backend Backend
	wrk     *worker
	scan    scanOptions

	// io serializes request/response transactions on the transport between
	// the worker and the scanner.
	io sync.Mutex

	pending *pending
	sim     *simulator
}

// NewManager creates a disconnected manager.
func NewManager(cfg Config) *Manager {
	cfg.setDefaults()
	return &Manager{
		cfg:     cfg,
		pending: newPending(),
		sim:     newSimulator(),
		scan:    scanOptions{min: 0, max: 127, quick: true},
	}
}

// Configure updates the bus settings. Pure state change, no I/O; takes
// effect on the next Connect.
func (m *Manager) Configure(iface, channel string, bitrate int) {
	m.mu.Lock()
	m.cfg.Interface = iface
	m.cfg.Channel = channel
	m.cfg.Bitrate = bitrate
	m.mu.Unlock()
}

// SetPreferredBackend selects where backend fallback starts.
func (m *Manager) SetPreferredBackend(kind BackendKind) {
	m.mu.Lock()
	m.cfg.Preferred = kind
	m.mu.Unlock()
}

// SetSimulate toggles the simulation flag. Independent of the connection
// state: simulated nodes appear in scans and, without a transport, Connect
// degrades to a virtual connection.
func (m *Manager) SetSimulate(v bool) {
	m.mu.Lock()
	m.cfg.Simulate = v
	m.mu.Unlock()
}

// SetScanProgress installs a callback invoked after each probed id during a
// direct scan.
func (m *Manager) SetScanProgress(fn func(done, total int)) {
	m.mu.Lock()
	m.cfg.OnScanProgress = fn
	m.mu.Unlock()
}

// SetScanOptions bounds discovery to [min,max] and selects quick mode
// (probe only the common-id subset).
func (m *Manager) SetScanOptions(min, max uint8, quick bool) {
	m.mu.Lock()
	if max > 127 {
		max = 127
	}
	m.scan = scanOptions{min: min, max: max, quick: quick}
	m.mu.Unlock()
}

// Connect opens the transport, selects a backend down the fallback chain and
// starts the worker. With simulate set, an unopenable bus degrades to a
// virtual connection instead of failing. Returns false only on total
// failure; never panics or returns an error.
func (m *Manager) Connect() bool {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return true
	}

	tr, err := m.cfg.OpenTransport(m.cfg.Interface, &TransportConfig{
		Channel:   m.cfg.Channel,
		Bitrate:   m.cfg.Bitrate,
		Debug:     m.cfg.Debug,
		OnMessage: m.cfg.OnMessage,
		OnError:   m.cfg.OnError,
	})
	if err != nil {
		m.cfg.OnError(err)
		tr = nil
	}

	backend := openBackend(m.cfg.Preferred, &m.cfg, tr, &m.io)
	if backend == nil {
		if tr != nil {
			tr.Close()
			tr = nil
		}
		if !m.cfg.Simulate {
			m.mu.Unlock()
			return false
		}
		// Virtual connection: worker runs against the simulator only.
		m.state = Simulated
	} else {
		m.state = Connected
	}

	m.tr = tr
	m.backend = backend
	m.pending.reset()
	m.sim.reset()
	m.wrk = newWorker(backend, m.pending, m.sim, m.cfg.OnError)
	m.wrk.start()
	msg := "connected (" + m.state.String() + ", backend " + m.backendName() + ")"
	onMessage := m.cfg.OnMessage
	m.mu.Unlock()

	// Outside the lock: the callback may re-enter the manager.
	onMessage(msg)
	return true
}

func (m *Manager) backendName() string {
	if m.backend == nil {
		return "none"
	}
	return m.backend.Name()
}

// Disconnect stops the worker with a bounded join, releases the backend and
// clears all per-node state. Safe to call repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Disconnected {
		return
	}
	if m.wrk != nil {
		m.wrk.join()
		m.wrk = nil
	}
	if m.backend != nil {
		if err := m.backend.Close(); err != nil {
			m.cfg.OnError(err)
		}
		m.backend = nil
	}
	if m.tr != nil {
		if err := m.tr.Close(); err != nil {
			m.cfg.OnError(err)
		}
		m.tr = nil
	}
	m.pending.reset()
	m.state = Disconnected
}

// IsConnected reports whether a worker is running (real bus or virtual).
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != Disconnected
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PrepareNode pre-registers a node with backends that require explicit
// registration. Best-effort hint, no-op for the raw backend.
func (m *Manager) PrepareNode(id uint8) {
	if b := m.activeBackend(); b != nil {
		b.Prepare(id)
	}
}

// EnableNode powers a node on or off. Synchronous best-effort call; failures
// are reported through OnError only.
func (m *Manager) EnableNode(id uint8, enable bool) {
	b := m.activeBackend()
	if b == nil {
		return
	}
	if enable {
		if err := b.Enable(id); err != nil {
			m.cfg.OnError(err)
			return
		}
		m.pending.setEnabled(id, true)
		return
	}
	if err := b.Disable(id); err != nil {
		m.cfg.OnError(err)
		return
	}
	m.pending.setEnabled(id, false)
	m.pending.setPosMode(id, false)
}

// SetPID forwards the gains to the backend's tuning parameters. Best effort:
// the mapping is vendor-specific and a no-op under the raw backend.
func (m *Manager) SetPID(id uint8, kp, ki, kd float64) {
	if b := m.activeBackend(); b != nil {
		if err := b.SetPID(id, kp, ki, kd); err != nil {
			m.cfg.OnError(err)
		}
	}
}

// PostPosition queues a position setpoint for the worker. Never blocks;
// only the most recent value per node survives until the next drain.
func (m *Manager) PostPosition(id uint8, value float64) {
	if !m.IsConnected() {
		return
	}
	m.pending.postWrite(id, value)
}

// RequestRead queues a feedback read for the worker. Never blocks.
func (m *Manager) RequestRead(id uint8) {
	if !m.IsConnected() {
		return
	}
	m.pending.postRead(id)
}

// CachedPosition returns the most recent feedback value the worker obtained
// for the node, which may lag the bus by one or more ticks. The second
// return is false while no read has succeeded yet.
func (m *Manager) CachedPosition(id uint8) (float64, bool) {
	return m.pending.cached(id)
}

// NodeStatus reports whether the node is reachable in principle: true iff
// connected or simulating. No per-node liveness tracking.
func (m *Manager) NodeStatus(id uint8) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Simulate || m.state != Disconnected
}

func (m *Manager) activeBackend() Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}
