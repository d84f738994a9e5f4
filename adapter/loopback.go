package adapter

import (
	"sync"
	"time"

	robstride "github.com/n2048-creative-technology/blender-robstride"
)

func init() {
	if err := robstride.RegisterTransport(&robstride.TransportInfo{
		Name:        "loopback",
		Description: "In-memory transport for tests and demos",
		New: func(cfg *robstride.TransportConfig) (robstride.Transport, error) {
			return NewLoopback(cfg), nil
		},
	}); err != nil {
		panic(err)
	}
}

// Loopback is an in-memory Transport. Sent frames are handed to the
// Responder hook; whatever it returns is queued for Receive. Without a
// responder sent frames vanish, which looks like a silent bus.
type Loopback struct {
	cfg *robstride.TransportConfig

	// Responder synthesizes the bus side. May be nil.
	Responder func(*robstride.Frame) *robstride.Frame

	mu     sync.Mutex
	queue  []*robstride.Frame
	filter map[uint32]struct{}
	closed bool
}

func NewLoopback(cfg *robstride.TransportConfig) *Loopback {
	return &Loopback{cfg: cfg}
}

func (l *Loopback) Send(f *robstride.Frame) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return robstride.ErrClosed
	}
	responder := l.Responder
	l.mu.Unlock()
	if responder == nil {
		return nil
	}
	if resp := responder(f); resp != nil {
		l.Inject(resp)
	}
	return nil
}

// Inject queues a frame for Receive, subject to the current filter.
func (l *Loopback) Inject(f *robstride.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if len(l.filter) > 0 {
		if _, ok := l.filter[f.ID]; !ok {
			return
		}
	}
	l.queue = append(l.queue, f)
}

func (l *Loopback) Receive(timeout time.Duration) (*robstride.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return nil, robstride.ErrClosed
		}
		if len(l.queue) > 0 {
			f := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()
			return f, nil
		}
		l.mu.Unlock()
		if !time.Now().Before(deadline) {
			return nil, robstride.ErrRecvTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

func (l *Loopback) SetFilter(ids ...uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(ids) == 0 {
		l.filter = nil
		return nil
	}
	l.filter = make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		l.filter[id] = struct{}{}
	}
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.queue = nil
	return nil
}
