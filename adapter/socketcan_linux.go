//go:build linux

package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/candevice"
	"go.einride.tech/can/pkg/socketcan"
	"golang.org/x/sync/errgroup"

	robstride "github.com/n2048-creative-technology/blender-robstride"
)

func init() {
	if err := robstride.RegisterTransport(&robstride.TransportInfo{
		Name:        "socketcan",
		Description: "Linux SocketCAN driver",
		New:         NewSocketCAN,
	}); err != nil {
		panic(err)
	}
}

// SocketCAN attaches to a Linux CAN network interface.
type SocketCAN struct {
	cfg    *robstride.TransportConfig
	dev    *candevice.Device
	conn   net.Conn
	tx     *socketcan.Transmitter
	rx     *socketcan.Receiver
	recv   chan *robstride.Frame
	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.Mutex
	filter map[uint32]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSocketCAN opens the channel named in the config, e.g. "can0". Bringing
// the device up and setting the bitrate needs CAP_NET_ADMIN; when that fails
// the interface is assumed to be configured already.
func NewSocketCAN(cfg *robstride.TransportConfig) (robstride.Transport, error) {
	a := &SocketCAN{
		cfg:    cfg,
		recv:   make(chan *robstride.Frame, 64),
		closed: make(chan struct{}),
	}
	if dev, err := candevice.New(cfg.Channel); err == nil {
		a.dev = dev
		if err := dev.SetBitrate(uint32(cfg.Bitrate)); err != nil {
			cfg.OnMessage(fmt.Sprintf("socketcan: cannot set bitrate on %s: %v", cfg.Channel, err))
		}
		if err := dev.SetUp(); err != nil {
			cfg.OnMessage(fmt.Sprintf("socketcan: cannot bring up %s: %v", cfg.Channel, err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := socketcan.DialContext(ctx, "can", cfg.Channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("socketcan: dial %s: %w", cfg.Channel, err)
	}
	a.cancel = cancel
	a.conn = conn
	a.tx = socketcan.NewTransmitter(conn)
	a.rx = socketcan.NewReceiver(conn)

	a.g, _ = errgroup.WithContext(ctx)
	a.g.Go(func() error {
		a.recvManager()
		return nil
	})
	return a, nil
}

func (a *SocketCAN) recvManager() {
	for a.rx.Receive() {
		f := a.rx.Frame()
		if !a.pass(f.ID) {
			continue
		}
		frame := robstride.NewFrame(f.ID, f.Data[:f.Length])
		frame.Extended = f.IsExtended
		select {
		case a.recv <- frame:
		default:
			a.cfg.OnError(robstride.ErrDroppedFrame)
		}
	}
}

func (a *SocketCAN) pass(id uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.filter) == 0 {
		return true
	}
	_, ok := a.filter[id]
	return ok
}

func (a *SocketCAN) Send(f *robstride.Frame) error {
	var out can.Frame
	out.ID = f.ID
	out.IsExtended = f.Extended
	out.Length = uint8(len(f.Data))
	copy(out.Data[:], f.Data)
	if a.cfg.Debug {
		a.cfg.OnMessage(">> " + f.ColorString())
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return a.tx.TransmitFrame(ctx, out)
}

func (a *SocketCAN) Receive(timeout time.Duration) (*robstride.Frame, error) {
	select {
	case f := <-a.recv:
		if a.cfg.Debug {
			a.cfg.OnMessage("<< " + f.ColorString())
		}
		return f, nil
	case <-a.closed:
		return nil, robstride.ErrClosed
	case <-time.After(timeout):
		return nil, robstride.ErrRecvTimeout
	}
}

func (a *SocketCAN) SetFilter(ids ...uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(ids) == 0 {
		a.filter = nil
		return nil
	}
	a.filter = make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		a.filter[id] = struct{}{}
	}
	return nil
}

func (a *SocketCAN) Close() error {
	a.closeOnce.Do(func() {
		close(a.closed)
		a.cancel()
		// Unblocks the receive pump.
		a.conn.Close()
	})
	err := a.g.Wait()
	if a.dev != nil {
		if derr := a.dev.SetDown(); derr != nil {
			a.cfg.OnMessage(fmt.Sprintf("socketcan: cannot bring down %s: %v", a.cfg.Channel, derr))
		}
	}
	return err
}
