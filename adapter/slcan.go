package adapter

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"

	robstride "github.com/n2048-creative-technology/blender-robstride"
)

func init() {
	if err := robstride.RegisterTransport(&robstride.TransportInfo{
		Name:        "slcan",
		Description: "Canable SLCan serial adapter",
		New:         NewSLCan,
	}); err != nil {
		panic(err)
	}
}

// SLCan drives a Lawicel/Canable serial-line CAN adapter. The config Channel
// is the serial port name.
type SLCan struct {
	cfg  *robstride.TransportConfig
	port serial.Port
	recv chan *robstride.Frame

	mu     sync.Mutex
	filter map[uint32]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

var slcanRates = map[int]string{
	10_000:    "S0",
	20_000:    "S1",
	50_000:    "S2",
	100_000:   "S3",
	125_000:   "S4",
	250_000:   "S5",
	500_000:   "S6",
	750_000:   "S7",
	1_000_000: "S8",
}

func NewSLCan(cfg *robstride.TransportConfig) (robstride.Transport, error) {
	mode := &serial.Mode{
		BaudRate: cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Channel, mode)
	if err != nil {
		return nil, fmt.Errorf("slcan: failed to open port %q: %w", cfg.Channel, err)
	}
	p.SetReadTimeout(1 * time.Millisecond)
	p.ResetOutputBuffer()
	p.ResetInputBuffer()

	sl := &SLCan{
		cfg:    cfg,
		port:   p,
		recv:   make(chan *robstride.Frame, 64),
		closed: make(chan struct{}),
	}

	rate, ok := slcanRates[cfg.Bitrate]
	if !ok {
		p.Close()
		return nil, fmt.Errorf("slcan: unsupported bitrate %d", cfg.Bitrate)
	}
	p.Write([]byte(rate + "\r"))
	time.Sleep(10 * time.Millisecond)
	p.Write([]byte("O\r"))

	go sl.recvManager()
	return sl, nil
}

func (sl *SLCan) Send(f *robstride.Frame) error {
	var out bytes.Buffer
	if f.Extended {
		out.WriteString(fmt.Sprintf("T%08X", f.ID&0x1FFFFFFF))
	} else {
		out.WriteString(fmt.Sprintf("t%03X", f.ID&0x7FF))
	}
	out.WriteString(strconv.Itoa(len(f.Data)))
	out.WriteString(hex.EncodeToString(f.Data))
	out.WriteByte('\r')
	if sl.cfg.Debug {
		sl.cfg.OnMessage(">> " + f.ColorString())
	}
	if _, err := sl.port.Write(out.Bytes()); err != nil {
		return fmt.Errorf("slcan: write: %w", err)
	}
	return nil
}

func (sl *SLCan) Receive(timeout time.Duration) (*robstride.Frame, error) {
	select {
	case f := <-sl.recv:
		if sl.cfg.Debug {
			sl.cfg.OnMessage("<< " + f.ColorString())
		}
		return f, nil
	case <-sl.closed:
		return nil, robstride.ErrClosed
	case <-time.After(timeout):
		return nil, robstride.ErrRecvTimeout
	}
}

func (sl *SLCan) SetFilter(ids ...uint32) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(ids) == 0 {
		sl.filter = nil
		return nil
	}
	sl.filter = make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		sl.filter[id] = struct{}{}
	}
	return nil
}

func (sl *SLCan) pass(id uint32) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(sl.filter) == 0 {
		return true
	}
	_, ok := sl.filter[id]
	return ok
}

func (sl *SLCan) Close() error {
	sl.closeOnce.Do(func() {
		close(sl.closed)
	})
	time.Sleep(10 * time.Millisecond)
	sl.port.Write([]byte("C\r"))
	time.Sleep(10 * time.Millisecond)
	return sl.port.Close()
}

func (sl *SLCan) recvManager() {
	buff := bytes.NewBuffer(nil)
	readBuffer := make([]byte, 16)
	for {
		select {
		case <-sl.closed:
			return
		default:
		}
		n, err := sl.port.Read(readBuffer)
		if err != nil {
			select {
			case <-sl.closed:
			default:
				sl.cfg.OnError(fmt.Errorf("slcan: read: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		sl.parse(buff, readBuffer[:n])
	}
}

func (sl *SLCan) parse(buff *bytes.Buffer, chunk []byte) {
	for _, b := range chunk {
		if b != 0x0D {
			if b == 0x07 { // bell, last command was unknown
				sl.cfg.OnError(fmt.Errorf("slcan: unknown command"))
				continue
			}
			buff.WriteByte(b)
			continue
		}
		if buff.Len() == 0 {
			continue
		}
		line := buff.Bytes()
		switch line[0] {
		case 't', 'T':
			f, err := decodeSLCanFrame(line)
			if err != nil {
				sl.cfg.OnError(fmt.Errorf("slcan: %w", err))
				buff.Reset()
				continue
			}
			if sl.pass(f.ID) {
				select {
				case sl.recv <- f:
				default:
					sl.cfg.OnError(robstride.ErrDroppedFrame)
				}
			}
		default:
			sl.cfg.OnMessage("slcan unknown >> " + buff.String())
		}
		buff.Reset()
	}
}

func decodeSLCanFrame(line []byte) (*robstride.Frame, error) {
	idLen := 3
	extended := line[0] == 'T'
	if extended {
		idLen = 8
	}
	if len(line) < 1+idLen+1 {
		return nil, fmt.Errorf("truncated frame %q", line)
	}
	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to decode identifier: %w", err)
	}
	data, err := hex.DecodeString(string(line[1+idLen+1:]))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame body: %w", err)
	}
	f := robstride.NewFrame(uint32(id), data)
	f.Extended = extended
	return f, nil
}
