package robstride

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Transport is the bus capability the core consumes. It may be backed by a
// real CAN interface, a vendor SDK or a test double.
//
// Receive blocks for at most the given timeout and returns ErrRecvTimeout
// when nothing arrived. SetFilter restricts delivery to the given
// identifiers; calling it with no arguments clears the filter.
type Transport interface {
	Send(*Frame) error
	Receive(timeout time.Duration) (*Frame, error)
	SetFilter(ids ...uint32) error
	Close() error
}

// TransportConfig carries the settings a transport needs to open.
type TransportConfig struct {
	Channel      string // bus channel or serial port, e.g. "can0" or "/dev/ttyACM0"
	Bitrate      int    // bus bitrate in bit/s
	PortBaudrate int    // serial baudrate for serial-attached transports
	Debug        bool
	OnMessage    func(string)
	OnError      func(error)
}

func (cfg *TransportConfig) setDefaults() {
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) { log.Println(msg) }
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) { log.Println(err) }
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = 1_000_000
	}
	if cfg.PortBaudrate == 0 {
		cfg.PortBaudrate = 115200
	}
}

// TransportInfo describes a registered transport implementation.
type TransportInfo struct {
	Name        string
	Description string
	New         func(*TransportConfig) (Transport, error)
}

var transportMap = make(map[string]*TransportInfo)

// RegisterTransport makes a transport available to NewTransport by name.
func RegisterTransport(info *TransportInfo) error {
	name := strings.ToLower(info.Name)
	if _, found := transportMap[name]; found {
		return fmt.Errorf("transport %s already registered", info.Name)
	}
	transportMap[name] = info
	return nil
}

// NewTransport opens the named transport.
func NewTransport(name string, cfg *TransportConfig) (Transport, error) {
	cfg.setDefaults()
	if info, found := transportMap[strings.ToLower(name)]; found {
		return info.New(cfg)
	}
	return nil, fmt.Errorf("unknown transport %q: %w", name, ErrTransportUnavailable)
}

// ListTransports returns the registered transport names.
func ListTransports() []string {
	var out []string
	for name := range transportMap {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
