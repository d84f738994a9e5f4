package robstride

import (
	"sync"
	"time"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

// BackendKind selects one of the interchangeable node-communication
// strategies.
type BackendKind int

const (
	// BackendVendor delegates to an externally supplied vendor client.
	BackendVendor BackendKind = iota
	// BackendGenericNode speaks an object-dictionary protocol (CiA 301 SDO).
	BackendGenericNode
	// BackendRaw speaks the Robstride private wire protocol directly.
	BackendRaw
)

func (k BackendKind) String() string {
	switch k {
	case BackendVendor:
		return "vendor"
	case BackendGenericNode:
		return "generic"
	case BackendRaw:
		return "raw"
	}
	return "unknown"
}

// ParseBackendKind maps a configuration string to a BackendKind. Unknown
// values select the vendor backend so the full fallback chain applies.
func ParseBackendKind(s string) BackendKind {
	switch s {
	case "generic", "canopen":
		return BackendGenericNode
	case "raw":
		return BackendRaw
	default:
		return BackendVendor
	}
}

// Backend is the uniform capability set the manager, worker and scanner use
// to talk to nodes. Implementations return errors for observability; callers
// log them and carry on, nothing propagates past this boundary.
type Backend interface {
	Name() string
	ReadParam(node uint8, p wire.Param, timeout time.Duration) (float64, error)
	WriteParam(node uint8, p wire.Param, value float64) error
	Enable(node uint8) error
	Disable(node uint8) error
	SetPID(node uint8, kp, ki, kd float64) error
	// Prepare pre-registers a node with backends that need it. Best effort.
	Prepare(node uint8)
	// Discover returns candidate node ids from backend-level discovery, or
	// an error when the backend has no discovery mechanism.
	Discover() ([]uint8, error)
	Close() error
}

// backendOrder is the fixed fallback chain: vendor, then generic node
// protocol, then raw. Selection starts at the preferred kind and falls
// through on open failure.
var backendOrder = []BackendKind{BackendVendor, BackendGenericNode, BackendRaw}

// openBackend tries each strategy from the preferred kind down the fallback
// chain. tr may be nil when no transport could be opened, in which case only
// the vendor backend can succeed.
func openBackend(preferred BackendKind, cfg *Config, tr Transport, io *sync.Mutex) Backend {
	start := 0
	for i, k := range backendOrder {
		if k == preferred {
			start = i
			break
		}
	}
	for _, k := range backendOrder[start:] {
		switch k {
		case BackendVendor:
			if cfg.Vendor == nil {
				continue
			}
			if err := cfg.Vendor.Open(cfg.Interface, cfg.Channel, cfg.Bitrate); err != nil {
				cfg.OnError(err)
				continue
			}
			return &vendorBackend{client: cfg.Vendor}
		case BackendGenericNode:
			if tr == nil {
				continue
			}
			return newCANopenBackend(tr, io, cfg.OnError)
		case BackendRaw:
			if tr == nil {
				continue
			}
			return newRawBackend(tr, io, cfg.HostID, cfg.OnError)
		}
	}
	return nil
}
