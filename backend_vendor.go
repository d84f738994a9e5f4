package robstride

import (
	"time"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

// VendorClient is the opaque driver interface an official vendor library can
// be adapted to. The manager never constructs one; the caller injects it via
// Config.Vendor.
type VendorClient interface {
	Open(iface, channel string, bitrate int) error
	Scan() ([]uint8, error)
	Enable(node uint8) error
	Disable(node uint8) error
	ReadParam(node uint8, index uint16) (float64, error)
	WriteParam(node uint8, index uint16, value float64) error
	SetPID(node uint8, kp, ki, kd float64) error
	Close() error
}

// vendorBackend adapts a VendorClient to the Backend capability set.
type vendorBackend struct {
	client VendorClient
}

func (b *vendorBackend) Name() string { return "vendor" }

func (b *vendorBackend) ReadParam(node uint8, p wire.Param, _ time.Duration) (float64, error) {
	return b.client.ReadParam(node, p.Index)
}

func (b *vendorBackend) WriteParam(node uint8, p wire.Param, value float64) error {
	return b.client.WriteParam(node, p.Index, value)
}

func (b *vendorBackend) Enable(node uint8) error  { return b.client.Enable(node) }
func (b *vendorBackend) Disable(node uint8) error { return b.client.Disable(node) }

func (b *vendorBackend) SetPID(node uint8, kp, ki, kd float64) error {
	return b.client.SetPID(node, kp, ki, kd)
}

func (b *vendorBackend) Prepare(node uint8) {}

func (b *vendorBackend) Discover() ([]uint8, error) { return b.client.Scan() }

func (b *vendorBackend) Close() error { return b.client.Close() }
