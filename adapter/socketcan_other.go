//go:build !linux

package adapter

import (
	"fmt"

	robstride "github.com/n2048-creative-technology/blender-robstride"
)

func init() {
	if err := robstride.RegisterTransport(&robstride.TransportInfo{
		Name:        "socketcan",
		Description: "Linux SocketCAN driver (linux only)",
		New:         NewSocketCAN,
	}); err != nil {
		panic(err)
	}
}

// NewSocketCAN reports SocketCAN as unavailable on non-linux platforms, so
// selecting it degrades the same way as a missing bus instead of failing at
// registry lookup.
func NewSocketCAN(cfg *robstride.TransportConfig) (robstride.Transport, error) {
	return nil, fmt.Errorf("socketcan %s: %w", cfg.Channel, robstride.ErrTransportUnavailable)
}
