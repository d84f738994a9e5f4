package adapter

import (
	"testing"

	robstride "github.com/n2048-creative-technology/blender-robstride"
)

func TestAllTransportsRegistered(t *testing.T) {
	// socketcan must be present on every platform; the non-linux build
	// registers a constructor that reports the bus as unavailable.
	registered := make(map[string]struct{})
	for _, name := range robstride.ListTransports() {
		registered[name] = struct{}{}
	}
	for _, name := range []string{"socketcan", "slcan", "loopback"} {
		if _, ok := registered[name]; !ok {
			t.Errorf("transport %q not registered", name)
		}
	}
}
