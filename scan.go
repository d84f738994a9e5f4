package robstride

import (
	"fmt"

	"github.com/n2048-creative-technology/blender-robstride/pkg/wire"
)

// quickScanIDs is the fixed subset of likely node ids probed in quick mode.
var quickScanIDs = []uint8{1, 2, 10, 42, 100, 120, 127}

// Scan discovers nodes and returns them in probe order, real nodes first,
// then simulated nodes not already present. It never fails: backend errors
// degrade to an empty candidate set for that phase.
//
// When connected it first asks the active backend for candidates (vendor
// scan call or generic-protocol network search) and verifies each one with a
// single raw mechanical-position read. Without candidates it probes either
// the quick subset or the full configured range directly.
func (m *Manager) Scan() []NodeInfo {
	m.mu.Lock()
	state := m.state
	tr := m.tr
	backend := m.backend
	opts := m.scan
	host := m.cfg.HostID
	simulate := m.cfg.Simulate
	progress := m.cfg.OnScanProgress
	onError := m.cfg.OnError
	m.mu.Unlock()

	var found []NodeInfo
	seen := make(map[uint8]struct{})
	add := func(id uint8) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		found = append(found, NodeInfo{ID: id, Name: fmt.Sprintf("Node %d", id)})
	}

	if state == Connected && backend != nil {
		candidates, err := backend.Discover()
		if err != nil {
			candidates = nil
		}
		if len(candidates) > 0 {
			// Verify candidates with a raw probe when a transport is at
			// hand; vendor-only setups have nothing to probe with.
			if tr == nil {
				for _, id := range candidates {
					add(id)
				}
			} else {
				probe := newRawBackend(tr, &m.io, host, onError)
				for _, id := range candidates {
					if _, err := probe.ReadParam(id, wire.MechanicalPosition, readTimeout); err == nil {
						add(id)
					}
				}
			}
		} else if tr != nil {
			probe := newRawBackend(tr, &m.io, host, onError)
			ids := probeList(opts)
			for i, id := range ids {
				if _, err := probe.ReadParam(id, wire.MechanicalPosition, readTimeout); err == nil {
					add(id)
				}
				if progress != nil {
					progress(i+1, len(ids))
				}
			}
		}
	}

	if simulate {
		for _, n := range simNodes {
			if _, dup := seen[n.ID]; dup {
				continue
			}
			seen[n.ID] = struct{}{}
			found = append(found, n)
		}
	}
	return found
}

// probeList expands the scan options into the exact id sequence to probe.
func probeList(opts scanOptions) []uint8 {
	var ids []uint8
	if opts.quick {
		for _, id := range quickScanIDs {
			if id >= opts.min && id <= opts.max {
				ids = append(ids, id)
			}
		}
		return ids
	}
	for id := int(opts.min); id <= int(opts.max); id++ {
		ids = append(ids, uint8(id))
	}
	return ids
}
