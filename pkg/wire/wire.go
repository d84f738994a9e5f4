// Package wire implements the Robstride private CAN protocol framing.
//
// Frames use 29-bit extended identifiers laid out as
//
//	[ command(5) | host id(16) | node id(8) ]
//
// with fixed 8-byte payloads. Multi-byte payload fields are little-endian.
// A response to a read swaps the host and node bytes in the identifier and
// echoes the four index bytes of the request.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Command codes carried in the top 5 bits of the identifier.
const (
	CmdEnable     = 0x03 // enable motor, zero payload
	CmdDisable    = 0x04 // disable/stop motor, zero payload
	CmdReadParam  = 0x11 // single parameter read
	CmdWriteParam = 0x12 // single parameter write
)

// DefaultHostID is the master/host identifier used as the source of request
// frames unless configured otherwise.
const DefaultHostID uint16 = 0x00AA

// ParamType selects how the 4-byte value field is encoded.
type ParamType int

const (
	U32 ParamType = iota // unsigned 32-bit integer
	F32                  // IEEE-754 float32
)

// Param describes an entry of the node's parameter table.
type Param struct {
	Index uint16
	Name  string
	Type  ParamType
}

// Known parameters.
var (
	RunMode            = Param{Index: 0x7005, Name: "run_mode", Type: U32}
	TargetPosition     = Param{Index: 0x7016, Name: "loc_ref", Type: F32}
	MechanicalPosition = Param{Index: 0x7019, Name: "mechpos", Type: F32}
)

// Run modes written to RunMode.
const (
	RunModeIdle     = 0
	RunModePosition = 1
)

// RequestID builds the extended identifier for a request from the host to a
// node.
func RequestID(cmd uint8, host uint16, node uint8) uint32 {
	return uint32(cmd&0x1F)<<24 | uint32(host)<<8 | uint32(node)
}

// ResponseID builds the identifier a node uses when answering the host: the
// source and destination bytes swap roles.
func ResponseID(cmd uint8, host uint16, node uint8) uint32 {
	return uint32(cmd&0x1F)<<24 | uint32(node)<<8 | uint32(host&0xFF)
}

// EncodeRead builds the payload of a CmdReadParam request.
func EncodeRead(p Param) [8]byte {
	var d [8]byte
	binary.LittleEndian.PutUint16(d[0:2], p.Index)
	return d
}

// EncodeWrite builds the payload of a CmdWriteParam request. The value is
// encoded as u32 or float32 according to the parameter type.
func EncodeWrite(p Param, value float64) [8]byte {
	var d [8]byte
	binary.LittleEndian.PutUint16(d[0:2], p.Index)
	switch p.Type {
	case F32:
		binary.LittleEndian.PutUint32(d[4:8], math.Float32bits(float32(value)))
	default:
		binary.LittleEndian.PutUint32(d[4:8], uint32(value))
	}
	return d
}

// EncodeCommand builds the payload of a CmdEnable or CmdDisable frame.
func EncodeCommand() [8]byte {
	return [8]byte{}
}

// DecodeWrite recovers the value carried by a CmdWriteParam payload. The
// index bytes must match the parameter.
func DecodeWrite(p Param, data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("wire: write payload length %d, want 8", len(data))
	}
	if idx := binary.LittleEndian.Uint16(data[0:2]); idx != p.Index {
		return 0, fmt.Errorf("wire: write index 0x%04X, want 0x%04X", idx, p.Index)
	}
	return decodeValue(p, data[4:8]), nil
}

// VerifyReadResponse validates a frame against the read request it should
// answer and returns the decoded value. Any framing violation (standard
// identifier, wrong arbitration id, wrong length, index bytes not echoing the
// request) is an error; callers treat all of them as "no response".
func VerifyReadResponse(host uint16, node uint8, p Param, id uint32, extended bool, data []byte) (float64, error) {
	if !extended {
		return 0, fmt.Errorf("wire: response not an extended frame")
	}
	if want := ResponseID(CmdReadParam, host, node); id != want {
		return 0, fmt.Errorf("wire: response id 0x%08X, want 0x%08X", id, want)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("wire: response length %d, want 8", len(data))
	}
	req := EncodeRead(p)
	for i := 0; i < 4; i++ {
		if data[i] != req[i] {
			return 0, fmt.Errorf("wire: response index bytes % X do not echo request", data[0:4])
		}
	}
	return decodeValue(p, data[4:8]), nil
}

func decodeValue(p Param, b []byte) float64 {
	v := binary.LittleEndian.Uint32(b)
	if p.Type == F32 {
		return float64(math.Float32frombits(v))
	}
	return float64(v)
}
