package wire

import (
	"math"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		cmd  uint8
		host uint16
		node uint8
		want uint32
	}{
		{CmdReadParam, 0x00AA, 0x7F, 0x1100AA7F},
		{CmdWriteParam, 0x00AA, 127, 0x1200AA7F},
		{CmdEnable, 0x00AA, 1, 0x0300AA01},
		{CmdDisable, 0x00AA, 42, 0x0400AA2A},
	}
	for _, tt := range tests {
		if got := RequestID(tt.cmd, tt.host, tt.node); got != tt.want {
			t.Errorf("RequestID(0x%02X, 0x%04X, %d) = 0x%08X, want 0x%08X", tt.cmd, tt.host, tt.node, got, tt.want)
		}
	}
}

func TestResponseIDSwapsRoles(t *testing.T) {
	// scan_nodes convention: request 0x1100AA<ID>, response 0x1100<ID>AA
	if got := ResponseID(CmdReadParam, 0x00AA, 0x2A); got != 0x11002AAA {
		t.Errorf("ResponseID = 0x%08X, want 0x11002AAA", got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		param Param
		value float64
	}{
		{"run_mode position", RunMode, RunModePosition},
		{"run_mode idle", RunMode, RunModeIdle},
		{"u32 max", Param{Index: 0x7005, Type: U32}, float64(math.MaxUint32)},
		{"target zero", TargetPosition, 0},
		{"target pi/2", TargetPosition, float64(float32(math.Pi / 2))},
		{"target negative", TargetPosition, float64(float32(-12.375))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EncodeWrite(tt.param, tt.value)
			got, err := DecodeWrite(tt.param, d[:])
			if err != nil {
				t.Fatalf("DecodeWrite() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("round trip = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestEncodeWriteLayout(t *testing.T) {
	// move.py: index 0x7016 -> data 16 70 00 00 <float32 LE>
	d := EncodeWrite(TargetPosition, 1.0)
	want := [8]byte{0x16, 0x70, 0x00, 0x00, 0x00, 0x00, 0x80, 0x3F}
	if d != want {
		t.Errorf("EncodeWrite(TargetPosition, 1.0) = % X, want % X", d, want)
	}
	// enable.py: run_mode=1 -> 05 70 00 00 01 00 00 00
	d = EncodeWrite(RunMode, RunModePosition)
	want = [8]byte{0x05, 0x70, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	if d != want {
		t.Errorf("EncodeWrite(RunMode, 1) = % X, want % X", d, want)
	}
}

func TestEncodeReadLayout(t *testing.T) {
	d := EncodeRead(MechanicalPosition)
	want := [8]byte{0x19, 0x70, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if d != want {
		t.Errorf("EncodeRead(MechanicalPosition) = % X, want % X", d, want)
	}
}

func validResponse(host uint16, node uint8, p Param, value float64) (uint32, []byte) {
	d := EncodeWrite(p, value) // same layout as a read response
	return ResponseID(CmdReadParam, host, node), d[:]
}

func TestVerifyReadResponse(t *testing.T) {
	const host = DefaultHostID
	const node = 42
	id, data := validResponse(host, node, MechanicalPosition, 1.5)

	if v, err := VerifyReadResponse(host, node, MechanicalPosition, id, true, data); err != nil {
		t.Fatalf("VerifyReadResponse() error = %v", err)
	} else if v != 1.5 {
		t.Fatalf("VerifyReadResponse() = %v, want 1.5", v)
	}

	tests := []struct {
		name string
		id   uint32
		ext  bool
		data []byte
	}{
		{"standard frame", id, false, data},
		{"request id instead of response id", RequestID(CmdReadParam, host, node), true, data},
		{"wrong node", ResponseID(CmdReadParam, host, node+1), true, data},
		{"wrong command", ResponseID(CmdWriteParam, host, node), true, data},
		{"short payload", id, true, data[:7]},
		{"long payload", id, true, append(append([]byte{}, data...), 0)},
		{"index mismatch", id, true, func() []byte {
			d := EncodeWrite(TargetPosition, 1.5)
			return d[:]
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyReadResponse(host, node, MechanicalPosition, tt.id, tt.ext, tt.data); err == nil {
				t.Error("VerifyReadResponse() accepted a malformed response")
			}
		})
	}
}

func TestDecodeWriteRejectsBadFrames(t *testing.T) {
	d := EncodeWrite(TargetPosition, 2.0)
	if _, err := DecodeWrite(TargetPosition, d[:6]); err == nil {
		t.Error("DecodeWrite() accepted short payload")
	}
	if _, err := DecodeWrite(RunMode, d[:]); err == nil {
		t.Error("DecodeWrite() accepted mismatched index")
	}
}
