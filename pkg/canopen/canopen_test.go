package canopen

import (
	"bytes"
	"testing"
)

func TestDownloadRequest(t *testing.T) {
	id, d, err := DownloadRequest(5, 0x6040, 0x00, []byte{0x0F, 0x00})
	if err != nil {
		t.Fatalf("DownloadRequest() error = %v", err)
	}
	if id != 0x605 {
		t.Errorf("COB-ID = 0x%X, want 0x605", id)
	}
	// ccs=1, e=1, s=1, n=2 unused bytes
	if d[0] != 0x2B {
		t.Errorf("command byte = 0x%02X, want 0x2B", d[0])
	}
	if d[1] != 0x40 || d[2] != 0x60 || d[3] != 0x00 {
		t.Errorf("object address bytes = % X", d[1:4])
	}
	if d[4] != 0x0F || d[5] != 0x00 {
		t.Errorf("payload bytes = % X", d[4:6])
	}
}

func TestDownloadRequestSizeBits(t *testing.T) {
	// n sits at bits 3..2: 4-len unused bytes, e and s always set.
	cases := []struct {
		data []byte
		cmd  byte
	}{
		{[]byte{0x01}, 0x2F},
		{[]byte{0x01, 0x02}, 0x2B},
		{[]byte{0x01, 0x02, 0x03}, 0x27},
		{[]byte{0x01, 0x02, 0x03, 0x04}, 0x23},
	}
	for _, c := range cases {
		_, d, err := DownloadRequest(5, 0x607A, 0x00, c.data)
		if err != nil {
			t.Fatalf("DownloadRequest(%d bytes) error = %v", len(c.data), err)
		}
		if d[0] != c.cmd {
			t.Errorf("%d bytes: command byte = 0x%02X, want 0x%02X", len(c.data), d[0], c.cmd)
		}
	}
}

func TestDownloadRequestRejectsBadInput(t *testing.T) {
	if _, _, err := DownloadRequest(0, 0x6040, 0, []byte{1}); err == nil {
		t.Error("accepted node id 0")
	}
	if _, _, err := DownloadRequest(200, 0x6040, 0, []byte{1}); err == nil {
		t.Error("accepted node id 200")
	}
	if _, _, err := DownloadRequest(5, 0x6040, 0, nil); err == nil {
		t.Error("accepted empty payload")
	}
	if _, _, err := DownloadRequest(5, 0x6040, 0, []byte{1, 2, 3, 4, 5}); err == nil {
		t.Error("accepted 5-byte payload")
	}
}

func TestUploadResponseRoundTrip(t *testing.T) {
	id, req, err := UploadRequest(10, 0x6064, 0x00)
	if err != nil {
		t.Fatalf("UploadRequest() error = %v", err)
	}
	if id != 0x60A {
		t.Errorf("COB-ID = 0x%X, want 0x60A", id)
	}
	if req[0] != 0x40 {
		t.Errorf("command byte = 0x%02X, want 0x40", req[0])
	}

	// Synthesize the server reply: scs=2, e=1, s=1, n=0, 4 data bytes.
	resp := [8]byte{0x43, req[1], req[2], req[3], 0x39, 0x30, 0x00, 0x00}
	node, index, sub, data, err := ParseUploadResponse(SDOTxBase+10, resp[:])
	if err != nil {
		t.Fatalf("ParseUploadResponse() error = %v", err)
	}
	if node != 10 || index != 0x6064 || sub != 0 {
		t.Errorf("address = node %d index 0x%04X sub %d", node, index, sub)
	}
	if !bytes.Equal(data, []byte{0x39, 0x30, 0x00, 0x00}) {
		t.Errorf("data = % X", data)
	}
}

func TestParseUploadResponseSizes(t *testing.T) {
	// 0x4F..0x43 announce 1..4 valid bytes via n at bits 3..2.
	cases := []struct {
		cmd  byte
		size int
	}{
		{0x4F, 1},
		{0x4B, 2},
		{0x47, 3},
		{0x43, 4},
	}
	for _, c := range cases {
		resp := [8]byte{c.cmd, 0x64, 0x60, 0x00, 0x11, 0x22, 0x33, 0x44}
		_, _, _, data, err := ParseUploadResponse(0x58A, resp[:])
		if err != nil {
			t.Fatalf("cmd 0x%02X: ParseUploadResponse() error = %v", c.cmd, err)
		}
		if len(data) != c.size {
			t.Errorf("cmd 0x%02X: got %d bytes, want %d", c.cmd, len(data), c.size)
		}
	}
}

func TestParseUploadResponseRejects(t *testing.T) {
	good := [8]byte{0x43, 0x64, 0x60, 0x00, 0, 0, 0, 0}
	if _, _, _, _, err := ParseUploadResponse(0x181, good[:]); err == nil {
		t.Error("accepted a non-SDO COB-ID")
	}
	if _, _, _, _, err := ParseUploadResponse(0x58A, good[:6]); err == nil {
		t.Error("accepted a short frame")
	}
	bad := good
	bad[0] = 0x60 // download response specifier
	if _, _, _, _, err := ParseUploadResponse(0x58A, bad[:]); err == nil {
		t.Error("accepted wrong command specifier")
	}
}

func TestParseDownloadResponse(t *testing.T) {
	d := [8]byte{0x60, 0x40, 0x60, 0x00, 0, 0, 0, 0}
	node, index, sub, err := ParseDownloadResponse(0x585, d[:])
	if err != nil {
		t.Fatalf("ParseDownloadResponse() error = %v", err)
	}
	if node != 5 || index != 0x6040 || sub != 0 {
		t.Errorf("address = node %d index 0x%04X sub %d", node, index, sub)
	}
}
