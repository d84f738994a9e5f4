// Package canopen implements the small subset of CiA 301 needed to drive a
// drive-profile node over SDO: expedited upload/download of objects up to
// four bytes. It is transport-agnostic and works on raw identifier/payload
// pairs.
package canopen

import (
	"encoding/binary"
	"fmt"
)

// Function code bases for SDO COB-IDs.
const (
	SDOTxBase uint32 = 0x580 // server -> client
	SDORxBase uint32 = 0x600 // client -> server
)

// SDO command specifiers.
const (
	ccsDownloadInitiate = 1
	ccsUploadInitiate   = 2
	scsUploadInitiate   = 2
	scsDownloadInitiate = 3
)

// NodeID is a CANopen node address (1..127).
type NodeID uint8

func (n NodeID) Validate() error {
	if n < 1 || n > 127 {
		return fmt.Errorf("canopen: node id %d out of range 1..127", n)
	}
	return nil
}

// DownloadRequest builds an expedited initiate-download (write) request.
// data may hold one to four bytes.
func DownloadRequest(node NodeID, index uint16, sub uint8, data []byte) (uint32, [8]byte, error) {
	var d [8]byte
	if err := node.Validate(); err != nil {
		return 0, d, err
	}
	if len(data) == 0 || len(data) > 4 {
		return 0, d, fmt.Errorf("canopen: expedited download takes 1..4 bytes, got %d", len(data))
	}
	// ccs at bits 7..5, n at bits 3..2, e at bit 1, s at bit 0.
	n := uint8(4 - len(data))
	cmd := byte(ccsDownloadInitiate)<<5 | (n&0x3)<<2 | 1<<1 | 1
	d[0] = cmd
	binary.LittleEndian.PutUint16(d[1:3], index)
	d[3] = sub
	copy(d[4:], data)
	return SDORxBase + uint32(node), d, nil
}

// UploadRequest builds an expedited initiate-upload (read) request.
func UploadRequest(node NodeID, index uint16, sub uint8) (uint32, [8]byte, error) {
	var d [8]byte
	if err := node.Validate(); err != nil {
		return 0, d, err
	}
	d[0] = byte(ccsUploadInitiate) << 5
	binary.LittleEndian.PutUint16(d[1:3], index)
	d[3] = sub
	return SDORxBase + uint32(node), d, nil
}

// ParseUploadResponse decodes a server expedited upload response and returns
// the responding node, the object address and the payload bytes.
func ParseUploadResponse(id uint32, data []byte) (NodeID, uint16, uint8, []byte, error) {
	node, err := serverNode(id)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if len(data) != 8 {
		return 0, 0, 0, nil, fmt.Errorf("canopen: SDO frame length %d, want 8", len(data))
	}
	cmd := data[0]
	if (cmd>>5)&0x7 != scsUploadInitiate {
		return 0, 0, 0, nil, fmt.Errorf("canopen: not an upload response (cmd=0x%02X)", cmd)
	}
	if cmd&0x02 == 0 || cmd&0x01 == 0 {
		return 0, 0, 0, nil, fmt.Errorf("canopen: only expedited transfers with size supported (cmd=0x%02X)", cmd)
	}
	size := 4 - int((cmd>>2)&0x3)
	index := binary.LittleEndian.Uint16(data[1:3])
	out := make([]byte, size)
	copy(out, data[4:4+size])
	return node, index, data[3], out, nil
}

// ParseDownloadResponse decodes a server download confirmation.
func ParseDownloadResponse(id uint32, data []byte) (NodeID, uint16, uint8, error) {
	node, err := serverNode(id)
	if err != nil {
		return 0, 0, 0, err
	}
	if len(data) != 8 {
		return 0, 0, 0, fmt.Errorf("canopen: SDO frame length %d, want 8", len(data))
	}
	if (data[0]>>5)&0x7 != scsDownloadInitiate {
		return 0, 0, 0, fmt.Errorf("canopen: not a download response (cmd=0x%02X)", data[0])
	}
	return node, binary.LittleEndian.Uint16(data[1:3]), data[3], nil
}

func serverNode(id uint32) (NodeID, error) {
	if id < SDOTxBase+1 || id > SDOTxBase+127 {
		return 0, fmt.Errorf("canopen: id 0x%X is not an SDO tx COB-ID", id)
	}
	return NodeID(id - SDOTxBase), nil
}
