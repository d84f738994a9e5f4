package robstride

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Frame is a single CAN frame as seen by a Transport.
type Frame struct {
	ID       uint32
	Extended bool
	Data     []byte
}

// NewFrame creates a standard-identifier frame, copying the data slice.
func NewFrame(id uint32, data []byte) *Frame {
	d := make([]byte, len(data))
	copy(d, data)
	return &Frame{ID: id, Data: d}
}

// NewExtendedFrame creates a 29-bit identifier frame, copying the data slice.
func NewExtendedFrame(id uint32, data []byte) *Frame {
	f := NewFrame(id, data)
	f.Extended = true
	return f
}

// Returns the length of the data (DLC)
func (f *Frame) DLC() int {
	return len(f.Data)
}

func (f *Frame) String() string {
	var out strings.Builder
	if f.Extended {
		out.WriteString(fmt.Sprintf("0x%08X", f.ID))
	} else {
		out.WriteString(fmt.Sprintf("0x%03X", f.ID))
	}
	out.WriteString(" || ")
	out.WriteString(fmt.Sprintf("%d || ", len(f.Data)))
	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	out.WriteString(fmt.Sprintf("%-23s", hexView.String()))
	return out.String()
}

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgHiYellow).SprintfFunc()
)

// ColorString renders the frame for terminal trace output.
func (f *Frame) ColorString() string {
	var out strings.Builder
	if f.Extended {
		out.WriteString(green("0x%08X", f.ID))
	} else {
		out.WriteString(green("0x%03X", f.ID))
	}
	out.WriteString(" || ")
	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	out.WriteString(yellow("%-23s", hexView.String()))
	return out.String()
}
