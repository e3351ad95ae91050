// Package base implements the RFC 6733 base-protocol command messages
// (CER/CEA, DWR/DWA, DPR/DPA) plus the handful of session-management
// commands (STR, ASR, ACR, RAR) the peer and session layers build on top
// of the wire codec.
package base

import (
	"encoding/binary"
	"fmt"
)

// Command codes for the messages this package implements.
const (
	CodeCapabilitiesExchange  uint32 = 257
	CodeDeviceWatchdog        uint32 = 280
	CodeDisconnectPeer        uint32 = 282
	CodeReAuth                uint32 = 258
	CodeAccounting            uint32 = 271
	CodeSessionTermination    uint32 = 275
	CodeAbortSession          uint32 = 274
)

// HeaderFlags holds the Diameter command flags (R, P, E, T).
type HeaderFlags struct {
	Request       bool
	Proxiable     bool
	Error         bool
	Retransmitted bool
}

func (f HeaderFlags) encode() byte {
	var b byte
	if f.Request {
		b |= 0x80
	}
	if f.Proxiable {
		b |= 0x40
	}
	if f.Error {
		b |= 0x20
	}
	if f.Retransmitted {
		b |= 0x10
	}
	return b
}

func decodeHeaderFlags(b byte) HeaderFlags {
	return HeaderFlags{
		Request:       b&0x80 != 0,
		Proxiable:     b&0x40 != 0,
		Error:         b&0x20 != 0,
		Retransmitted: b&0x10 != 0,
	}
}

// Header is the 20-byte Diameter message header.
type Header struct {
	Version       uint8
	Length        uint32 // 24-bit on the wire, includes the header itself
	Flags         HeaderFlags
	CommandCode   uint32 // 24-bit
	ApplicationID uint32
	HopByHopID    uint32
	EndToEndID    uint32
}

func newRequestHeader(code uint32, proxiable bool) Header {
	return Header{
		Version:     1,
		CommandCode: code,
		Flags:       HeaderFlags{Request: true, Proxiable: proxiable},
	}
}

func newAnswerHeader(code uint32, proxiable bool) Header {
	return Header{
		Version:     1,
		CommandCode: code,
		Flags:       HeaderFlags{Request: false, Proxiable: proxiable},
	}
}

func (h Header) marshal(totalLen int) []byte {
	b := make([]byte, 20)
	b[0] = h.Version
	putUint24(b[1:4], uint32(totalLen))
	b[4] = h.Flags.encode()
	putUint24(b[5:8], h.CommandCode)
	binary.BigEndian.PutUint32(b[8:12], h.ApplicationID)
	binary.BigEndian.PutUint32(b[12:16], h.HopByHopID)
	binary.BigEndian.PutUint32(b[16:20], h.EndToEndID)
	return b
}

func unmarshalHeader(b []byte) (Header, error) {
	if len(b) < 20 {
		return Header{}, fmt.Errorf("diameter header too short: %d bytes", len(b))
	}
	h := Header{
		Version:       b[0],
		Length:        getUint24(b[1:4]),
		Flags:         decodeHeaderFlags(b[4]),
		CommandCode:   getUint24(b[5:8]),
		ApplicationID: binary.BigEndian.Uint32(b[8:12]),
		HopByHopID:    binary.BigEndian.Uint32(b[12:16]),
		EndToEndID:    binary.BigEndian.Uint32(b[16:20]),
	}
	return h, nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func getUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
