// Package diam is the generic, dictionary-driven Diameter message model
// used by the routing and manipulation engine: unlike commands/base (one
// Go struct per command, used by the peer layer for CER/CEA/DWR/DWA/DPR/
// DPA), it represents any command as an ordered AVP list so the Core
// Router can inspect and rewrite traffic it has no compiled-in knowledge
// of.
package diam

import (
	"encoding/binary"
	"fmt"
)

// Flags holds the Diameter command flags (R, P, E, T) from RFC 6733 §3.
type Flags struct {
	Request       bool
	Proxiable     bool
	Error         bool
	Retransmitted bool
}

func (f Flags) encode() byte {
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

func decodeFlags(b byte) Flags {
	return Flags{
		Request:       b&0x80 != 0,
		Proxiable:     b&0x40 != 0,
		Error:         b&0x20 != 0,
		Retransmitted: b&0x10 != 0,
	}
}

// Header is the 20-byte Diameter message header.
type Header struct {
	Version       uint8
	Length        uint32 // 24-bit on the wire; includes the header
	Flags         Flags
	CommandCode   uint32 // 24-bit
	ApplicationID uint32
	HopByHopID    uint32
	EndToEndID    uint32
}

func (h Header) marshal(totalLen int) []byte {
	b := make([]byte, 20)
	b[0] = 1
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
	return Header{
		Version:       b[0],
		Length:        getUint24(b[1:4]),
		Flags:         decodeFlags(b[4]),
		CommandCode:   getUint24(b[5:8]),
		ApplicationID: binary.BigEndian.Uint32(b[8:12]),
		HopByHopID:    binary.BigEndian.Uint32(b[12:16]),
		EndToEndID:    binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// HeaderFor builds the header for a locally synthesized answer: R
// cleared, E set, same command/application/end-to-end id, the given
// hop-by-hop id preserved so the upstream sender can match it (§4.1).
func HeaderFor(commandCode, applicationID, hopByHopID, endToEndID uint32) Header {
	return Header{
		Version:       1,
		Flags:         Flags{Error: true},
		CommandCode:   commandCode,
		ApplicationID: applicationID,
		HopByHopID:    hopByHopID,
		EndToEndID:    endToEndID,
	}
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func getUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
