package connection

import (
	"encoding/binary"
	"errors"
)

// Command represents a Diameter command identifier, extracted from a
// message header without decoding the full AVP body. The router and
// peer state machine both need to classify traffic (peer-management
// vs. application, request vs. answer) before deciding whether a full
// diam.Unmarshal is worth the cost, so ParseCommand stays cheap: it
// only ever looks at the fixed 20-byte header.
type Command struct {
	Interface int  // Application ID carried in the header
	Code      int  // Command Code
	IsRequest bool // Request (R) flag from the Command Flags octet
}

// ParseCommand extracts the command identity and request/answer
// direction from a message header, without allocating or copying the
// AVP body that follows it.
func ParseCommand(header []byte) (Command, error) {
	if len(header) < 20 {
		return Command{}, errors.New("invalid header length")
	}

	// Diameter header format (RFC 6733 §3):
	// 0-3:   Version(1) + Length(3)
	// 4-7:   Command Flags(1) + Command Code(3)
	// 8-11:  Application ID (4 bytes)
	// 12-15: Hop-by-Hop ID
	// 16-19: End-to-End ID

	commandCode := int(binary.BigEndian.Uint32([]byte{0, header[5], header[6], header[7]}))
	applicationID := int(binary.BigEndian.Uint32(header[8:12]))

	return Command{
		Interface: applicationID,
		Code:      commandCode,
		IsRequest: header[4]&0x80 != 0,
	}, nil
}
