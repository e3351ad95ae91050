package base

import (
	"encoding/binary"
	"fmt"

	"github.com/vex-telecom/dsc/models_base"
)

// AVP codes used by the base-protocol and session-management commands
// implemented in this package (RFC 6733 §4, §8, §9).
const (
	AVPSessionId               uint32 = 263
	AVPOriginHost              uint32 = 264
	AVPOriginRealm             uint32 = 296
	AVPDestinationHost         uint32 = 293
	AVPDestinationRealm       uint32 = 283
	AVPResultCode              uint32 = 268
	AVPHostIPAddress           uint32 = 257
	AVPVendorId                uint32 = 266
	AVPProductName             uint32 = 269
	AVPAuthApplicationId       uint32 = 258
	AVPAcctApplicationId       uint32 = 259
	AVPDisconnectCause         uint32 = 273
	AVPOriginStateId           uint32 = 278
	AVPErrorMessage            uint32 = 281
	AVPRouteRecord             uint32 = 282
	AVPInbandSecurityId        uint32 = 299
	AVPFirmwareRevision        uint32 = 267
	AVPSupportedVendorId       uint32 = 265
	AVPTerminationCause        uint32 = 295
	AVPAccountingRecordType    uint32 = 480
	AVPAccountingRecordNumber  uint32 = 485
)

// avpFlags carries the V/M/P bits of one AVP.
type avpFlags struct {
	Vendor    bool
	Mandatory bool
	Protected bool
}

func (f avpFlags) encode() byte {
	var b byte
	if f.Vendor {
		b |= 0x80
	}
	if f.Mandatory {
		b |= 0x40
	}
	if f.Protected {
		b |= 0x20
	}
	return b
}

// encodeAVP serializes one AVP: code, flags, optional vendor id, and the
// already-typed payload, padded to a 4-byte boundary.
func encodeAVP(code uint32, vendorID uint32, mandatory bool, val models_base.Type) []byte {
	if val == nil {
		return nil
	}
	flags := avpFlags{Vendor: vendorID != 0, Mandatory: mandatory}
	headerLen := 8
	if flags.Vendor {
		headerLen = 12
	}
	payload := val.Serialize()
	total := headerLen + len(payload)
	out := make([]byte, total+val.Padding())

	binary.BigEndian.PutUint32(out[0:4], code)
	out[4] = flags.encode()
	putUint24(out[5:8], uint32(total))
	off := 8
	if flags.Vendor {
		binary.BigEndian.PutUint32(out[8:12], vendorID)
		off = 12
	}
	copy(out[off:], payload)
	return out
}

// rawAVP is one decoded AVP header plus its unpadded payload slice.
type rawAVP struct {
	Code      uint32
	VendorID  uint32
	Mandatory bool
	Protected bool
	Payload   []byte
}

// decodeAVPs walks a flat AVP sequence (the body of a Diameter message).
func decodeAVPs(b []byte) ([]rawAVP, error) {
	var out []rawAVP
	for len(b) > 0 {
		if len(b) < 8 {
			return nil, fmt.Errorf("truncated AVP header: %d bytes left", len(b))
		}
		code := binary.BigEndian.Uint32(b[0:4])
		flagByte := b[4]
		length := getUint24(b[5:8])
		if length < 8 {
			return nil, fmt.Errorf("AVP %d: invalid length %d", code, length)
		}
		hasVendor := flagByte&0x80 != 0
		headerLen := 8
		var vendorID uint32
		if hasVendor {
			if len(b) < 12 {
				return nil, fmt.Errorf("truncated vendor AVP header")
			}
			vendorID = binary.BigEndian.Uint32(b[8:12])
			headerLen = 12
		}
		if int(length) > len(b) {
			return nil, fmt.Errorf("AVP %d: length %d exceeds remaining buffer %d", code, length, len(b))
		}
		payload := b[headerLen:length]
		out = append(out, rawAVP{
			Code:      code,
			VendorID:  vendorID,
			Mandatory: flagByte&0x40 != 0,
			Protected: flagByte&0x20 != 0,
			Payload:   payload,
		})
		padded := pad4(int(length))
		if padded > len(b) {
			return nil, fmt.Errorf("AVP %d: padded length %d exceeds remaining buffer %d", code, padded, len(b))
		}
		b = b[padded:]
	}
	return out, nil
}

func pad4(l int) int {
	return (l + 3) &^ 3
}

func findAVP(avps []rawAVP, code, vendorID uint32) *rawAVP {
	for i := range avps {
		if avps[i].Code == code && avps[i].VendorID == vendorID {
			return &avps[i]
		}
	}
	return nil
}

func findAllAVP(avps []rawAVP, code, vendorID uint32) []rawAVP {
	var out []rawAVP
	for _, a := range avps {
		if a.Code == code && a.VendorID == vendorID {
			out = append(out, a)
		}
	}
	return out
}
