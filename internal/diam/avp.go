package diam

import (
	"encoding/binary"
	"fmt"

	"github.com/vex-telecom/dsc/models_base"
)

// AVPFlags holds the V/M/P bits of one AVP header.
type AVPFlags struct {
	Vendor    bool
	Mandatory bool
	Protected bool
}

func (f AVPFlags) encode() byte {
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

// AVP is one Attribute-Value Pair. Payload always holds the raw,
// unpadded wire bytes; Value is the dictionary-typed decode of Payload,
// populated lazily by TypedValue and cached here. A rule that rewrites
// an AVP should set both Payload (via SetValue) so Marshal and
// TypedValue stay consistent.
type AVP struct {
	Code      uint32
	VendorID  uint32
	Mandatory bool
	Protected bool
	Payload   []byte

	value models_base.Type
}

// NewAVP builds an AVP from an already-typed value, encoding Payload
// immediately (the common case: router actions and base-protocol
// encoders that know the type up front).
func NewAVP(code, vendorID uint32, mandatory bool, val models_base.Type) *AVP {
	return &AVP{
		Code:      code,
		VendorID:  vendorID,
		Mandatory: mandatory,
		Payload:   val.Serialize(),
		value:     val,
	}
}

// TypedValue decodes Payload per the dictionary entry for this AVP's
// (code, vendor_id), caching the result. Grouped AVPs decode to a
// models_base.Grouped holding a copy of Payload; their child AVPs are
// not parsed.
func (a *AVP) TypedValue(dict *Dictionary) (models_base.Type, error) {
	if a.value != nil {
		return a.value, nil
	}
	entry, ok := dict.Lookup(a.Code, a.VendorID)
	if !ok {
		v, err := models_base.DecodeOctetString(a.Payload)
		if err == nil {
			a.value = v
		}
		return v, err
	}
	v, err := decodeByType(entry.DataType, a.Payload)
	if err != nil {
		return nil, err
	}
	a.value = v
	return v, nil
}

// SetValue replaces the AVP's value, re-encoding Payload.
func (a *AVP) SetValue(val models_base.Type) {
	a.value = val
	a.Payload = val.Serialize()
}

// StringValue renders the AVP's current payload as a string for
// condition matching / REGEX_REPLACE, independent of whether the
// dictionary has typed it — falling back to raw bytes-as-string.
func (a *AVP) StringValue(dict *Dictionary) string {
	v, err := a.TypedValue(dict)
	if err != nil || v == nil {
		return string(a.Payload)
	}
	switch t := v.(type) {
	case models_base.OctetString:
		return string(t)
	case models_base.UTF8String:
		return string(t)
	case models_base.DiameterIdentity:
		return string(t)
	case models_base.DiameterURI:
		return string(t)
	default:
		return t.String()
	}
}

func decodeByType(t models_base.TypeID, b []byte) (models_base.Type, error) {
	switch t {
	case models_base.OctetStringType:
		return models_base.DecodeOctetString(b)
	case models_base.UTF8StringType:
		return models_base.DecodeUTF8String(b)
	case models_base.DiameterIdentityType:
		return models_base.DecodeDiameterIdentity(b)
	case models_base.DiameterURIType:
		return models_base.DecodeDiameterURI(b)
	case models_base.AddressType:
		return models_base.DecodeAddress(b)
	case models_base.IPv4Type:
		return models_base.DecodeIPv4(b)
	case models_base.IPv6Type:
		return models_base.DecodeIPv6(b)
	case models_base.Unsigned32Type:
		return models_base.DecodeUnsigned32(b)
	case models_base.Unsigned64Type:
		return models_base.DecodeUnsigned64(b)
	case models_base.Integer32Type:
		return models_base.DecodeInteger32(b)
	case models_base.Integer64Type:
		return models_base.DecodeInteger64(b)
	case models_base.Float32Type:
		return models_base.DecodeFloat32(b)
	case models_base.Float64Type:
		return models_base.DecodeFloat64(b)
	case models_base.EnumeratedType:
		return models_base.DecodeEnumerated(b)
	case models_base.TimeType:
		return models_base.DecodeTime(b)
	case models_base.IPFilterRuleType:
		return models_base.DecodeIPFilterRule(b)
	case models_base.QoSFilterRuleType:
		return models_base.DecodeQoSFilterRule(b)
	case models_base.GroupedType:
		return models_base.DecodeGrouped(b)
	default:
		return models_base.DecodeOctetString(b)
	}
}

func (a *AVP) headerLen() int {
	if a.VendorID != 0 {
		return 12
	}
	return 8
}

func (a *AVP) wireLen() int {
	return a.headerLen() + len(a.Payload)
}

func (a *AVP) marshal() []byte {
	flags := AVPFlags{Vendor: a.VendorID != 0, Mandatory: a.Mandatory, Protected: a.Protected}
	total := a.wireLen()
	out := make([]byte, pad4(total))
	binary.BigEndian.PutUint32(out[0:4], a.Code)
	out[4] = flags.encode()
	putUint24(out[5:8], uint32(total))
	off := 8
	if flags.Vendor {
		binary.BigEndian.PutUint32(out[8:12], a.VendorID)
		off = 12
	}
	copy(out[off:], a.Payload)
	return out
}

func decodeAVPs(b []byte) ([]*AVP, error) {
	var out []*AVP
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
		if int(length) < headerLen {
			return nil, fmt.Errorf("AVP %d: length %d shorter than its own %d-byte header", code, length, headerLen)
		}
		if int(length) > len(b) {
			return nil, fmt.Errorf("AVP %d: length %d exceeds remaining buffer %d", code, length, len(b))
		}
		payload := append([]byte{}, b[headerLen:length]...)
		out = append(out, &AVP{
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
