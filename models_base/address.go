package models_base

import (
	"fmt"
	"net"
)

// AddressFamily values from IANA's "Address Family Numbers" registry, the
// ones actually seen on Diameter AVPs.
const (
	AddressFamilyIPv4 uint16 = 1
	AddressFamilyIPv6 uint16 = 2
)

// Address is the Diameter "Address" data type: a 2-octet address family
// followed by the address itself, no padding of its own (padding to the
// 4-byte AVP boundary is handled like any other OctetString-shaped type).
type Address net.IP

func DecodeAddress(b []byte) (Type, error) {
	if len(b) < 2 {
		return Address(nil), fmt.Errorf("address AVP too short: %d bytes", len(b))
	}
	family := uint16(b[0])<<8 | uint16(b[1])
	switch family {
	case AddressFamilyIPv4:
		if len(b) != 6 {
			return Address(nil), fmt.Errorf("IPv4 address AVP has wrong length: %d", len(b))
		}
		return Address(net.IP(append([]byte{}, b[2:6]...))), nil
	case AddressFamilyIPv6:
		if len(b) != 18 {
			return Address(nil), fmt.Errorf("IPv6 address AVP has wrong length: %d", len(b))
		}
		return Address(net.IP(append([]byte{}, b[2:18]...))), nil
	default:
		return Address(nil), fmt.Errorf("unsupported address family: %d", family)
	}
}

func (a Address) Serialize() []byte {
	ip := net.IP(a)
	if v4 := ip.To4(); v4 != nil {
		b := make([]byte, 6)
		b[0], b[1] = 0, byte(AddressFamilyIPv4)
		copy(b[2:], v4)
		return b
	}
	v6 := ip.To16()
	b := make([]byte, 18)
	b[0], b[1] = 0, byte(AddressFamilyIPv6)
	copy(b[2:], v6)
	return b
}

func (a Address) Len() int {
	return len(a.Serialize())
}

func (a Address) Padding() int {
	l := a.Len()
	return pad4(l) - l
}

func (a Address) Type() TypeID {
	return AddressType
}

func (a Address) String() string {
	return fmt.Sprintf("Address{%s}", net.IP(a).String())
}
