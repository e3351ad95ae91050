package models_base

import (
	"fmt"
	"net"
)

// IPv6 is a bare 16-octet IPv6 address, used where the dictionary pins the
// family (unlike Address, it carries no family tag of its own).
type IPv6 net.IP

func DecodeIPv6(b []byte) (Type, error) {
	if len(b) != 16 {
		return IPv6(nil), fmt.Errorf("IPv6 AVP has wrong length: %d", len(b))
	}
	return IPv6(net.IP(append([]byte{}, b...))), nil
}

func (a IPv6) Serialize() []byte {
	v6 := net.IP(a).To16()
	if v6 == nil {
		return make([]byte, 16)
	}
	return append([]byte{}, v6...)
}

func (a IPv6) Len() int {
	return 16
}

func (a IPv6) Padding() int {
	return 0
}

func (a IPv6) Type() TypeID {
	return IPv6Type
}

func (a IPv6) String() string {
	return fmt.Sprintf("IPv6{%s}", net.IP(a).String())
}
