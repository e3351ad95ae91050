package models_base

import (
	"fmt"
	"net"
)

// IPv4 is a bare 4-octet IPv4 address, used where the dictionary pins the
// family (unlike Address, it carries no family tag of its own).
type IPv4 net.IP

func DecodeIPv4(b []byte) (Type, error) {
	if len(b) != 4 {
		return IPv4(nil), fmt.Errorf("IPv4 AVP has wrong length: %d", len(b))
	}
	return IPv4(net.IP(append([]byte{}, b...))), nil
}

func (a IPv4) Serialize() []byte {
	v4 := net.IP(a).To4()
	if v4 == nil {
		return make([]byte, 4)
	}
	return append([]byte{}, v4...)
}

func (a IPv4) Len() int {
	return 4
}

func (a IPv4) Padding() int {
	return 0
}

func (a IPv4) Type() TypeID {
	return IPv4Type
}

func (a IPv4) String() string {
	return fmt.Sprintf("IPv4{%s}", net.IP(a).String())
}
