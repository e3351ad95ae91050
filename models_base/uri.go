package models_base

import "fmt"

// DiameterURI data type, e.g. "aaa://host.example.com:3868;transport=tcp".
type DiameterURI OctetString

func DecodeDiameterURI(b []byte) (Type, error) {
	d := make([]byte, len(b))
	copy(d, b)
	return DiameterURI(d), nil
}

func (s DiameterURI) Serialize() []byte {
	return OctetString(s).Serialize()
}

func (s DiameterURI) Len() int {
	return len(s)
}

func (s DiameterURI) Padding() int {
	l := len(s)
	return pad4(l) - l
}

func (s DiameterURI) Type() TypeID {
	return DiameterURIType
}

func (s DiameterURI) String() string {
	return fmt.Sprintf("DiameterURI{%s},Padding:%d", string(s), s.Padding())
}
