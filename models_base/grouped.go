package models_base

import "fmt"

// Grouped holds the pre-encoded, already-padded bytes of a sequence of
// child AVPs. models_base has no notion of an AVP (that lives one layer
// up, alongside the dictionary), so the child sequence is opaque here;
// the AVP layer is responsible for recursively decoding/encoding it.
type Grouped []byte

func DecodeGrouped(b []byte) (Type, error) {
	d := make([]byte, len(b))
	copy(d, b)
	return Grouped(d), nil
}

func (g Grouped) Serialize() []byte {
	return []byte(g)
}

func (g Grouped) Len() int {
	return len(g)
}

func (g Grouped) Padding() int {
	l := len(g)
	return pad4(l) - l
}

func (g Grouped) Type() TypeID {
	return GroupedType
}

func (g Grouped) String() string {
	return fmt.Sprintf("Grouped{%d bytes},Padding:%d", len(g), g.Padding())
}
