package diam

import "fmt"

// Message is the parsed form of one Diameter message: an eagerly parsed
// header plus an ordered, mutable list of AVPs. Each AVP's payload is
// copied out of the input buffer at parse time, but its typed value is
// decoded only when a rule or route first asks for it (AVP.TypedValue).
type Message struct {
	Header Header
	AVPs   []*AVP
}

// Unmarshal parses one complete Diameter message (header + AVPs) from b.
func Unmarshal(b []byte) (*Message, error) {
	h, err := unmarshalHeader(b)
	if err != nil {
		return nil, err
	}
	if int(h.Length) > len(b) {
		return nil, fmt.Errorf("message length %d exceeds buffer %d", h.Length, len(b))
	}
	avps, err := decodeAVPs(b[20:h.Length])
	if err != nil {
		return nil, err
	}
	return &Message{Header: h, AVPs: avps}, nil
}

// Marshal serializes the message, recomputing Header.Length.
func (m *Message) Marshal() []byte {
	var body []byte
	for _, a := range m.AVPs {
		body = append(body, a.marshal()...)
	}
	total := 20 + len(body)
	m.Header.Length = uint32(total)
	return append(m.Header.marshal(total), body...)
}

// Clone returns a deep-enough copy for copy-on-write manipulation: AVP
// structs are duplicated (so rule actions on the clone never mutate the
// original), but unmodified payload slices are shared until rewritten.
func (m *Message) Clone() *Message {
	out := &Message{Header: m.Header}
	out.AVPs = make([]*AVP, len(m.AVPs))
	for i, a := range m.AVPs {
		clone := *a
		out.AVPs[i] = &clone
	}
	return out
}

// First returns the first AVP matching (code, vendorID), or nil.
func (m *Message) First(code, vendorID uint32) *AVP {
	for _, a := range m.AVPs {
		if a.Code == code && a.VendorID == vendorID {
			return a
		}
	}
	return nil
}

// All returns every AVP matching (code, vendorID), in message order.
func (m *Message) All(code, vendorID uint32) []*AVP {
	var out []*AVP
	for _, a := range m.AVPs {
		if a.Code == code && a.VendorID == vendorID {
			out = append(out, a)
		}
	}
	return out
}

// Append adds a new AVP to the end of the message.
func (m *Message) Append(a *AVP) {
	m.AVPs = append(m.AVPs, a)
}

// DeleteAll removes every AVP matching (code, vendorID). Returns the
// number removed.
func (m *Message) DeleteAll(code, vendorID uint32) int {
	kept := m.AVPs[:0]
	removed := 0
	for _, a := range m.AVPs {
		if a.Code == code && a.VendorID == vendorID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.AVPs = kept
	return removed
}

// SetFirst replaces the first AVP matching code/vendorID with val,
// appending a new one if absent — the SET_VALUE manipulation semantics
// (§3: "replace the first AVP with matching code; if absent, equivalent
// to ADD").
func (m *Message) SetFirst(code, vendorID uint32, mandatory bool, val interface{ Serialize() []byte }) {
	for _, a := range m.AVPs {
		if a.Code == code && a.VendorID == vendorID {
			a.Payload = val.Serialize()
			a.value = nil
			return
		}
	}
	m.Append(&AVP{Code: code, VendorID: vendorID, Mandatory: mandatory, Payload: val.Serialize()})
}

// DeleteWhere removes every AVP matching (code, vendorID) for which
// pred(value) is true, where value is the AVP's dictionary-typed string
// form. Used by TOPOLOGY_HIDE's conditional Route-Record removal.
func (m *Message) DeleteWhere(code, vendorID uint32, dict *Dictionary, pred func(value string) bool) int {
	kept := m.AVPs[:0]
	removed := 0
	for _, a := range m.AVPs {
		if a.Code == code && a.VendorID == vendorID && pred(a.StringValue(dict)) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.AVPs = kept
	return removed
}

// IsRequest reports whether the R flag is set.
func (m *Message) IsRequest() bool { return m.Header.Flags.Request }

// HeaderField returns the string form of a header field named by a
// ManipulationRule Match with target HEADER, for condition evaluation.
func (m *Message) HeaderField(name string) (string, bool) {
	switch name {
	case "command_code":
		return fmt.Sprintf("%d", m.Header.CommandCode), true
	case "application_id":
		return fmt.Sprintf("%d", m.Header.ApplicationID), true
	case "hop_by_hop_id":
		return fmt.Sprintf("%d", m.Header.HopByHopID), true
	case "end_to_end_id":
		return fmt.Sprintf("%d", m.Header.EndToEndID), true
	case "command_flags":
		return flagsString(m.Header.Flags), true
	default:
		return "", false
	}
}

func flagsString(f Flags) string {
	s := ""
	if f.Request {
		s += "R"
	}
	if f.Proxiable {
		s += "P"
	}
	if f.Error {
		s += "E"
	}
	if f.Retransmitted {
		s += "T"
	}
	return s
}
