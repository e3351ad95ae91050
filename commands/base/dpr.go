package base

import (
	"fmt"

	"github.com/vex-telecom/dsc/models_base"
)

// DisconnectPeerRequest is the DPR command (RFC 6733 §5.4.1).
type DisconnectPeerRequest struct {
	Header Header

	OriginHost      models_base.DiameterIdentity
	OriginRealm     models_base.DiameterIdentity
	DisconnectCause models_base.Enumerated
}

func NewDisconnectPeerRequest() *DisconnectPeerRequest {
	return &DisconnectPeerRequest{Header: newRequestHeader(CodeDisconnectPeer, false)}
}

func (m *DisconnectPeerRequest) Validate() error {
	if m.OriginHost == "" {
		return fmt.Errorf("DPR validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("DPR validation failed: missing Origin-Realm")
	}
	return nil
}

func (m *DisconnectPeerRequest) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	out = append(out, encodeAVP(AVPDisconnectCause, 0, true, m.DisconnectCause)...)
	return out
}

func (m *DisconnectPeerRequest) Len() int { return 20 + len(m.body()) }

func (m *DisconnectPeerRequest) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *DisconnectPeerRequest) Unmarshal(data []byte) error {
	h, err := unmarshalHeader(data)
	if err != nil {
		return err
	}
	avps, err := decodeAVPs(data[20:])
	if err != nil {
		return err
	}
	m.Header = h
	if a := findAVP(avps, AVPOriginHost, 0); a != nil {
		m.OriginHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPOriginRealm, 0); a != nil {
		m.OriginRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPDisconnectCause, 0); a != nil {
		t, _ := models_base.DecodeEnumerated(a.Payload)
		m.DisconnectCause = t.(models_base.Enumerated)
	}
	return nil
}

func (m *DisconnectPeerRequest) String() string {
	return fmt.Sprintf("DPR{OriginHost:%s,Cause:%d}", m.OriginHost, m.DisconnectCause)
}

// DisconnectPeerAnswer is the DPA command (RFC 6733 §5.4.2).
type DisconnectPeerAnswer struct {
	Header Header

	ResultCode  models_base.Unsigned32
	OriginHost  models_base.DiameterIdentity
	OriginRealm models_base.DiameterIdentity
}

func NewDisconnectPeerAnswer() *DisconnectPeerAnswer {
	return &DisconnectPeerAnswer{Header: newAnswerHeader(CodeDisconnectPeer, false)}
}

func (m *DisconnectPeerAnswer) Validate() error {
	if m.ResultCode == 0 {
		return fmt.Errorf("DPA validation failed: missing Result-Code")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("DPA validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("DPA validation failed: missing Origin-Realm")
	}
	return nil
}

func (m *DisconnectPeerAnswer) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPResultCode, 0, true, m.ResultCode)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	return out
}

func (m *DisconnectPeerAnswer) Len() int { return 20 + len(m.body()) }

func (m *DisconnectPeerAnswer) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *DisconnectPeerAnswer) Unmarshal(data []byte) error {
	h, err := unmarshalHeader(data)
	if err != nil {
		return err
	}
	avps, err := decodeAVPs(data[20:])
	if err != nil {
		return err
	}
	m.Header = h
	if a := findAVP(avps, AVPResultCode, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.ResultCode = t.(models_base.Unsigned32)
	}
	if a := findAVP(avps, AVPOriginHost, 0); a != nil {
		m.OriginHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPOriginRealm, 0); a != nil {
		m.OriginRealm = models_base.DiameterIdentity(a.Payload)
	}
	return nil
}

func (m *DisconnectPeerAnswer) String() string {
	return fmt.Sprintf("DPA{ResultCode:%d,OriginHost:%s}", m.ResultCode, m.OriginHost)
}
