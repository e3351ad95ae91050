package base

import (
	"fmt"

	"github.com/vex-telecom/dsc/models_base"
)

// DeviceWatchdogRequest is the DWR command (RFC 6733 §5.5.1).
type DeviceWatchdogRequest struct {
	Header Header

	OriginHost    models_base.DiameterIdentity
	OriginRealm   models_base.DiameterIdentity
	OriginStateId models_base.Unsigned32
}

func NewDeviceWatchdogRequest() *DeviceWatchdogRequest {
	return &DeviceWatchdogRequest{Header: newRequestHeader(CodeDeviceWatchdog, false)}
}

func (m *DeviceWatchdogRequest) Validate() error {
	if m.OriginHost == "" {
		return fmt.Errorf("DWR validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("DWR validation failed: missing Origin-Realm")
	}
	return nil
}

func (m *DeviceWatchdogRequest) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	if m.OriginStateId != 0 {
		out = append(out, encodeAVP(AVPOriginStateId, 0, false, m.OriginStateId)...)
	}
	return out
}

func (m *DeviceWatchdogRequest) Len() int { return 20 + len(m.body()) }

func (m *DeviceWatchdogRequest) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *DeviceWatchdogRequest) Unmarshal(data []byte) error {
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
	if a := findAVP(avps, AVPOriginStateId, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.OriginStateId = t.(models_base.Unsigned32)
	}
	return nil
}

func (m *DeviceWatchdogRequest) String() string {
	return fmt.Sprintf("DWR{OriginHost:%s}", m.OriginHost)
}

// DeviceWatchdogAnswer is the DWA command (RFC 6733 §5.5.2).
type DeviceWatchdogAnswer struct {
	Header Header

	ResultCode    models_base.Unsigned32
	OriginHost    models_base.DiameterIdentity
	OriginRealm   models_base.DiameterIdentity
	OriginStateId models_base.Unsigned32
}

func NewDeviceWatchdogAnswer() *DeviceWatchdogAnswer {
	return &DeviceWatchdogAnswer{Header: newAnswerHeader(CodeDeviceWatchdog, false)}
}

func (m *DeviceWatchdogAnswer) Validate() error {
	if m.ResultCode == 0 {
		return fmt.Errorf("DWA validation failed: missing Result-Code")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("DWA validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("DWA validation failed: missing Origin-Realm")
	}
	return nil
}

func (m *DeviceWatchdogAnswer) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPResultCode, 0, true, m.ResultCode)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	if m.OriginStateId != 0 {
		out = append(out, encodeAVP(AVPOriginStateId, 0, false, m.OriginStateId)...)
	}
	return out
}

func (m *DeviceWatchdogAnswer) Len() int { return 20 + len(m.body()) }

func (m *DeviceWatchdogAnswer) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *DeviceWatchdogAnswer) Unmarshal(data []byte) error {
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
	if a := findAVP(avps, AVPOriginStateId, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.OriginStateId = t.(models_base.Unsigned32)
	}
	return nil
}

func (m *DeviceWatchdogAnswer) String() string {
	return fmt.Sprintf("DWA{ResultCode:%d,OriginHost:%s}", m.ResultCode, m.OriginHost)
}
