package base

import (
	"fmt"

	"github.com/vex-telecom/dsc/models_base"
)

// CapabilitiesExchangeAnswer is the CEA command (RFC 6733 §5.3.2).
type CapabilitiesExchangeAnswer struct {
	Header Header

	ResultCode        models_base.Unsigned32
	OriginHost        models_base.DiameterIdentity
	OriginRealm       models_base.DiameterIdentity
	HostIpAddress     []models_base.Address
	VendorId          models_base.Unsigned32
	ProductName       models_base.UTF8String
	OriginStateId     models_base.Unsigned32
	ErrorMessage      models_base.UTF8String
	AuthApplicationId []models_base.Unsigned32
	AcctApplicationId []models_base.Unsigned32
	FirmwareRevision  models_base.Unsigned32
}

func NewCapabilitiesExchangeAnswer() *CapabilitiesExchangeAnswer {
	return &CapabilitiesExchangeAnswer{Header: newAnswerHeader(CodeCapabilitiesExchange, false)}
}

func (m *CapabilitiesExchangeAnswer) Validate() error {
	if m.ResultCode == 0 {
		return fmt.Errorf("CEA validation failed: missing Result-Code")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("CEA validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("CEA validation failed: missing Origin-Realm")
	}
	if len(m.HostIpAddress) == 0 {
		return fmt.Errorf("CEA validation failed: missing Host-IP-Address")
	}
	if m.ProductName == "" {
		return fmt.Errorf("CEA validation failed: missing Product-Name")
	}
	return nil
}

func (m *CapabilitiesExchangeAnswer) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPResultCode, 0, true, m.ResultCode)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	for _, a := range m.HostIpAddress {
		out = append(out, encodeAVP(AVPHostIPAddress, 0, true, a)...)
	}
	out = append(out, encodeAVP(AVPVendorId, 0, true, m.VendorId)...)
	out = append(out, encodeAVP(AVPProductName, 0, false, m.ProductName)...)
	if m.OriginStateId != 0 {
		out = append(out, encodeAVP(AVPOriginStateId, 0, false, m.OriginStateId)...)
	}
	if m.ErrorMessage != "" {
		out = append(out, encodeAVP(AVPErrorMessage, 0, false, m.ErrorMessage)...)
	}
	for _, v := range m.AuthApplicationId {
		out = append(out, encodeAVP(AVPAuthApplicationId, 0, false, v)...)
	}
	for _, v := range m.AcctApplicationId {
		out = append(out, encodeAVP(AVPAcctApplicationId, 0, false, v)...)
	}
	if m.FirmwareRevision != 0 {
		out = append(out, encodeAVP(AVPFirmwareRevision, 0, false, m.FirmwareRevision)...)
	}
	return out
}

func (m *CapabilitiesExchangeAnswer) Len() int {
	return 20 + len(m.body())
}

func (m *CapabilitiesExchangeAnswer) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *CapabilitiesExchangeAnswer) Unmarshal(data []byte) error {
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
	m.HostIpAddress = nil
	for _, a := range findAllAVP(avps, AVPHostIPAddress, 0) {
		t, err := models_base.DecodeAddress(a.Payload)
		if err != nil {
			return fmt.Errorf("Host-IP-Address: %w", err)
		}
		m.HostIpAddress = append(m.HostIpAddress, t.(models_base.Address))
	}
	if a := findAVP(avps, AVPVendorId, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.VendorId = t.(models_base.Unsigned32)
	}
	if a := findAVP(avps, AVPProductName, 0); a != nil {
		m.ProductName = models_base.UTF8String(a.Payload)
	}
	if a := findAVP(avps, AVPOriginStateId, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.OriginStateId = t.(models_base.Unsigned32)
	}
	if a := findAVP(avps, AVPErrorMessage, 0); a != nil {
		m.ErrorMessage = models_base.UTF8String(a.Payload)
	}
	m.AuthApplicationId = nil
	for _, a := range findAllAVP(avps, AVPAuthApplicationId, 0) {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.AuthApplicationId = append(m.AuthApplicationId, t.(models_base.Unsigned32))
	}
	m.AcctApplicationId = nil
	for _, a := range findAllAVP(avps, AVPAcctApplicationId, 0) {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.AcctApplicationId = append(m.AcctApplicationId, t.(models_base.Unsigned32))
	}
	if a := findAVP(avps, AVPFirmwareRevision, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.FirmwareRevision = t.(models_base.Unsigned32)
	}
	return nil
}

func (m *CapabilitiesExchangeAnswer) String() string {
	return fmt.Sprintf("CEA{ResultCode:%d,OriginHost:%s}", m.ResultCode, m.OriginHost)
}
