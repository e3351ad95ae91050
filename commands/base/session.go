package base

import (
	"fmt"

	"github.com/vex-telecom/dsc/models_base"
)

// SessionTerminationRequest is the STR command (RFC 6733 §8.4.1). Proxiable.
type SessionTerminationRequest struct {
	Header Header

	SessionId        models_base.UTF8String
	OriginHost       models_base.DiameterIdentity
	OriginRealm      models_base.DiameterIdentity
	DestinationRealm models_base.DiameterIdentity
	AuthApplicationId models_base.Unsigned32
	TerminationCause models_base.Enumerated
}

func NewSessionTerminationRequest() *SessionTerminationRequest {
	return &SessionTerminationRequest{Header: newRequestHeader(CodeSessionTermination, true)}
}

func (m *SessionTerminationRequest) Validate() error {
	if m.SessionId == "" {
		return fmt.Errorf("STR validation failed: missing Session-Id")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("STR validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("STR validation failed: missing Origin-Realm")
	}
	if m.DestinationRealm == "" {
		return fmt.Errorf("STR validation failed: missing Destination-Realm")
	}
	return nil
}

func (m *SessionTerminationRequest) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPSessionId, 0, true, m.SessionId)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	out = append(out, encodeAVP(AVPDestinationRealm, 0, true, m.DestinationRealm)...)
	out = append(out, encodeAVP(AVPAuthApplicationId, 0, true, m.AuthApplicationId)...)
	out = append(out, encodeAVP(AVPTerminationCause, 0, true, m.TerminationCause)...)
	return out
}

func (m *SessionTerminationRequest) Len() int { return 20 + len(m.body()) }

func (m *SessionTerminationRequest) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *SessionTerminationRequest) Unmarshal(data []byte) error {
	h, err := unmarshalHeader(data)
	if err != nil {
		return err
	}
	avps, err := decodeAVPs(data[20:])
	if err != nil {
		return err
	}
	m.Header = h
	if a := findAVP(avps, AVPSessionId, 0); a != nil {
		m.SessionId = models_base.UTF8String(a.Payload)
	}
	if a := findAVP(avps, AVPOriginHost, 0); a != nil {
		m.OriginHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPOriginRealm, 0); a != nil {
		m.OriginRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPDestinationRealm, 0); a != nil {
		m.DestinationRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPAuthApplicationId, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.AuthApplicationId = t.(models_base.Unsigned32)
	}
	if a := findAVP(avps, AVPTerminationCause, 0); a != nil {
		t, _ := models_base.DecodeEnumerated(a.Payload)
		m.TerminationCause = t.(models_base.Enumerated)
	}
	return nil
}

func (m *SessionTerminationRequest) String() string {
	return fmt.Sprintf("STR{SessionId:%s}", m.SessionId)
}

// AbortSessionRequest is the ASR command (RFC 6733 §8.5.1). Proxiable.
type AbortSessionRequest struct {
	Header Header

	SessionId         models_base.UTF8String
	OriginHost        models_base.DiameterIdentity
	OriginRealm       models_base.DiameterIdentity
	DestinationRealm  models_base.DiameterIdentity
	DestinationHost   models_base.DiameterIdentity
	AuthApplicationId models_base.Unsigned32
}

func NewAbortSessionRequest() *AbortSessionRequest {
	return &AbortSessionRequest{Header: newRequestHeader(CodeAbortSession, true)}
}

func (m *AbortSessionRequest) Validate() error {
	if m.SessionId == "" {
		return fmt.Errorf("ASR validation failed: missing Session-Id")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("ASR validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("ASR validation failed: missing Origin-Realm")
	}
	if m.DestinationRealm == "" {
		return fmt.Errorf("ASR validation failed: missing Destination-Realm")
	}
	if m.DestinationHost == "" {
		return fmt.Errorf("ASR validation failed: missing Destination-Host")
	}
	return nil
}

func (m *AbortSessionRequest) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPSessionId, 0, true, m.SessionId)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	out = append(out, encodeAVP(AVPDestinationRealm, 0, true, m.DestinationRealm)...)
	out = append(out, encodeAVP(AVPDestinationHost, 0, true, m.DestinationHost)...)
	out = append(out, encodeAVP(AVPAuthApplicationId, 0, true, m.AuthApplicationId)...)
	return out
}

func (m *AbortSessionRequest) Len() int { return 20 + len(m.body()) }

func (m *AbortSessionRequest) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *AbortSessionRequest) Unmarshal(data []byte) error {
	h, err := unmarshalHeader(data)
	if err != nil {
		return err
	}
	avps, err := decodeAVPs(data[20:])
	if err != nil {
		return err
	}
	m.Header = h
	if a := findAVP(avps, AVPSessionId, 0); a != nil {
		m.SessionId = models_base.UTF8String(a.Payload)
	}
	if a := findAVP(avps, AVPOriginHost, 0); a != nil {
		m.OriginHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPOriginRealm, 0); a != nil {
		m.OriginRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPDestinationRealm, 0); a != nil {
		m.DestinationRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPDestinationHost, 0); a != nil {
		m.DestinationHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPAuthApplicationId, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.AuthApplicationId = t.(models_base.Unsigned32)
	}
	return nil
}

func (m *AbortSessionRequest) String() string {
	return fmt.Sprintf("ASR{SessionId:%s}", m.SessionId)
}

// AccountingRequest is the ACR command (RFC 6733 §9.7.1). Proxiable.
type AccountingRequest struct {
	Header Header

	SessionId              models_base.UTF8String
	OriginHost             models_base.DiameterIdentity
	OriginRealm            models_base.DiameterIdentity
	DestinationRealm       models_base.DiameterIdentity
	AccountingRecordType   models_base.Enumerated
	AccountingRecordNumber models_base.Unsigned32
}

func NewAccountingRequest() *AccountingRequest {
	return &AccountingRequest{Header: newRequestHeader(CodeAccounting, true)}
}

func (m *AccountingRequest) Validate() error {
	if m.SessionId == "" {
		return fmt.Errorf("ACR validation failed: missing Session-Id")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("ACR validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("ACR validation failed: missing Origin-Realm")
	}
	if m.DestinationRealm == "" {
		return fmt.Errorf("ACR validation failed: missing Destination-Realm")
	}
	return nil
}

func (m *AccountingRequest) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPSessionId, 0, true, m.SessionId)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	out = append(out, encodeAVP(AVPDestinationRealm, 0, true, m.DestinationRealm)...)
	out = append(out, encodeAVP(AVPAccountingRecordType, 0, true, m.AccountingRecordType)...)
	out = append(out, encodeAVP(AVPAccountingRecordNumber, 0, true, m.AccountingRecordNumber)...)
	return out
}

func (m *AccountingRequest) Len() int { return 20 + len(m.body()) }

func (m *AccountingRequest) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *AccountingRequest) Unmarshal(data []byte) error {
	h, err := unmarshalHeader(data)
	if err != nil {
		return err
	}
	avps, err := decodeAVPs(data[20:])
	if err != nil {
		return err
	}
	m.Header = h
	if a := findAVP(avps, AVPSessionId, 0); a != nil {
		m.SessionId = models_base.UTF8String(a.Payload)
	}
	if a := findAVP(avps, AVPOriginHost, 0); a != nil {
		m.OriginHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPOriginRealm, 0); a != nil {
		m.OriginRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPDestinationRealm, 0); a != nil {
		m.DestinationRealm = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPAccountingRecordType, 0); a != nil {
		t, _ := models_base.DecodeEnumerated(a.Payload)
		m.AccountingRecordType = t.(models_base.Enumerated)
	}
	if a := findAVP(avps, AVPAccountingRecordNumber, 0); a != nil {
		t, _ := models_base.DecodeUnsigned32(a.Payload)
		m.AccountingRecordNumber = t.(models_base.Unsigned32)
	}
	return nil
}

func (m *AccountingRequest) String() string {
	return fmt.Sprintf("ACR{SessionId:%s,RecordNumber:%d}", m.SessionId, m.AccountingRecordNumber)
}

// ReAuthRequest is the RAR command (RFC 6733 §8.3.1). Proxiable. Only the
// header shape is exercised by the peer layer today; fields are added as
// Sy/Gx-style applications need them.
type ReAuthRequest struct {
	Header Header

	SessionId   models_base.UTF8String
	OriginHost  models_base.DiameterIdentity
	OriginRealm models_base.DiameterIdentity
}

func NewReAuthRequest() *ReAuthRequest {
	return &ReAuthRequest{Header: newRequestHeader(CodeReAuth, true)}
}

func (m *ReAuthRequest) Validate() error {
	if m.SessionId == "" {
		return fmt.Errorf("RAR validation failed: missing Session-Id")
	}
	if m.OriginHost == "" {
		return fmt.Errorf("RAR validation failed: missing Origin-Host")
	}
	if m.OriginRealm == "" {
		return fmt.Errorf("RAR validation failed: missing Origin-Realm")
	}
	return nil
}

func (m *ReAuthRequest) body() []byte {
	var out []byte
	out = append(out, encodeAVP(AVPSessionId, 0, true, m.SessionId)...)
	out = append(out, encodeAVP(AVPOriginHost, 0, true, m.OriginHost)...)
	out = append(out, encodeAVP(AVPOriginRealm, 0, true, m.OriginRealm)...)
	return out
}

func (m *ReAuthRequest) Len() int { return 20 + len(m.body()) }

func (m *ReAuthRequest) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	body := m.body()
	return append(m.Header.marshal(20+len(body)), body...), nil
}

func (m *ReAuthRequest) Unmarshal(data []byte) error {
	h, err := unmarshalHeader(data)
	if err != nil {
		return err
	}
	avps, err := decodeAVPs(data[20:])
	if err != nil {
		return err
	}
	m.Header = h
	if a := findAVP(avps, AVPSessionId, 0); a != nil {
		m.SessionId = models_base.UTF8String(a.Payload)
	}
	if a := findAVP(avps, AVPOriginHost, 0); a != nil {
		m.OriginHost = models_base.DiameterIdentity(a.Payload)
	}
	if a := findAVP(avps, AVPOriginRealm, 0); a != nil {
		m.OriginRealm = models_base.DiameterIdentity(a.Payload)
	}
	return nil
}

func (m *ReAuthRequest) String() string {
	return fmt.Sprintf("RAR{SessionId:%s}", m.SessionId)
}
