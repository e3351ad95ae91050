package diam

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vex-telecom/dsc/models_base"
)

func buildSampleMessage() *Message {
	m := &Message{Header: Header{
		Version:       1,
		Flags:         Flags{Request: true, Proxiable: true},
		CommandCode:   272,
		ApplicationID: 4,
		HopByHopID:    11,
		EndToEndID:    22,
	}}
	m.Append(NewAVP(AVPSessionId, 0, true, models_base.UTF8String("dsc.example;1;2")))
	m.Append(NewAVP(AVPOriginHost, 0, true, models_base.DiameterIdentity("mme01.example.com")))
	m.Append(NewAVP(AVPOriginRealm, 0, true, models_base.DiameterIdentity("example.com")))
	m.Append(NewAVP(AVPRouteRecord, 0, true, models_base.DiameterIdentity("hop1.example.com")))
	m.Append(NewAVP(AVPResultCode, 0, true, models_base.Unsigned32(2001)))
	return m
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	want := buildSampleMessage()
	wire := want.Marshal()

	got, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	// The "value" cache is populated eagerly by NewAVP but not by
	// Unmarshal; clear it on both sides before comparing the wire-level
	// fields.
	for _, a := range want.AVPs {
		a.value = nil
	}
	diff := cmp.Diff(want, got, cmp.AllowUnexported(AVP{}))
	if diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_HeaderLengthIncludesPadding(t *testing.T) {
	m := &Message{Header: Header{CommandCode: 272, ApplicationID: 4}}
	// "ab" (2 bytes) pads to 4 on the wire.
	m.Append(NewAVP(AVPSessionId, 0, true, models_base.UTF8String("ab")))

	wire := m.Marshal()
	got, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if int(got.Header.Length) != len(wire) {
		t.Fatalf("Header.Length = %d, want %d (full wire length)", got.Header.Length, len(wire))
	}
}

func TestUnmarshal_RejectsTruncatedHeader(t *testing.T) {
	if _, err := Unmarshal([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a buffer shorter than the 20-byte header")
	}
}

func TestUnmarshal_RejectsLengthExceedingBuffer(t *testing.T) {
	m := &Message{Header: Header{CommandCode: 272, ApplicationID: 4}}
	wire := m.Marshal()
	wire[3] = 0xFF // corrupt the low byte of the 24-bit length field

	if _, err := Unmarshal(wire); err == nil {
		t.Fatal("expected an error when Header.Length exceeds the buffer")
	}
}

func TestMessage_Clone_IsIndependentOfOriginal(t *testing.T) {
	orig := buildSampleMessage()
	clone := orig.Clone()

	clone.SetFirst(AVPOriginHost, 0, true, models_base.DiameterIdentity("rewritten.example.com"))

	if orig.First(AVPOriginHost, 0).StringValue(NewBaseDictionary()) == "rewritten.example.com" {
		t.Fatal("mutating the clone must not affect the original message")
	}
	if clone.First(AVPOriginHost, 0).StringValue(NewBaseDictionary()) != "rewritten.example.com" {
		t.Fatal("SetFirst on the clone did not take effect")
	}
}

func TestMessage_DeleteAll_RemovesEveryMatch(t *testing.T) {
	m := &Message{}
	m.Append(NewAVP(AVPRouteRecord, 0, true, models_base.DiameterIdentity("a.example.com")))
	m.Append(NewAVP(AVPRouteRecord, 0, true, models_base.DiameterIdentity("b.example.com")))
	m.Append(NewAVP(AVPOriginHost, 0, true, models_base.DiameterIdentity("c.example.com")))

	removed := m.DeleteAll(AVPRouteRecord, 0)
	if removed != 2 {
		t.Fatalf("DeleteAll() removed %d, want 2", removed)
	}
	if len(m.AVPs) != 1 {
		t.Fatalf("len(AVPs) = %d, want 1 survivor", len(m.AVPs))
	}
}

func TestMessage_HeaderField(t *testing.T) {
	m := &Message{Header: Header{
		Flags: Flags{Request: true, Error: true}, CommandCode: 272, ApplicationID: 4, HopByHopID: 7, EndToEndID: 8,
	}}

	tests := []struct {
		field string
		want  string
	}{
		{"command_code", "272"},
		{"application_id", "4"},
		{"hop_by_hop_id", "7"},
		{"end_to_end_id", "8"},
		{"command_flags", "RE"},
	}
	for _, tt := range tests {
		got, ok := m.HeaderField(tt.field)
		if !ok || got != tt.want {
			t.Errorf("HeaderField(%q) = %q, %v, want %q, true", tt.field, got, ok, tt.want)
		}
	}

	if _, ok := m.HeaderField("not_a_field"); ok {
		t.Error("HeaderField() on an unknown name must return ok=false")
	}
}

func TestHeaderFor_BuildsClearedRequestWithErrorSet(t *testing.T) {
	h := HeaderFor(272, 4, 99, 100)
	if h.Flags.Request {
		t.Error("HeaderFor() must clear the R flag")
	}
	if !h.Flags.Error {
		t.Error("HeaderFor() must set the E flag")
	}
	if h.HopByHopID != 99 {
		t.Errorf("HopByHopID = %d, want 99 (preserved from the original request)", h.HopByHopID)
	}
}
