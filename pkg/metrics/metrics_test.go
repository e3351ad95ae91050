package metrics

import (
	"testing"

	"github.com/vex-telecom/dsc/commands/base"
)

func TestCommandCodeToName_FixesTeacherMislabeling(t *testing.T) {
	tests := []struct {
		code uint32
		want string
	}{
		{base.CodeCapabilitiesExchange, "CER/CEA"},
		{258, "RAR/RAA"},
		{265, "AAR/AAA"},
		{325, "CMD_325"}, // not AAR/AAA, unlike the teacher's table
		{base.CodeDeviceWatchdog, "DWR/DWA"},
		{base.CodeDisconnectPeer, "DPR/DPA"},
		{9999, "CMD_9999"},
	}
	for _, tt := range tests {
		if got := CommandCodeToName(tt.code); got != tt.want {
			t.Errorf("CommandCodeToName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestResultCodeLabel(t *testing.T) {
	tests := []struct {
		code uint32
		want string
	}{
		{2001, "success"},
		{3002, "protocol_error"},
		{4002, "transient_failure"},
		{5012, "permanent_failure"},
		{1, "unknown"},
	}
	for _, tt := range tests {
		if got := resultCodeLabel(tt.code); got != tt.want {
			t.Errorf("resultCodeLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestRegistry_ObserveDoesNotPanic(t *testing.T) {
	r := New()
	r.ObserveMessage(Ingress, base.CodeCapabilitiesExchange, "vr1")
	r.ObserveResultCode(2001, "vr1")
	r.SetPeerOpen("hss01.example", true)
	r.SetOutstanding("vr1", 3)
	r.ObserveTimeout("vr1")
	r.ObserveDiscardedLateAnswer("vr1")
	r.ObserveTeardown("vr1")
	r.ObserveConfigInstall("vr1")
	r.ObserveConfigRejection("vr1", "invalid route pool reference")

	if r.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}
