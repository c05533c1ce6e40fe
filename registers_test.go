package hflashc

import "testing"

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		cmd  Command
		page int
		want uint32
	}{
		{CmdErasePage, 0xFA, 0xA500FA02},
		{CmdWritePage, 0x241, 0xA5024101},
		{CmdClearPageBuffer, 0, 0xA5000003},
		{CmdLockRegion, 1023, 0xA503FF04},
	}
	for _, tt := range tests {
		if got := EncodeCommand(tt.cmd, tt.page, CommandKey); got != tt.want {
			t.Errorf("EncodeCommand(%s, %d) = %#08x, want %#08x", tt.cmd, tt.page, got, tt.want)
		}
		cmd, page, key := DecodeCommand(tt.want)
		if cmd != tt.cmd || page != tt.page || key != CommandKey {
			t.Errorf("DecodeCommand(%#08x) = %s, %d, %#x", tt.want, cmd, page, key)
		}
	}
}

func TestStatusRegisterString(t *testing.T) {
	tests := []struct {
		sr   StatusRegister
		want string
	}{
		{0, "00000000000000000000000000000000"},
		{StatusReady, "00000000000000000000000000000001 FRDY"},
		{StatusReady | StatusLockErr | 1<<17, "00000000000000100000000000000101 FRDY,LOCKE,LOCK1"},
		{StatusProgErr, "00000000000000000000000000001000 PROGE"},
	}
	for _, tt := range tests {
		if got := tt.sr.String(); got != tt.want {
			t.Errorf("StatusRegister(%#x).String() = %q, want %q", uint32(tt.sr), got, tt.want)
		}
	}
}

func TestStatusRegisterFault(t *testing.T) {
	if StatusReady.Fault() {
		t.Error("FRDY alone reported as fault")
	}
	if !(StatusReady | StatusProgErr).Fault() {
		t.Error("PROGE not reported as fault")
	}
	if !(StatusReady | StatusLockErr).Fault() {
		t.Error("LOCKE not reported as fault")
	}
}

func TestParameterRegister(t *testing.T) {
	tests := []struct {
		pr        ParameterRegister
		flashSize int
		pageSize  int
	}{
		{0x040B, 512 << 10, 512},
		{0x0409, 256 << 10, 512},
		{0x0407, 128 << 10, 512},
		{0x0000, 4 << 10, 32},
		{0x000F, 0, 32},
	}
	for _, tt := range tests {
		if got := tt.pr.FlashSize(); got != tt.flashSize {
			t.Errorf("FPR %#x: FlashSize() = %d, want %d", uint32(tt.pr), got, tt.flashSize)
		}
		if got := tt.pr.PageSize(); got != tt.pageSize {
			t.Errorf("FPR %#x: PageSize() = %d, want %d", uint32(tt.pr), got, tt.pageSize)
		}
	}

	if pr, ok := EncodeParameters(512<<10, 512); !ok || pr != 0x040B {
		t.Errorf("EncodeParameters(512KB, 512) = %#x, %v", uint32(pr), ok)
	}
	if _, ok := EncodeParameters(100, 512); ok {
		t.Error("EncodeParameters accepted a flash size without a code")
	}
}
