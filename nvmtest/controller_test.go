package nvmtest

import (
	"bytes"
	"testing"

	"github.com/gentam/hflashc"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	g, _ := hflashc.Variant(hflashc.DefaultVariant)
	return New(g)
}

func command(t *testing.T, c *Controller, cmd hflashc.Command, page int) hflashc.StatusRegister {
	t.Helper()
	if err := c.WriteWord(c.geo.RegBase+hflashc.RegFCMD, hflashc.EncodeCommand(cmd, page, hflashc.CommandKey)); err != nil {
		t.Fatal(err)
	}
	return status(t, c)
}

func status(t *testing.T, c *Controller) hflashc.StatusRegister {
	t.Helper()
	v, err := c.ReadWord(c.geo.RegBase + hflashc.RegFSR)
	if err != nil {
		t.Fatal(err)
	}
	return hflashc.StatusRegister(v)
}

func TestWritePageAndsBuffer(t *testing.T) {
	c := newController(t)
	c.Load(0x200, []byte{0xF0, 0xF0, 0xF0, 0xF0})

	command(t, c, hflashc.CmdClearPageBuffer, 1)
	if err := c.WriteWord(0x200, 0x3C3C3C3C); err != nil {
		t.Fatal(err)
	}
	if sr := command(t, c, hflashc.CmdWritePage, 1); sr.Fault() {
		t.Fatalf("status = %s", sr)
	}

	if got, want := c.Bytes(0x200, 8), []byte{0x30, 0x30, 0x30, 0x30, 0xFF, 0xFF, 0xFF, 0xFF}; !bytes.Equal(got, want) {
		t.Errorf("page = %x, want %x", got, want)
	}
}

func TestPageBufferOffset(t *testing.T) {
	c := newController(t)

	// The buffer is indexed by the offset within a page, not by page.
	if err := c.WriteWord(0x408, 0x11223344); err != nil {
		t.Fatal(err)
	}
	command(t, c, hflashc.CmdWritePage, 7)
	if got, want := c.Bytes(0xE08, 4), []byte{0x44, 0x33, 0x22, 0x11}; !bytes.Equal(got, want) {
		t.Errorf("page 7 = %x, want %x", got, want)
	}
	if got := c.Bytes(0x408, 4); !bytes.Equal(got, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("page 2 written directly: %x", got)
	}
}

func TestErasePage(t *testing.T) {
	c := newController(t)
	c.Fill(0)

	command(t, c, hflashc.CmdErasePage, 3)
	if got := c.Bytes(0x600, 512); !bytes.Equal(got, bytes.Repeat([]byte{0xFF}, 512)) {
		t.Error("page 3 not erased")
	}
	if got := c.Bytes(0x5FC, 4); !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Error("page 2 erased")
	}
}

func TestLatency(t *testing.T) {
	c := newController(t)
	c.Latency = 3

	if err := c.WriteWord(c.geo.RegBase+hflashc.RegFCMD, hflashc.EncodeCommand(hflashc.CmdErasePage, 0, hflashc.CommandKey)); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if sr := status(t, c); sr.Ready() {
			t.Fatalf("ready after %d reads", i)
		}
	}
	if sr := status(t, c); !sr.Ready() {
		t.Fatal("not ready after latency")
	}
	if got := c.Polls(); got != 4 {
		t.Errorf("Polls() = %d, want 4", got)
	}
}

func TestCommandWhileBusy(t *testing.T) {
	c := newController(t)
	c.Latency = 1
	c.Fill(0)

	fcmd := c.geo.RegBase + hflashc.RegFCMD
	if err := c.WriteWord(fcmd, hflashc.EncodeCommand(hflashc.CmdErasePage, 0, hflashc.CommandKey)); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteWord(fcmd, hflashc.EncodeCommand(hflashc.CmdErasePage, 1, hflashc.CommandKey)); err != nil {
		t.Fatal(err)
	}
	status(t, c)
	if sr := status(t, c); !sr.ProgramError() {
		t.Errorf("status = %s, want PROGE", sr)
	}
	if got := c.Bytes(0x200, 4); !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Error("command issued while busy took effect")
	}
}

func TestProgrammingErrors(t *testing.T) {
	tests := []struct {
		name string
		v    uint32
	}{
		{"bad key", hflashc.EncodeCommand(hflashc.CmdErasePage, 0, 0x5A)},
		{"page out of range", hflashc.EncodeCommand(hflashc.CmdErasePage, 1024, hflashc.CommandKey)},
		{"unknown command", hflashc.EncodeCommand(0x3F, 0, hflashc.CommandKey)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t)
			c.Fill(0)
			if err := c.WriteWord(c.geo.RegBase+hflashc.RegFCMD, tt.v); err != nil {
				t.Fatal(err)
			}
			if sr := status(t, c); !sr.Ready() || !sr.ProgramError() {
				t.Errorf("status = %s, want FRDY and PROGE", sr)
			}
			// Reading FSR clears the error bits.
			if sr := status(t, c); sr.ProgramError() {
				t.Errorf("PROGE still set after read: %s", sr)
			}
			if got := c.Bytes(0, 4); !bytes.Equal(got, []byte{0, 0, 0, 0}) {
				t.Error("rejected command changed flash")
			}
		})
	}
}

func TestLocks(t *testing.T) {
	c := newController(t)
	c.Fill(0)

	command(t, c, hflashc.CmdLockRegion, 130) // region 2
	sr := status(t, c)
	if !sr.Locked(2) || sr.Locked(1) {
		t.Fatalf("status = %s, want LOCK2 only", sr)
	}

	if sr := command(t, c, hflashc.CmdErasePage, 128); !sr.LockError() {
		t.Errorf("erase of a locked page: status = %s, want LOCKE", sr)
	}
	if got := c.Bytes(128*512, 4); !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Error("locked page erased")
	}

	command(t, c, hflashc.CmdUnlockRegion, 191)
	if sr := command(t, c, hflashc.CmdErasePage, 128); sr.Fault() {
		t.Errorf("erase after unlock: status = %s", sr)
	}
}

func TestRegisters(t *testing.T) {
	c := newController(t)
	base := c.geo.RegBase

	v, err := c.ReadWord(base + hflashc.RegFPR)
	if err != nil {
		t.Fatal(err)
	}
	if pr := hflashc.ParameterRegister(v); pr.FlashSize() != 512<<10 || pr.PageSize() != 512 {
		t.Errorf("FPR = %s", pr)
	}

	if v, _ := c.ReadWord(base + hflashc.RegFVR); v != Version {
		t.Errorf("FVR = %#x, want %#x", v, Version)
	}

	if err := c.WriteWord(base+hflashc.RegFCR, 0x40); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.ReadWord(base + hflashc.RegFCR); v != 0x40 {
		t.Errorf("FCR = %#x, want 0x40", v)
	}
}

func TestBusErrors(t *testing.T) {
	c := newController(t)

	for _, addr := range []uint32{0x80000, 0x20000000, 0x400A0400} {
		if _, err := c.ReadWord(addr); err == nil {
			t.Errorf("ReadWord(0x%08X) succeeded", addr)
		}
		if err := c.WriteWord(addr, 0); err == nil {
			t.Errorf("WriteWord(0x%08X) succeeded", addr)
		}
	}
	if _, err := c.ReadWord(0x102); err == nil {
		t.Error("unaligned ReadWord succeeded")
	}
	if err := c.WriteWord(0x102, 0); err == nil {
		t.Error("unaligned WriteWord succeeded")
	}
}

func TestOps(t *testing.T) {
	c := newController(t)

	command(t, c, hflashc.CmdClearPageBuffer, 4)
	command(t, c, hflashc.CmdWritePage, 4)
	if got := c.Pages(hflashc.CmdWritePage); len(got) != 1 || got[0] != 4 {
		t.Errorf("Pages(WP) = %v", got)
	}
	if got := len(c.Ops()); got != 2 {
		t.Errorf("%d ops recorded, want 2", got)
	}

	c.ResetLog()
	if len(c.Ops()) != 0 || c.Polls() != 0 {
		t.Error("ResetLog() kept history")
	}
}
