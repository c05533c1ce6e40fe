package hflashc

import (
	"errors"
	"slices"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// csPin records every level driven on chip select.
type csPin struct {
	*gpiotest.Pin
	levels  []gpio.Level
	failOut error
}

func (p *csPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	if p.failOut != nil && l == gpio.High {
		return p.failOut
	}
	return p.Pin.Out(l)
}

func newCSPin() *csPin {
	return &csPin{Pin: &gpiotest.Pin{N: "CS", L: gpio.High}}
}

func TestBridgeWriteWord(t *testing.T) {
	pb := &conntest.Playback{
		Ops: []conntest.IO{
			{
				W: []byte{0x02, 0x40, 0x0A, 0x00, 0x04, 0xA5, 0x00, 0xFA, 0x02},
				R: make([]byte, 9),
			},
		},
		D:         conn.Full,
		DontPanic: true,
	}
	cs := newCSPin()
	b := NewBridgePort(pb, cs)

	if err := b.WriteWord(0x400A0000+RegFCMD, EncodeCommand(CmdErasePage, 0xFA, CommandKey)); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
	if want := []gpio.Level{gpio.Low, gpio.High}; !slices.Equal(cs.levels, want) {
		t.Errorf("chip select = %v, want %v", cs.levels, want)
	}
}

func TestBridgeReadWord(t *testing.T) {
	pb := &conntest.Playback{
		Ops: []conntest.IO{
			{
				W: []byte{0x03, 0x40, 0x0A, 0x00, 0x08, 0, 0, 0, 0, 0},
				R: []byte{0, 0, 0, 0, 0, 0, 0x00, 0x02, 0x00, 0x01},
			},
		},
		D:         conn.Full,
		DontPanic: true,
	}
	b := NewBridgePort(pb, nil)

	v, err := b.ReadWord(0x400A0000 + RegFSR)
	if err != nil {
		t.Fatal(err)
	}
	if sr := StatusRegister(v); !sr.Ready() || !sr.Locked(1) {
		t.Errorf("status = %s", sr)
	}
}

func TestBridgeChipSelectError(t *testing.T) {
	pb := &conntest.Playback{
		Ops:       []conntest.IO{{W: make([]byte, 10), R: make([]byte, 10)}},
		D:         conn.Full,
		DontPanic: true,
	}
	pb.Ops[0].W[0] = 0x03
	cs := newCSPin()
	cs.failOut = errors.New("pin stuck")
	b := NewBridgePort(pb, cs)

	_, err := b.ReadWord(0)
	if err == nil || !errors.Is(err, cs.failOut) {
		t.Errorf("ReadWord() = %v, want chip select error", err)
	}
}

func TestBridgeTxError(t *testing.T) {
	// Nothing recorded, every transaction fails.
	pb := &conntest.Playback{D: conn.Full, DontPanic: true}
	cs := newCSPin()
	b := NewBridgePort(pb, cs)

	if err := b.WriteWord(0, 0); err == nil {
		t.Fatal("WriteWord() succeeded on an empty playback")
	}
	if want := []gpio.Level{gpio.Low, gpio.High}; !slices.Equal(cs.levels, want) {
		t.Errorf("chip select = %v, want %v after a failed transaction", cs.levels, want)
	}
}
