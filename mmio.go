package hflashc

import (
	"errors"
	"fmt"

	"periph.io/x/host/v3/pmem"
)

// regWindow is the size mapped for the register block, one host page.
const regWindow = 0x1000

// MMIOPort is a Port on physical memory, for hosts where the controller is
// visible in the physical address space (e.g. through /dev/mem).
type MMIOPort struct {
	geo   Geometry
	regs  *pmem.View
	flash *pmem.View
	rw    []uint32 // register block as words
	fw    []uint32 // flash window as words
}

// NewMMIOPort maps the register block and the flash window of g.
func NewMMIOPort(g Geometry) (*MMIOPort, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	regs, err := pmem.Map(uint64(g.RegBase), regWindow)
	if err != nil {
		return nil, fmt.Errorf("map registers at 0x%08X: %w", g.RegBase, err)
	}
	flash, err := pmem.Map(uint64(g.FlashBase), g.Size())
	if err != nil {
		regs.Close()
		return nil, fmt.Errorf("map flash at 0x%08X: %w", g.FlashBase, err)
	}
	return &MMIOPort{
		geo:   g,
		regs:  regs,
		flash: flash,
		rw:    regs.Uint32(),
		fw:    flash.Uint32(),
	}, nil
}

// Close unmaps both windows.
func (m *MMIOPort) Close() error {
	return errors.Join(m.regs.Close(), m.flash.Close())
}

func (m *MMIOPort) word(addr uint32) (*uint32, error) {
	if addr%4 != 0 {
		return nil, fmt.Errorf("unaligned access at 0x%08X", addr)
	}
	if addr >= m.geo.FlashBase && uint64(addr) < m.geo.End() {
		return &m.fw[(addr-m.geo.FlashBase)/4], nil
	}
	if addr >= m.geo.RegBase && addr-m.geo.RegBase < regWindow {
		return &m.rw[(addr-m.geo.RegBase)/4], nil
	}
	return nil, fmt.Errorf("address 0x%08X is not mapped", addr)
}

// ReadWord implements Port.
func (m *MMIOPort) ReadWord(addr uint32) (uint32, error) {
	w, err := m.word(addr)
	if err != nil {
		return 0, err
	}
	return *w, nil
}

// WriteWord implements Port.
func (m *MMIOPort) WriteWord(addr uint32, v uint32) error {
	w, err := m.word(addr)
	if err != nil {
		return err
	}
	*w = v
	return nil
}
