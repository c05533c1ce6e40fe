// Package nvmtest implements a simulated HFLASHC flash controller that
// satisfies hflashc.Port.
//
// The simulation follows the controller's programming model: stores into
// the flash window fill the page buffer, CPB resets the buffer to ones, WP
// ANDs the buffer into the addressed page, EP sets the page to ones, and
// every command keeps FSR.FRDY low for Latency status reads.
package nvmtest

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gentam/hflashc"
)

// Version is the value of the simulated Flash Version Register.
const Version = 0x110

// Op is one command written to FCMD.
type Op struct {
	Cmd  hflashc.Command
	Page int
	Key  uint8
}

func (op Op) String() string { return fmt.Sprintf("%s(%d)", op.Cmd, op.Page) }

// Controller is a simulated flash controller and flash array.
type Controller struct {
	// Latency is the number of FSR reads that see FRDY low after a command.
	Latency int

	// Stuck keeps FRDY low forever after the next command.
	Stuck bool

	mu      sync.Mutex
	geo     hflashc.Geometry
	flash   []byte
	buffer  []byte
	fcr     uint32
	pending int // FSR reads left before FRDY, -1 when stuck
	errs    hflashc.StatusRegister
	locks   uint16
	ops     []Op
	polls   int
}

// New returns a controller for the given geometry with every cell erased.
func New(g hflashc.Geometry) *Controller {
	if err := g.Validate(); err != nil {
		panic(fmt.Sprintf("nvmtest: %v", err))
	}
	c := &Controller{
		geo:    g,
		flash:  make([]byte, g.Size()),
		buffer: make([]byte, g.PageSize),
	}
	fill(c.flash, hflashc.ErasedByte)
	fill(c.buffer, hflashc.ErasedByte)
	return c
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// Geometry returns the simulated geometry.
func (c *Controller) Geometry() hflashc.Geometry { return c.geo }

// Fill sets every flash cell to v, bypassing the controller.
func (c *Controller) Fill(v byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fill(c.flash, v)
}

// Load copies data into the flash cells at addr, bypassing the controller.
func (c *Controller) Load(addr uint32, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.flash[c.offset(addr):], data)
}

// Bytes returns a copy of n flash cells at addr.
func (c *Controller) Bytes(addr uint32, n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	off := c.offset(addr)
	return append([]byte(nil), c.flash[off:off+n]...)
}

// Ops returns the commands written to FCMD so far.
func (c *Controller) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.ops...)
}

// Pages returns the page index of every command of the given kind, in
// issue order.
func (c *Controller) Pages(cmd hflashc.Command) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var pages []int
	for _, op := range c.ops {
		if op.Cmd == cmd {
			pages = append(pages, op.Page)
		}
	}
	return pages
}

// Polls returns the number of FSR reads so far.
func (c *Controller) Polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// ResetLog forgets the recorded commands and polls.
func (c *Controller) ResetLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
	c.polls = 0
}

// Release ends a stuck command.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Stuck = false
	c.pending = 0
}

func (c *Controller) offset(addr uint32) int { return int(addr - c.geo.FlashBase) }

func (c *Controller) inFlash(addr uint32) bool {
	return addr >= c.geo.FlashBase && uint64(addr) < c.geo.End()
}

func (c *Controller) inRegs(addr uint32) bool {
	return addr >= c.geo.RegBase && addr-c.geo.RegBase < 0x400
}

// ReadWord implements hflashc.Port.
func (c *Controller) ReadWord(addr uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr%4 != 0 {
		return 0, fmt.Errorf("nvmtest: unaligned read at 0x%08X", addr)
	}
	switch {
	case c.inFlash(addr):
		off := c.offset(addr)
		return binary.LittleEndian.Uint32(c.flash[off : off+4]), nil
	case c.inRegs(addr):
		return c.readReg(addr - c.geo.RegBase), nil
	}
	return 0, fmt.Errorf("nvmtest: bus error reading 0x%08X", addr)
}

// WriteWord implements hflashc.Port.
func (c *Controller) WriteWord(addr uint32, v uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr%4 != 0 {
		return fmt.Errorf("nvmtest: unaligned write at 0x%08X", addr)
	}
	switch {
	case c.inFlash(addr):
		off := c.offset(addr) % c.geo.PageSize
		binary.LittleEndian.PutUint32(c.buffer[off:off+4], v)
		return nil
	case c.inRegs(addr):
		c.writeReg(addr-c.geo.RegBase, v)
		return nil
	}
	return fmt.Errorf("nvmtest: bus error writing 0x%08X", addr)
}

func (c *Controller) status() hflashc.StatusRegister {
	return hflashc.StatusRegister(uint32(c.locks) << 16)
}

func (c *Controller) readReg(off uint32) uint32 {
	switch off {
	case hflashc.RegFCR:
		return c.fcr
	case hflashc.RegFSR:
		c.polls++
		switch {
		case c.pending < 0:
			return uint32(c.status())
		case c.pending > 0:
			c.pending--
			return uint32(c.status())
		}
		sr := c.status() | hflashc.StatusReady | c.errs
		c.errs = 0
		return uint32(sr)
	case hflashc.RegFPR:
		pr, _ := hflashc.EncodeParameters(c.geo.Size(), c.geo.PageSize)
		return uint32(pr)
	case hflashc.RegFVR:
		return Version
	}
	return 0
}

func (c *Controller) writeReg(off uint32, v uint32) {
	switch off {
	case hflashc.RegFCR:
		c.fcr = v
	case hflashc.RegFCMD:
		cmd, page, key := hflashc.DecodeCommand(v)
		c.ops = append(c.ops, Op{Cmd: cmd, Page: page, Key: key})
		c.exec(cmd, page, key)
	}
}

func (c *Controller) exec(cmd hflashc.Command, page int, key uint8) {
	if c.pending != 0 || key != hflashc.CommandKey || page >= c.geo.PageCount {
		c.errs |= hflashc.StatusProgErr
		return
	}

	region := c.geo.Region(page)
	locked := c.locks&(1<<region) != 0
	start := page * c.geo.PageSize
	switch cmd {
	case hflashc.CmdNop:
		return
	case hflashc.CmdErasePage:
		if locked {
			c.errs |= hflashc.StatusLockErr
			break
		}
		fill(c.flash[start:start+c.geo.PageSize], hflashc.ErasedByte)
	case hflashc.CmdWritePage:
		if locked {
			c.errs |= hflashc.StatusLockErr
			break
		}
		for i, b := range c.buffer {
			c.flash[start+i] &= b
		}
	case hflashc.CmdClearPageBuffer:
		fill(c.buffer, hflashc.ErasedByte)
	case hflashc.CmdLockRegion:
		c.locks |= 1 << region
	case hflashc.CmdUnlockRegion:
		c.locks &^= 1 << region
	default:
		c.errs |= hflashc.StatusProgErr
		return
	}

	c.pending = c.Latency
	if c.Stuck {
		c.pending = -1
	}
}
