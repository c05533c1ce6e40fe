package hflashc

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Programmer erases and writes the internal flash through the HFLASHC
// command interface. It is the only user of its port.
//
// Calls are not meant to overlap; a call made while another one is running
// fails with ErrBusy.
type Programmer struct {
	port Port
	cfg  Config
	geo  Geometry
	log  log.FieldLogger
	busy atomic.Bool
}

// New creates the Programmer for the controller the token was claimed for.
// The token is consumed, a second New with the same token fails with
// ErrClaimed.
//
// Example:
//
//	tok, err := hflashc.Claim(port)
//	...
//	prog, err := hflashc.New(tok, hflashc.WithMaxPolls(1000))
func New(tok *Token, opts ...Option) (*Programmer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("geometry %q: %w", cfg.Geometry.Name, err)
	}

	port, err := tok.take()
	if err != nil {
		return nil, err
	}

	return &Programmer{
		port: port,
		cfg:  cfg,
		geo:  cfg.Geometry,
		log:  cfg.Logger,
	}, nil
}

// Detect reads the Flash Parameter Register of the controller at regBase
// and returns the matching geometry.
func Detect(port Port, regBase uint32) (Geometry, error) {
	v, err := port.ReadWord(regBase + RegFPR)
	if err != nil {
		return Geometry{}, fmt.Errorf("read FPR: %w", err)
	}
	g, err := GeometryFromParameters(ParameterRegister(v))
	g.RegBase = regBase
	return g, err
}

func (p *Programmer) Geometry() Geometry { return p.geo }

// Erase erases every page touched by the length bytes starting at addr, in
// ascending order, waiting for each page to complete before the next.
func (p *Programmer) Erase(ctx context.Context, addr uint32, length int) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()

	if err := p.checkRange(addr, length); err != nil {
		return err
	}
	return p.erasePages(ctx, addr, length)
}

// Write programs length bytes of src at addr. The pages touched by the
// range are erased first, so every byte of those pages outside the range
// reads as ErasedByte afterwards.
//
// Whole doublewords are programmed directly. A partial doubleword at either
// end of the range is padded with ErasedByte, unless the programmer was
// created WithStrictAlignment, in which case the request is rejected.
func (p *Programmer) Write(ctx context.Context, addr uint32, src []byte, length int) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()

	if length > len(src) {
		return fmt.Errorf("%w: length %d exceeds %d source bytes", ErrInvalidRange, length, len(src))
	}
	if err := p.checkRange(addr, length); err != nil {
		return err
	}
	if p.cfg.StrictAlignment && (addr%DoublewordSize != 0 || length%DoublewordSize != 0) {
		return &AlignmentError{Addr: addr, Length: length}
	}

	if err := p.erasePages(ctx, addr, length); err != nil {
		return err
	}

	start := p.cfg.Clock.Now()
	if err := p.program(ctx, addr, src[:length]); err != nil {
		return err
	}
	p.log.WithFields(log.Fields{
		"addr":    fmt.Sprintf("0x%08X", addr),
		"bytes":   length,
		"elapsed": p.cfg.Clock.Now().Sub(start).String(),
	}).Debug("write complete")
	return nil
}

// Lock sets the lock bit of every region touched by the range. Erase and
// write commands on a locked page fail with a FaultError reporting LOCKE.
func (p *Programmer) Lock(ctx context.Context, addr uint32, length int) error {
	return p.setLock(ctx, CmdLockRegion, addr, length)
}

// Unlock clears the lock bit of every region touched by the range.
func (p *Programmer) Unlock(ctx context.Context, addr uint32, length int) error {
	return p.setLock(ctx, CmdUnlockRegion, addr, length)
}

func (p *Programmer) setLock(ctx context.Context, cmd Command, addr uint32, length int) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()

	if err := p.checkRange(addr, length); err != nil {
		return err
	}
	first, last := p.geo.PageRange(addr, length)
	per := p.geo.RegionPages()
	for region := p.geo.Region(first); region <= p.geo.Region(last-1); region++ {
		p.log.WithFields(log.Fields{"region": region, "cmd": cmd.String()}).Debug("lock")
		if err := p.exec(ctx, cmd, region*per); err != nil {
			return fmt.Errorf("%s region %d: %w", cmd, region, err)
		}
	}
	return nil
}

// Read returns n bytes of flash starting at addr.
func (p *Programmer) Read(addr uint32, n int) ([]byte, error) {
	if err := p.acquire(); err != nil {
		return nil, err
	}
	defer p.release()

	if err := p.checkRange(addr, n); err != nil {
		return nil, err
	}

	base := addr &^ 3
	end := uint64(addr) + uint64(n)
	out := make([]byte, 0, int(end-uint64(base))+3)
	var word [4]byte
	for a := uint64(base); a < end; a += 4 {
		v, err := p.port.ReadWord(uint32(a))
		if err != nil {
			return nil, fmt.Errorf("read 0x%08X: %w", a, err)
		}
		binary.LittleEndian.PutUint32(word[:], v)
		out = append(out, word[:]...)
	}
	skip := int(addr - base)
	return out[skip : skip+n], nil
}

// Status reads the Flash Status Register. Reading clears LOCKE and PROGE.
func (p *Programmer) Status() (StatusRegister, error) {
	if err := p.acquire(); err != nil {
		return 0, err
	}
	defer p.release()
	return p.readStatus()
}

// Version reads the Flash Version Register.
func (p *Programmer) Version() (uint32, error) {
	if err := p.acquire(); err != nil {
		return 0, err
	}
	defer p.release()
	return p.port.ReadWord(p.geo.RegBase + RegFVR)
}

func (p *Programmer) acquire() error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (p *Programmer) release() { p.busy.Store(false) }

func (p *Programmer) checkRange(addr uint32, n int) error {
	if n <= 0 || addr < p.geo.FlashBase || uint64(addr)+uint64(n) > p.geo.End() {
		return &RangeError{Addr: addr, Length: n, Base: p.geo.FlashBase, Size: p.geo.Size()}
	}
	return nil
}

func (p *Programmer) erasePages(ctx context.Context, addr uint32, length int) error {
	start := p.cfg.Clock.Now()
	first, last := p.geo.PageRange(addr, length)
	for page := first; page < last; page++ {
		p.log.WithFields(log.Fields{
			"page": page,
			"addr": fmt.Sprintf("0x%08X", p.geo.PageAddr(page)),
		}).Debug("erase page")
		if err := p.exec(ctx, CmdErasePage, page); err != nil {
			return fmt.Errorf("erase page %d: %w", page, err)
		}
	}
	p.log.WithFields(log.Fields{
		"pages":   last - first,
		"elapsed": p.cfg.Clock.Now().Sub(start).String(),
	}).Debug("erase complete")
	return nil
}

var erasedDoubleword = [DoublewordSize]byte{
	ErasedByte, ErasedByte, ErasedByte, ErasedByte,
	ErasedByte, ErasedByte, ErasedByte, ErasedByte,
}

// program fills and commits one doubleword at a time. The page index of
// every commit is taken from the destination, so a range running into the
// next page commits there.
func (p *Programmer) program(ctx context.Context, addr uint32, data []byte) error {
	for len(data) > 0 {
		dst := addr &^ (DoublewordSize - 1)
		off := int(addr - dst)

		var n int
		var lo, hi uint32
		if off == 0 && len(data) >= DoublewordSize {
			// Whole doubleword straight from the source.
			n = DoublewordSize
			lo = binary.LittleEndian.Uint32(data[0:4])
			hi = binary.LittleEndian.Uint32(data[4:8])
		} else {
			// Partial doubleword padded with the erased value, which leaves
			// the neighbouring cells as they are.
			n = min(DoublewordSize-off, len(data))
			staging := erasedDoubleword
			copy(staging[off:], data[:n])
			lo = binary.LittleEndian.Uint32(staging[0:4])
			hi = binary.LittleEndian.Uint32(staging[4:8])
		}

		if err := p.programDoubleword(ctx, dst, lo, hi); err != nil {
			return fmt.Errorf("program 0x%08X: %w", dst, err)
		}
		addr += uint32(n)
		data = data[n:]
	}
	return nil
}

// programDoubleword clears the page buffer, stores the two halves of a
// doubleword into it and commits the buffer to the page holding dst.
func (p *Programmer) programDoubleword(ctx context.Context, dst uint32, lo, hi uint32) error {
	page := p.geo.Page(dst)
	if err := p.exec(ctx, CmdClearPageBuffer, page); err != nil {
		return err
	}
	if err := p.port.WriteWord(dst, lo); err != nil {
		return fmt.Errorf("fill page buffer: %w", err)
	}
	if err := p.port.WriteWord(dst+4, hi); err != nil {
		return fmt.Errorf("fill page buffer: %w", err)
	}
	return p.exec(ctx, CmdWritePage, page)
}

// exec issues a command and blocks until the controller is ready again.
func (p *Programmer) exec(ctx context.Context, cmd Command, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.port.WriteWord(p.geo.RegBase+RegFCMD, EncodeCommand(cmd, page, CommandKey)); err != nil {
		return fmt.Errorf("write FCMD: %w", err)
	}
	return p.waitReady(ctx, cmd, page)
}

func (p *Programmer) readStatus() (StatusRegister, error) {
	v, err := p.port.ReadWord(p.geo.RegBase + RegFSR)
	if err != nil {
		return 0, fmt.Errorf("read FSR: %w", err)
	}
	return StatusRegister(v), nil
}

// waitReady polls FSR.FRDY until it asserts, the poll budget is spent or
// the command's timeout expires on the configured clock.
func (p *Programmer) waitReady(ctx context.Context, cmd Command, page int) error {
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = p.commandTime(cmd)
	}

	start := p.cfg.Clock.Now()
	for polls := 1; ; polls++ {
		sr, err := p.readStatus()
		if err != nil {
			return err
		}
		if sr.Ready() {
			if sr.Fault() {
				return &FaultError{Cmd: cmd, Page: page, Status: sr}
			}
			return nil
		}

		elapsed := p.cfg.Clock.Now().Sub(start)
		if (p.cfg.MaxPolls > 0 && polls >= p.cfg.MaxPolls) || (timeout > 0 && elapsed >= timeout) {
			return &TimeoutError{Cmd: cmd, Page: page, Polls: polls, Elapsed: elapsed}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.cfg.PollInterval > 0 {
			p.cfg.Clock.Sleep(p.cfg.PollInterval)
		}
	}
}

// commandTime returns the worst case duration of cmd for the configured
// geometry, falling back to the maximum over all known variants.
func (p *Programmer) commandTime(cmd Command) time.Duration {
	get := func(g *Geometry) time.Duration {
		if cmd == CmdErasePage {
			return g.TErasePage
		}
		return g.TWritePage
	}
	if d := get(&p.geo); d > 0 {
		return d
	}
	var tmax time.Duration
	for _, g := range knownVariants {
		tmax = max(tmax, get(&g))
	}
	return tmax
}
