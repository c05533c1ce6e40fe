package hflashc

import (
	"fmt"
	"strings"
)

// HFLASHC register offsets from the controller base.
//   - [SAM4L|Flash Controller: User Interface]
const (
	RegFCR  = 0x00 // Flash Control Register
	RegFCMD = 0x04 // Flash Command Register
	RegFSR  = 0x08 // Flash Status Register
	RegFPR  = 0x0C // Flash Parameter Register
	RegFVR  = 0x10 // Flash Version Register
)

// CommandKey must be written to FCMD.KEY together with the command,
// otherwise the controller ignores the write and flags PROGE.
const CommandKey = 0xA5

// Command is the FCMD.CMD field.
type Command uint8

// Flash commands:
//   - [SAM4L|Flash Controller: Flash Commands]
const (
	CmdNop             Command = 0x00
	CmdWritePage       Command = 0x01 // WP
	CmdErasePage       Command = 0x02 // EP
	CmdClearPageBuffer Command = 0x03 // CPB
	CmdLockRegion      Command = 0x04 // LP
	CmdUnlockRegion    Command = 0x05 // UP
)

// LockRegions is the number of lock regions the flash is divided into.
const LockRegions = 16

func (c Command) String() string {
	switch c {
	case CmdNop:
		return "NOP"
	case CmdWritePage:
		return "WP"
	case CmdErasePage:
		return "EP"
	case CmdClearPageBuffer:
		return "CPB"
	case CmdLockRegion:
		return "LP"
	case CmdUnlockRegion:
		return "UP"
	}
	return fmt.Sprintf("CMD(%#02x)", uint8(c))
}

// EncodeCommand builds an FCMD value. All three fields are always set
// together in a single register write.
//
//	Bits  | Field
//	------+------
//	31:24 | KEY
//	23:8  | PAGEN
//	5:0   | CMD
func EncodeCommand(cmd Command, page int, key uint8) uint32 {
	return uint32(key)<<24 | uint32(page&0xFFFF)<<8 | uint32(cmd)&0x3F
}

// DecodeCommand splits an FCMD value into its fields.
func DecodeCommand(v uint32) (cmd Command, page int, key uint8) {
	return Command(v & 0x3F), int(v>>8) & 0xFFFF, uint8(v >> 24)
}

// StatusRegister represents the Flash Status Register (FSR).
//
//	Bits  | [SAM4L|FSR]
//	------+------------------------------------
//	31:16 | LOCKx: Lock region x is locked
//	4     | SECURITY: Security bit status
//	3     | PROGE: Programming error (cleared by read)
//	2     | LOCKE: Lock error (cleared by read)
//	0     | FRDY: Flash ready
type StatusRegister uint32

const (
	StatusReady    StatusRegister = 1 << 0
	StatusLockErr  StatusRegister = 1 << 2
	StatusProgErr  StatusRegister = 1 << 3
	StatusSecurity StatusRegister = 1 << 4
)

func (sr StatusRegister) Ready() bool        { return sr&StatusReady != 0 }
func (sr StatusRegister) LockError() bool    { return sr&StatusLockErr != 0 }
func (sr StatusRegister) ProgramError() bool { return sr&StatusProgErr != 0 }
func (sr StatusRegister) Security() bool     { return sr&StatusSecurity != 0 }
func (sr StatusRegister) Locked(region int) bool {
	if region < 0 || region >= LockRegions {
		return false
	}
	return sr&(1<<(16+region)) != 0
}

// Fault reports whether the last command ended in an error.
func (sr StatusRegister) Fault() bool { return sr&(StatusLockErr|StatusProgErr) != 0 }

func (sr StatusRegister) String() string {
	b := fmt.Sprintf("%032b", uint32(sr))
	s := []string{}
	if sr.Ready() {
		s = append(s, "FRDY")
	}
	if sr.LockError() {
		s = append(s, "LOCKE")
	}
	if sr.ProgramError() {
		s = append(s, "PROGE")
	}
	if sr.Security() {
		s = append(s, "SECURITY")
	}
	for i := range LockRegions {
		if sr.Locked(i) {
			s = append(s, fmt.Sprintf("LOCK%d", i))
		}
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}

// ParameterRegister represents the Flash Parameter Register (FPR).
//
//	Bits | [SAM4L|FPR]
//	-----+-------------------
//	10:8 | PSZ: Page size
//	3:0  | FSZ: Flash size
type ParameterRegister uint32

var flashSizeCodes = [...]int{
	4 << 10, 8 << 10, 16 << 10, 32 << 10, 48 << 10, 64 << 10, 96 << 10, 128 << 10,
	192 << 10, 256 << 10, 384 << 10, 512 << 10, 768 << 10, 1024 << 10, 2048 << 10,
}

// FlashSize returns the flash size in bytes, or 0 for a reserved code.
func (pr ParameterRegister) FlashSize() int {
	code := int(pr & 0xF)
	if code >= len(flashSizeCodes) {
		return 0
	}
	return flashSizeCodes[code]
}

// PageSize returns the page size in bytes.
func (pr ParameterRegister) PageSize() int {
	return 32 << ((pr >> 8) & 0x7)
}

// EncodeParameters builds an FPR value for the given sizes. It returns false
// when either size has no encoding.
func EncodeParameters(flashSize, pageSize int) (ParameterRegister, bool) {
	fsz := -1
	for i, sz := range flashSizeCodes {
		if sz == flashSize {
			fsz = i
		}
	}
	psz := -1
	for i := range 8 {
		if 32<<i == pageSize {
			psz = i
		}
	}
	if fsz < 0 || psz < 0 {
		return 0, false
	}
	return ParameterRegister(psz<<8 | fsz), true
}

func (pr ParameterRegister) String() string {
	return fmt.Sprintf("flash %dKB, page %dB", pr.FlashSize()>>10, pr.PageSize())
}
