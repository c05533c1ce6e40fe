package hflashc

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange is returned for empty requests or requests that fall
	// outside the flash array.
	ErrInvalidRange = errors.New("invalid flash range")

	// ErrMisaligned is returned in strict alignment mode for requests that
	// are not made of whole doublewords.
	ErrMisaligned = errors.New("misaligned flash request")

	// ErrTimeout is returned when the ready flag does not assert in time.
	ErrTimeout = errors.New("flash controller timeout")

	// ErrBusy is returned when a call is made while another is in flight.
	ErrBusy = errors.New("flash programmer busy")

	// ErrFault is returned when the controller reports LOCKE or PROGE.
	ErrFault = errors.New("flash controller fault")

	// ErrClaimed is returned when a port or token is used twice.
	ErrClaimed = errors.New("flash controller already claimed")
)

// RangeError describes a request outside the flash array.
type RangeError struct {
	Addr   uint32
	Length int
	Base   uint32
	Size   int
}

func (e *RangeError) Error() string {
	if e.Length <= 0 {
		return fmt.Sprintf("invalid length %d at 0x%08X", e.Length, e.Addr)
	}
	return fmt.Sprintf("range 0x%08X+%d outside flash 0x%08X+%d", e.Addr, e.Length, e.Base, e.Size)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// AlignmentError describes a request rejected in strict alignment mode.
type AlignmentError struct {
	Addr   uint32
	Length int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("range 0x%08X+%d is not doubleword aligned", e.Addr, e.Length)
}

func (e *AlignmentError) Unwrap() error { return ErrMisaligned }

// TimeoutError describes a command whose completion was never observed.
type TimeoutError struct {
	Cmd     Command
	Page    int
	Polls   int
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s page %d: not ready after %d polls (%s)", e.Cmd, e.Page, e.Polls, e.Elapsed)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// FaultError describes a command that completed with an error flag set.
type FaultError struct {
	Cmd    Command
	Page   int
	Status StatusRegister
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s page %d: status %s", e.Cmd, e.Page, e.Status)
}

func (e *FaultError) Unwrap() error { return ErrFault }
