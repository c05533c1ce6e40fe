package hflashc

import (
	"fmt"
	"sort"
	"time"
)

// DoublewordSize is the unit the controller stores per program operation.
// Internally the flash keeps data in 64-bit doublewords.
const DoublewordSize = 8

// ErasedByte is the value every byte holds after a page erase.
const ErasedByte = 0xFF

// Geometry describes the flash array and where it lives on the bus.
type Geometry struct {
	Name      string
	FlashBase uint32 // bus address of flash byte 0
	RegBase   uint32 // bus address of the HFLASHC register block
	PageSize  int
	PageCount int

	// Worst case command durations, used as the ready poll timeout.
	TErasePage time.Duration
	TWritePage time.Duration
}

// Size returns the flash capacity in bytes.
func (g Geometry) Size() int { return g.PageSize * g.PageCount }

// End returns the bus address one past the last flash byte.
func (g Geometry) End() uint64 { return uint64(g.FlashBase) + uint64(g.Size()) }

// Page returns the index of the page holding addr.
func (g Geometry) Page(addr uint32) int {
	return int(addr-g.FlashBase) / g.PageSize
}

// PageAddr returns the bus address of the first byte of page.
func (g Geometry) PageAddr(page int) uint32 {
	return g.FlashBase + uint32(page*g.PageSize)
}

// RegionPages returns the number of pages per lock region.
func (g Geometry) RegionPages() int {
	return max(1, g.PageCount/LockRegions)
}

// Region returns the lock region holding page.
func (g Geometry) Region(page int) int {
	return page / g.RegionPages()
}

// PageRange returns the half-open range of pages [first, last) touched by
// the n bytes starting at addr. A range ending exactly on a page boundary
// does not include the page that starts there.
func (g Geometry) PageRange(addr uint32, n int) (first, last int) {
	off := int(addr - g.FlashBase)
	first = off / g.PageSize
	last = (off + n + g.PageSize - 1) / g.PageSize
	return first, last
}

// Validate checks the invariants the programmer relies on.
func (g Geometry) Validate() error {
	if g.PageSize <= 0 || g.PageSize&(g.PageSize-1) != 0 {
		return fmt.Errorf("page size %d is not a power of two", g.PageSize)
	}
	if g.PageSize%DoublewordSize != 0 {
		return fmt.Errorf("page size %d is not a multiple of %d", g.PageSize, DoublewordSize)
	}
	if g.PageCount <= 0 || g.PageCount > 1<<16 {
		return fmt.Errorf("page count %d does not fit FCMD.PAGEN", g.PageCount)
	}
	if g.FlashBase%uint32(g.PageSize) != 0 {
		return fmt.Errorf("flash base 0x%08X is not page aligned", g.FlashBase)
	}
	if g.End() > 1<<32 {
		return fmt.Errorf("flash end 0x%X exceeds the 32-bit bus", g.End())
	}
	return nil
}

// SAM4L memory map:
//   - [SAM4L|Memories: Physical Memory Map]
const (
	sam4lFlashBase = 0x00000000
	sam4lRegBase   = 0x400A0000
)

// [SAM4L|Electrical Characteristics: Flash Characteristics]
// tFPP: page programming time, tFPE: page erase time. Both are taken at
// their maximum with margin for a slow bus in front of the controller.
const (
	sam4lTErasePage = 50 * time.Millisecond
	sam4lTWritePage = 50 * time.Millisecond
)

var knownVariants = map[string]Geometry{
	"ATSAM4LC8C": sam4l("ATSAM4LC8C", 1024),
	"ATSAM4LS8C": sam4l("ATSAM4LS8C", 1024),
	"ATSAM4LC4C": sam4l("ATSAM4LC4C", 512),
	"ATSAM4LS4C": sam4l("ATSAM4LS4C", 512),
	"ATSAM4LC2C": sam4l("ATSAM4LC2C", 256),
	"ATSAM4LS2C": sam4l("ATSAM4LS2C", 256),
}

func sam4l(name string, pages int) Geometry {
	return Geometry{
		Name:       name,
		FlashBase:  sam4lFlashBase,
		RegBase:    sam4lRegBase,
		PageSize:   512,
		PageCount:  pages,
		TErasePage: sam4lTErasePage,
		TWritePage: sam4lTWritePage,
	}
}

// DefaultVariant is the part used when none is given:
// 512KB flash in 1024 pages of 512 bytes.
const DefaultVariant = "ATSAM4LC8C"

// Variant returns the geometry of a known part.
func Variant(name string) (Geometry, bool) {
	g, ok := knownVariants[name]
	return g, ok
}

// Variants returns the names of all known parts, sorted.
func Variants() []string {
	names := make([]string, 0, len(knownVariants))
	for name := range knownVariants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GeometryFromParameters builds a geometry from the Flash Parameter Register
// using the SAM4L memory map. The name is the first known variant with the
// same size, or empty.
func GeometryFromParameters(pr ParameterRegister) (Geometry, error) {
	size, page := pr.FlashSize(), pr.PageSize()
	if size == 0 {
		return Geometry{}, fmt.Errorf("reserved flash size code in FPR 0x%08X", uint32(pr))
	}
	g := sam4l("", size/page)
	g.PageSize = page
	for _, name := range Variants() {
		if v := knownVariants[name]; v.Size() == size && v.PageSize == page {
			g.Name = name
			break
		}
	}
	return g, g.Validate()
}
