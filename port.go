package hflashc

// Port is 32-bit access to the bus the flash controller sits on.
//
// Side effects of WriteWord depend on the address:
//   - a store into the flash window lands in the page buffer word at
//     addr%PageSize, the flash cells are untouched until a WritePage command;
//   - a store to RegBase+RegFCMD issues a command and clears FSR.FRDY
//     until the command completes.
//
// ReadWord of RegBase+RegFSR reads the status and clears LOCKE and PROGE.
// ReadWord inside the flash window reads the flash cells.
type Port interface {
	ReadWord(addr uint32) (uint32, error)
	WriteWord(addr uint32, v uint32) error
}
