// Package hflashc programs the internal flash of SAM4L microcontrollers
// through the HFLASHC flash controller.
//
// The controller is reached through a [Port], a 32-bit bus access
// interface. A port is claimed once with [Claim] and handed to [New], which
// returns the only [Programmer] for that port. Ports are provided for an SPI
// register bridge behind an FT2232H ([OpenFTDI]), for physical memory
// ([NewMMIOPort]) and, in package nvmtest, for a simulated controller.
//
// # References:
//
// Microchip
//   - [SAM4L]: SAM4L Series Datasheet, Flash Controller (HFLASHC) chapter (https://ww1.microchip.com/downloads/en/DeviceDoc/Atmel-42023-ARM-Microcontroller-ATSAM4L-Low-Power-LCD_Datasheet.pdf)
//
// FTDI (https://ftdichip.com/document/application-notes/)
//   - [FTDI-AN_114]: Interfacing FT2232H Hi-Speed Devices To SPI Bus (https://ftdichip.com/wp-content/uploads/2020/08/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf)
//   - [FTDI-AN_135]: FTDI MPSSE Basics (https://ftdichip.com/wp-content/uploads/2020/08/AN_135_MPSSE_Basics.pdf)
package hflashc
