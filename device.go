package hflashc

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// Device is an FT2232H driving the SPI register bridge of a target board.
type Device struct {
	FTDI *ftdi.FT232H
	Port *BridgePort

	cs    gpio.PinIO // ADBUS4 Chip Select
	reset gpio.PinIO // ADBUS7 Target Reset

	clock physic.Frequency
	conn  spi.Conn
}

var hostInitialized atomic.Bool

// OpenFTDI finds an FT2232H device and opens the MPSSE/SPI connection to
// the register bridge.
func OpenFTDI() (*Device, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	d := &Device{
		clock: 30 * physic.MegaHertz, // [FTDI-AN_135|3.2.1 Divisors]
	}
	if err := d.findFT2232H(); err != nil {
		return nil, err
	}

	// ADBUS0 | SCK
	// ADBUS1 | MOSI
	// ADBUS2 | MISO
	// ADBUS4 | bridge CS
	// ADBUS7 | target RESET_N
	d.cs = d.FTDI.D4
	d.reset = d.FTDI.D7

	if err := d.connectSPI(); err != nil {
		return nil, err
	}

	d.Port = NewBridgePort(d.conn, d.cs)

	return d, nil
}

// ResetTarget asserts (low) or deasserts (high) the target reset line.
// The bridge keeps answering while the core is held in reset, which stops
// firmware from touching the flash controller during programming.
func (d *Device) ResetTarget(l gpio.Level) error {
	return d.reset.Out(l)
}

func (d *Device) findFT2232H() error {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			d.FTDI = ft
			return nil
		}
	}

	return errors.New("FT2232H device not found")
}

func (d *Device) connectSPI() (err error) {
	port, err := d.FTDI.SPI()
	if err != nil {
		return fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI-AN_114|1.2]> FTDI device can only support mode 0 and mode 2 due to the limitation of MPSSE engine
	mode := spi.Mode0
	d.conn, err = port.Connect(d.clock, mode, 8)
	return err
}
