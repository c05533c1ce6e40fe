package hflashc

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Register bridge frames. The bridge turns SPI transactions into 32-bit
// accesses on the target bus; addresses and data are sent MSB first.
//
//	Write | 0x02 | A31..A0 | D31..D0 |
//	Read  | 0x03 | A31..A0 | dummy   | D31..D0 (returned)
const (
	bridgeCmdWrite = 0x02
	bridgeCmdRead  = 0x03

	bridgeWriteLen = 1 + 4 + 4
	bridgeReadLen  = 1 + 4 + 1 + 4
)

// BridgePort is a Port reached through an SPI register bridge.
type BridgePort struct {
	conn conn.Conn
	cs   gpio.PinOut
}

// NewBridgePort returns a port that frames every access as one transaction
// on c with cs held low. Use a nil cs when the connection drives chip
// select itself.
func NewBridgePort(c conn.Conn, cs gpio.PinOut) *BridgePort {
	return &BridgePort{conn: c, cs: cs}
}

func (b *BridgePort) String() string { return "bridge(" + b.conn.String() + ")" }

// tx wraps SPI transaction with CS assertion.
func (b *BridgePort) tx(buf []byte) (err error) {
	if b.cs == nil {
		return b.conn.Tx(buf, buf)
	}
	if err = b.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := b.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	err = b.conn.Tx(buf, buf)
	return
}

// ReadWord implements Port.
func (b *BridgePort) ReadWord(addr uint32) (uint32, error) {
	buf := make([]byte, bridgeReadLen)
	buf[0] = bridgeCmdRead
	binary.BigEndian.PutUint32(buf[1:5], addr)
	// buf[5] turnaround, buf[6:] data

	if err := b.tx(buf); err != nil {
		return 0, fmt.Errorf("bridge read 0x%08X: %w", addr, err)
	}
	return binary.BigEndian.Uint32(buf[6:]), nil
}

// WriteWord implements Port.
func (b *BridgePort) WriteWord(addr uint32, v uint32) error {
	buf := make([]byte, bridgeWriteLen)
	buf[0] = bridgeCmdWrite
	binary.BigEndian.PutUint32(buf[1:5], addr)
	binary.BigEndian.PutUint32(buf[5:], v)

	if err := b.tx(buf); err != nil {
		return fmt.Errorf("bridge write 0x%08X: %w", addr, err)
	}
	return nil
}
