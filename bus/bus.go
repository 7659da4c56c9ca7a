// Package bus implements the physical transports that carry commands and
// pixel data to display controllers, and the per-bus transaction arbiter
// shared by every device wired to the same transport.
//
// A Transport only knows how to frame bytes on the wire. Ownership of the
// wire is tracked by an Arbiter: drivers nest Begin/End pairs freely and the
// transport is physically opened on the outermost Begin and closed on the
// matching End.
//
// None of the types in this package are safe for concurrent use.
package bus

import (
	"errors"
	"fmt"
)

// Transport frames commands and data for a display controller.
type Transport interface {
	String() string
	// Begin claims the physical bus, e.g. asserts chip select.
	Begin() error
	// End releases the physical bus.
	End() error
	// WriteCommand sends bytes with the data/command line in command state.
	WriteCommand(cmd []byte) error
	// WriteData sends bytes with the data/command line in data state.
	WriteData(data []byte) error
	// ReadData reads len(dst) bytes from the controller. Write-only
	// transports return an error wrapping errors.ErrUnsupported.
	ReadData(dst []byte) error
}

var (
	// ErrUnbalanced is returned by a strict Arbiter when End is called
	// without a matching Begin.
	ErrUnbalanced = errors.New("bus: End without matching Begin")
	// ErrWriteOnly is returned by ReadData on transports that cannot read
	// back. It wraps errors.ErrUnsupported.
	ErrWriteOnly = fmt.Errorf("bus: transport is write-only: %w", errors.ErrUnsupported)
	// ErrNoCommand is returned by transports without a command channel.
	ErrNoCommand = fmt.Errorf("bus: transport has no command channel: %w", errors.ErrUnsupported)
)

// defaultMaxTxSize is used when the connection does not advertise a limit.
const defaultMaxTxSize = 4096
