// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the logical state of every configured line.
type Reader interface {
	// Read returns one logical value per line, keyed by line name.
	Read() (map[string]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Line maps a named signal to a GPIO line offset.
type Line struct {
	Name string
	Pin  int // BCM numbering
	// Invert reports raw active (1) as false. Optocoupler inputs such as the
	// boiler CH/HW modules pull the line active when the channel is off.
	Invert bool
}

// Logical converts a raw line value to the signal's logical value.
func (l Line) Logical(raw int) bool {
	active := raw != 0
	if l.Invert {
		return !active
	}
	return active
}
