//go:build !linux

package gpio

import "errors"

// ErrUnsupported is returned by RealReader on platforms without the GPIO
// character device.
var ErrUnsupported = errors.New("gpio: character device requires Linux")

// RealReader is a placeholder so the daemon builds on non-Linux platforms.
type RealReader struct{}

func NewRealReader(chipName string, lines []Line) (*RealReader, error) {
	return nil, ErrUnsupported
}

func (r *RealReader) Read() (map[string]bool, error) {
	return nil, ErrUnsupported
}

func (r *RealReader) Close() error {
	return nil
}
