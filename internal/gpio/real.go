//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type requestedLine struct {
	Line
	handle *gpiocdev.Line
}

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []requestedLine
}

// NewRealReader requests every line as an input on the named chip.
func NewRealReader(chipName string, lines []Line) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &RealReader{chip: chip}
	for _, l := range lines {
		// Request lines as input with pull-down to match Pi boot defaults.
		// This ensures consistent behavior with external optocoupler modules.
		handle, err := chip.RequestLine(l.Pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.Name, l.Pin, err)
		}
		r.lines = append(r.lines, requestedLine{Line: l, handle: handle})
	}
	return r, nil
}

// Read returns the logical state of every requested line.
func (r *RealReader) Read() (map[string]bool, error) {
	out := make(map[string]bool, len(r.lines))
	for _, l := range r.lines {
		raw, err := l.handle.Value()
		if err != nil {
			return nil, fmt.Errorf("read %s pin %d: %w", l.Name, l.Pin, err)
		}
		out[l.Name] = l.Logical(raw)
	}
	return out, nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error
	for _, l := range r.lines {
		if err := l.handle.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.Name, err))
		}
		if err := l.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.Name, err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	return errors.Join(errs...)
}
