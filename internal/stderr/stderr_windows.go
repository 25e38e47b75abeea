//go:build windows

// Package stderr is a no-op on Windows, whose audio backends do not write
// to the console.
package stderr

import (
	"os"

	"go.uber.org/zap"
)

// Capture is a placeholder for a redirected stderr.
type Capture struct{}

// Start returns a capture that does nothing.
func Start(*zap.Logger) (*Capture, error) {
	return &Capture{}, nil
}

// WriteOriginal writes to stderr.
func (c *Capture) WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

// Stop does nothing.
func (c *Capture) Stop() {}
