//go:build !windows

// Package stderr redirects file descriptor 2 into a logger while the player
// owns the terminal. Audio backends (ALSA in particular) write there
// directly, bypassing os.Stderr.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// Capture holds a redirected stderr.
type Capture struct {
	orig  int
	read  *os.File
	write *os.File
	done  chan struct{}
	once  sync.Once
}

// Start redirects stderr and logs every non-empty line at warn level.
// Must be called before the audio device is opened. On error stderr is
// left untouched and the program can continue.
func Start(log *zap.Logger) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{orig: orig, read: r, write: w, done: make(chan struct{})}
	go c.forward(log.Named("stderr"))
	return c, nil
}

func (c *Capture) forward(log *zap.Logger) {
	defer close(c.done)
	scanner := bufio.NewScanner(c.read)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			log.Warn(line)
		}
	}
}

// WriteOriginal writes to the terminal's stderr, bypassing capture.
func (c *Capture) WriteOriginal(msg string) {
	_, _ = syscall.Write(c.orig, []byte(msg))
}

// Stop restores the original stderr and waits for pending lines.
func (c *Capture) Stop() {
	c.once.Do(func() {
		_ = syscall.Dup2(c.orig, int(os.Stderr.Fd()))
		_ = syscall.Close(c.orig)
		c.write.Close()
		<-c.done
		c.read.Close()
	})
}
