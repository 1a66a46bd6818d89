package cli

import (
	"io"
	"sync"
)

// TerminalCue plays scan feedback through the terminal bell: one bell for a
// matched scan, two for an error. When sound alerts are disabled it stays
// silent, which also keeps test output clean.
type TerminalCue struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
}

func NewTerminalCue(w io.Writer, enabled bool) *TerminalCue {
	return &TerminalCue{w: w, enabled: enabled}
}

func (c *TerminalCue) Success() {
	c.write("\a")
}

func (c *TerminalCue) Error() {
	c.write("\a\a")
}

func (c *TerminalCue) write(s string) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}
