package session

import (
	"sync"

	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
)

// DisassemblyCache holds the rendered text for each synthetic disassembly
// source handed out by handleStackTrace, keyed by the frame's PC (the same
// value used as the source's SourceReference). Entries are registered at
// most once per address and rendered at most once, regardless of how many
// times the front-end re-requests the same source or how many stops
// revisit the same PC.
type DisassemblyCache struct {
	mu      sync.RWMutex
	entries map[uint64]func() (string, error)
}

// NewDisassemblyCache returns an empty cache.
func NewDisassemblyCache() *DisassemblyCache {
	return &DisassemblyCache{entries: make(map[uint64]func() (string, error))}
}

// Put registers f's disassembly under addr if nothing is registered there
// yet. The memoizing closure keeps the frame referenced until the
// disassembly is first rendered.
func (d *DisassemblyCache) Put(addr uint64, f lldbapi.Frame) {
	d.mu.RLock()
	_, ok := d.entries[addr]
	d.mu.RUnlock()
	if ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[addr]; ok {
		return
	}
	d.entries[addr] = sync.OnceValues(f.Disassemble)
}

// Text returns the rendered disassembly for addr. found is false if no
// frame at that address has ever been registered.
func (d *DisassemblyCache) Text(addr uint64) (text string, found bool, err error) {
	d.mu.RLock()
	render, ok := d.entries[addr]
	d.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	text, err = render()
	return text, true, err
}
