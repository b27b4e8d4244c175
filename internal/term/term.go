// Package term allocates pseudo-terminals for launched inferiors that chose
// external or integrated terminal routing, and builds the runInTerminal
// request that asks the front-end to actually host one.
package term

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// PTY wraps one allocated pseudo-terminal pair.
type PTY struct {
	Master *os.File
	Slave  *os.File
}

// Open allocates a new pty. Only meaningful on POSIX hosts; callers on
// Windows route stdio differently (see config.TerminalKind and the
// launcher-env flag convention).
func Open() (*PTY, error) {
	m, s, err := pty.Open()
	if err != nil {
		return nil, err
	}
	return &PTY{Master: m, Slave: s}, nil
}

// SlavePath is the path the inferior's stdio should be bound to.
func (p *PTY) SlavePath() string {
	return p.Slave.Name()
}

// Close releases both ends of the pty.
func (p *PTY) Close() error {
	sErr := p.Slave.Close()
	mErr := p.Master.Close()
	if sErr != nil {
		return sErr
	}
	return mErr
}

// RunInTerminalRequest describes the outbound runInTerminal request body,
// independent of the go-dap wire type so callers can fill it in without an
// import cycle back into the dap package.
type RunInTerminalRequest struct {
	Kind  string
	Title string
	Cwd   string
	Args  []string
}

// NewRunInTerminalRequest builds a uniquely titled runInTerminal request
// asking the front-end to host a terminal bridged onto slavePath, the same
// pty slave device the inferior's own stdio is bound to. The front-end's
// terminal process simply opens that device for its own stdio, becoming a
// second, interactive reader/writer on the debuggee's console, rather than
// re-launching the program itself.
func NewRunInTerminalRequest(kind, program, slavePath, cwd string) RunInTerminalRequest {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return RunInTerminalRequest{
		Kind:  kind,
		Title: fmt.Sprintf("%s (%s)", program, uuid.NewString()[:8]),
		Cwd:   cwd,
		Args:  []string{shell, "-c", fmt.Sprintf("exec %s -i <%s >%s 2>&1", shell, slavePath, slavePath)},
	}
}
