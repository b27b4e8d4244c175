package session

import (
	"runtime"

	"github.com/lldb-tools/lldb-dap/internal/config"
	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
	"github.com/lldb-tools/lldb-dap/internal/term"
)

// stdioFiles builds the three lldbapi.StdioFile entries for a launch,
// deriving read/write permissions from the fd number per §4.6's "explicit
// stdio entries" rule: fd 0 is read-only and fds 1-2 are write-only.
// Missing entries leave that fd unredirected; entries beyond the third are
// ignored.
func stdioFiles(entries []config.StdioRedirect) [3]lldbapi.StdioFile {
	var files [3]lldbapi.StdioFile
	for fd := 0; fd < 3; fd++ {
		if fd >= len(entries) {
			continue
		}
		files[fd] = lldbapi.StdioFile{
			Path:  entries[fd].Path,
			Read:  fd == 0,
			Write: fd != 0,
		}
	}
	return files
}

// terminalEnv returns the Windows launcher environment variable that
// signals whether the inferior should run without its own console, per
// §6's environment rules. Returns ("", false) on POSIX hosts, where
// pseudo-terminal routing is handled directly instead.
func terminalEnv(kind config.TerminalKind) (key, value string, ok bool) {
	if runtime.GOOS != "windows" {
		return "", "", false
	}
	withoutConsole := kind == config.TerminalExternal || kind == config.TerminalIntegrated
	return "LLDB_LAUNCH_INFERIORS_WITHOUT_CONSOLE", boolString(withoutConsole), true
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// allocateTerminal opens a pty for external/integrated terminal routing on
// POSIX hosts and builds the runInTerminal request the front-end is asked
// to host. Returns ok=false when the terminal kind doesn't need a pty
// (None/Console, or Windows where console allocation is handled by the
// launcher environment variable instead).
func allocateTerminal(kind config.TerminalKind, program, cwd string) (*term.PTY, term.RunInTerminalRequest, bool, error) {
	if runtime.GOOS == "windows" {
		return nil, term.RunInTerminalRequest{}, false, nil
	}
	if kind != config.TerminalExternal && kind != config.TerminalIntegrated {
		return nil, term.RunInTerminalRequest{}, false, nil
	}

	pty, err := term.Open()
	if err != nil {
		return nil, term.RunInTerminalRequest{}, false, err
	}

	req := term.NewRunInTerminalRequest(string(kind), program, pty.SlavePath(), cwd)
	return pty, req, true, nil
}
