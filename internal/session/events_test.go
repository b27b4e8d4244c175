package session

import (
	"testing"

	"github.com/google/go-dap"

	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
)

type fakeThread struct {
	id         uint64
	stopReason lldbapi.StopReason
	desc       string
}

func (t *fakeThread) ID() uint64                  { return t.id }
func (t *fakeThread) IndexID() int                { return int(t.id) }
func (t *fakeThread) StopReason() lldbapi.StopReason { return t.stopReason }
func (t *fakeThread) StopDescription() string     { return t.desc }
func (t *fakeThread) HitBreakpointIDs() []int32   { return nil }
func (t *fakeThread) Frames() []lldbapi.Frame     { return nil }
func (t *fakeThread) ReturnValue() (lldbapi.Value, bool) { return nil, false }
func (t *fakeThread) StepOver() error             { return nil }
func (t *fakeThread) StepInto() error             { return nil }
func (t *fakeThread) StepOut() error              { return nil }
func (t *fakeThread) StepInstruction() error      { return nil }

type fakeProcess struct {
	threads  []lldbapi.Thread
	selected lldbapi.Thread
}

func (p *fakeProcess) ID() uint64                       { return 1 }
func (p *fakeProcess) State() lldbapi.StateType         { return lldbapi.StateStopped }
func (p *fakeProcess) Threads() []lldbapi.Thread        { return p.threads }
func (p *fakeProcess) SelectedThread() lldbapi.Thread   { return p.selected }
func (p *fakeProcess) SetSelectedThread(t lldbapi.Thread) { p.selected = t }
func (p *fakeProcess) Continue() error                  { return nil }
func (p *fakeProcess) Stop() error                       { return nil }
func (p *fakeProcess) Kill() error                       { return nil }
func (p *fakeProcess) Detach() error                     { return nil }
func (p *fakeProcess) Broadcaster() lldbapi.Broadcaster  { return nil }

func TestNotifyProcessStoppedThreadDelta(t *testing.T) {
	e := NewEventTranslator()
	t1 := &fakeThread{id: 1, stopReason: lldbapi.StopReasonNone}
	t2 := &fakeThread{id: 2, stopReason: lldbapi.StopReasonBreakpoint}
	proc := &fakeProcess{threads: []lldbapi.Thread{t1, t2}}

	out := make(chan dap.Message, 10)
	e.NotifyProcessStopped(out, proc)
	close(out)

	var started []int
	var stoppedReason string
	for msg := range out {
		switch m := msg.(type) {
		case *dap.ThreadEvent:
			if m.Body.Reason == "started" {
				started = append(started, m.Body.ThreadId)
			}
		case *dap.StoppedEvent:
			stoppedReason = m.Body.Reason
		}
	}

	if len(started) != 2 {
		t.Fatalf("expected 2 started-thread events, got %d", len(started))
	}
	if stoppedReason != "breakpoint" {
		t.Errorf("stopped reason = %q, want %q", stoppedReason, "breakpoint")
	}

	// Second stop: thread 1 exits, thread 2 remains.
	proc2 := &fakeProcess{threads: []lldbapi.Thread{t2}, selected: t2}
	out2 := make(chan dap.Message, 10)
	e.NotifyProcessStopped(out2, proc2)
	close(out2)

	var exited []int
	for msg := range out2 {
		if m, ok := msg.(*dap.ThreadEvent); ok && m.Body.Reason == "exited" {
			exited = append(exited, m.Body.ThreadId)
		}
	}
	if len(exited) != 1 || exited[0] != 1 {
		t.Errorf("expected thread 1 to exit, got %v", exited)
	}
}

func TestStopReasonToDAPSignal(t *testing.T) {
	th := &fakeThread{stopReason: lldbapi.StopReasonSignal, desc: "SIGSEGV"}
	reason, text := stopReasonToDAP(th)
	if reason != "signal" || text != "SIGSEGV" {
		t.Errorf("stopReasonToDAP() = (%q,%q), want (signal, SIGSEGV)", reason, text)
	}
}
