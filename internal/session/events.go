package session

import (
	"fmt"

	"github.com/google/go-dap"

	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
	"github.com/lldb-tools/lldb-dap/internal/script"
)

// EventTranslator maps debugger-engine events onto DAP events and tracks
// the thread-id set needed to compute started/exited deltas (§4.7).
type EventTranslator struct {
	knownThreads  map[uint64]struct{}
	loadedModules []string
	interp        *script.Interpreter
}

// NewEventTranslator returns a translator with an empty known-thread set.
func NewEventTranslator() *EventTranslator {
	return &EventTranslator{knownThreads: make(map[uint64]struct{})}
}

// SetInterpreter wires the embedded script interpreter that deferred
// module-load notifications are flushed to. Called once initialize has
// built one; nil-safe before that point.
func (e *EventTranslator) SetInterpreter(interp *script.Interpreter) {
	e.interp = interp
}

// ProcessStateChanged handles a process lifecycle transition, emitting the
// events for Running/Exited/Detached directly and delegating Stopped and
// Crashed to NotifyProcessStopped.
func (e *EventTranslator) ProcessStateChanged(out chan<- dap.Message, proc lldbapi.Process, ev lldbapi.ProcessStateEvent) {
	switch ev.State() {
	case lldbapi.StateRunning:
		out <- &dap.ContinuedEvent{
			Event: dap.Event{Event: "continued"},
			Body:  dap.ContinuedEventBody{AllThreadsContinued: true, ThreadId: 0},
		}
	case lldbapi.StateStopped, lldbapi.StateCrashed:
		if ev.Restarted() {
			return
		}
		e.NotifyProcessStopped(out, proc)
	case lldbapi.StateExited:
		out <- &dap.ExitedEvent{
			Event: dap.Event{Event: "exited"},
			Body:  dap.ExitedEventBody{ExitCode: ev.ExitCode()},
		}
		out <- &dap.TerminatedEvent{Event: dap.Event{Event: "terminated"}}
	case lldbapi.StateDetached:
		out <- &dap.TerminatedEvent{Event: dap.Event{Event: "terminated"}}
	}
}

// ModuleLoaded defers a module-load notification to the next stop, per
// §4.7's note that running interpreter callbacks mid-execution can
// destabilize the engine.
func (e *EventTranslator) ModuleLoaded(ev lldbapi.ModuleEvent) {
	e.loadedModules = append(e.loadedModules, ev.ModuleName())
}

// NotifyProcessStopped implements the four-step stop notification: thread
// deltas, selecting the stopping thread, mapping its stop reason, and
// flushing deferred module-load notifications.
func (e *EventTranslator) NotifyProcessStopped(out chan<- dap.Message, proc lldbapi.Process) {
	threads := proc.Threads()

	seen := make(map[uint64]struct{}, len(threads))
	for _, t := range threads {
		seen[t.ID()] = struct{}{}
	}

	for id := range e.knownThreads {
		if _, ok := seen[id]; !ok {
			out <- &dap.ThreadEvent{
				Event: dap.Event{Event: "thread"},
				Body:  dap.ThreadEventBody{Reason: "exited", ThreadId: int(id)},
			}
		}
	}
	for _, t := range threads {
		if _, ok := e.knownThreads[t.ID()]; !ok {
			out <- &dap.ThreadEvent{
				Event: dap.Event{Event: "thread"},
				Body:  dap.ThreadEventBody{Reason: "started", ThreadId: int(t.ID())},
			}
		}
	}
	e.knownThreads = seen

	stopping := proc.SelectedThread()
	if stopping == nil || stopping.StopReason() == lldbapi.StopReasonNone {
		for _, t := range threads {
			if t.StopReason() != lldbapi.StopReasonNone {
				stopping = t
				proc.SetSelectedThread(t)
				break
			}
		}
	}
	if stopping == nil {
		return
	}

	reason, text := stopReasonToDAP(stopping)
	out <- &dap.StoppedEvent{
		Event: dap.Event{Event: "stopped"},
		Body: dap.StoppedEventBody{
			AllThreadsStopped: true,
			Reason:            reason,
			Text:              text,
			ThreadId:          int(stopping.ID()),
		},
	}

	if len(e.loadedModules) > 0 {
		if e.interp != nil {
			if err := e.interp.NotifyModulesLoaded(e.loadedModules); err != nil {
				out <- &dap.OutputEvent{
					Event: dap.Event{Event: "output"},
					Body:  dap.OutputEventBody{Category: "stderr", Output: "on_modules_loaded: " + err.Error() + "\n"},
				}
			}
		}
		e.loadedModules = e.loadedModules[:0]
	}
}

func stopReasonToDAP(t lldbapi.Thread) (reason, text string) {
	switch t.StopReason() {
	case lldbapi.StopReasonBreakpoint:
		return "breakpoint", ""
	case lldbapi.StopReasonTrace, lldbapi.StopReasonPlanComplete:
		return "step", ""
	case lldbapi.StopReasonWatchpoint:
		return "watchpoint", t.StopDescription()
	case lldbapi.StopReasonSignal:
		return "signal", t.StopDescription()
	case lldbapi.StopReasonException:
		return "exception", t.StopDescription()
	default:
		return "unknown", fmt.Sprintf("stop reason %d", t.StopReason())
	}
}
