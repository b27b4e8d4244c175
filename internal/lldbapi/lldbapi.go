// Package lldbapi declares the thin binding surface the session package
// needs from a native debugger engine. It is intentionally an interface
// contract only: the concrete LLDB bindings (cgo/SWIG wrappers around
// liblldb) live outside this module and satisfy these interfaces.
package lldbapi

// StateType mirrors lldb.StateType: the lifecycle state of a target process.
type StateType int

const (
	StateInvalid StateType = iota
	StateUnloaded
	StateConnected
	StateAttaching
	StateLaunching
	StateStopped
	StateRunning
	StateStepping
	StateCrashed
	StateDetached
	StateExited
	StateSuspended
)

// StopReason mirrors lldb.StopReason: why a thread most recently stopped.
type StopReason int

const (
	StopReasonNone StopReason = iota
	StopReasonTrace
	StopReasonBreakpoint
	StopReasonWatchpoint
	StopReasonSignal
	StopReasonException
	StopReasonExec
	StopReasonPlanComplete
	StopReasonThreadExiting
)

// Format mirrors lldb.Format: the eFormat enum used to render an SBValue.
type Format int

const (
	FormatDefault Format = iota
	FormatHex
	FormatOctal
	FormatDecimal
	FormatBinary
	FormatFloat
	FormatPointer
	FormatUnsigned
	FormatCString
	FormatBytes
	FormatBytesWithASCII
)

// VariableScope selects which bucket of a frame's variables to enumerate.
type VariableScope int

const (
	ScopeArgsAndLocals VariableScope = iota
	ScopeStatics
	ScopeGlobals
)

// Debugger is the root handle, analogous to lldb.SBDebugger.
type Debugger interface {
	SetAsync(async bool)
	CreateTarget(program string) (Target, error)
	CommandInterpreter() CommandInterpreter
	// Listener returns the debugger's default event listener, the one a
	// caller registers with a target or process Broadcaster to receive its
	// events.
	Listener() Listener
	Destroy()
}

// LaunchInfo carries everything needed to start an inferior.
type LaunchInfo struct {
	Args             []string
	Env              []string
	WorkingDirectory string
	StopAtEntry      bool
	Stdio            [3]StdioFile
	SourceMap        [][2]string
}

// StdioFile describes one redirected standard stream.
type StdioFile struct {
	Path  string
	Read  bool
	Write bool
}

// AttachInfo carries everything needed to attach to a running process.
type AttachInfo struct {
	PID     uint64
	Program string
	WaitFor bool
}

// Target is analogous to lldb.SBTarget.
type Target interface {
	Launch(info LaunchInfo) (Process, error)
	Attach(info AttachInfo) (Process, error)
	BreakpointCreateByLocation(file string, line uint32) Breakpoint
	BreakpointCreateByName(nameOrRegex string, isRegex bool) Breakpoint
	BreakpointCreateByAddress(addr uint64) Breakpoint
	BreakpointDelete(id int32)
	FindBreakpointByID(id int32) (Breakpoint, bool)
	Broadcaster() Broadcaster
	EvaluateExpression(expr string) (Value, error)
}

// Process is analogous to lldb.SBProcess.
type Process interface {
	ID() uint64
	State() StateType
	Threads() []Thread
	SelectedThread() Thread
	SetSelectedThread(t Thread)
	Continue() error
	Stop() error
	Kill() error
	Detach() error
	Broadcaster() Broadcaster
}

// Thread is analogous to lldb.SBThread.
type Thread interface {
	ID() uint64
	IndexID() int
	StopReason() StopReason
	StopDescription() string
	HitBreakpointIDs() []int32
	Frames() []Frame
	// ReturnValue is the value a just-completed `stepOut`/`finish` left
	// behind, analogous to lldb.SBThread.GetStopReturnValue(). Returns
	// ok=false when the thread didn't stop by completing a function.
	ReturnValue() (Value, bool)
	StepOver() error
	StepInto() error
	StepOut() error
	StepInstruction() error
}

// Frame is analogous to lldb.SBFrame.
type Frame interface {
	SetID(id int32)
	ID() int32
	Index() uint32
	PC() uint64
	FunctionName() string
	LineEntry() (file string, line uint32, ok bool)
	Variables(scope VariableScope) []Value
	Registers() []Value
	EvaluateExpression(expr string) (Value, error)
	CommandContext() CommandExecutionContext
	// Thread returns the frame's owning thread, analogous to
	// lldb.SBFrame.GetThread().
	Thread() Thread
	// Disassemble renders the instructions around the frame's PC as
	// text, analogous to lldb.SBTarget.ReadInstructions followed by
	// SBInstructionList.GetDescription.
	Disassemble() (string, error)
}

// Value is analogous to lldb.SBValue.
type Value interface {
	Name() string
	TypeName() string
	Summary() (string, bool)
	ValueString() (string, bool)
	IsPointer() bool
	IsReference() bool
	Unsigned() (uint64, bool)
	IsSynthetic() bool
	NonSyntheticValue() Value
	Dereference() (Value, error)
	NumChildren() int
	Child(i int) Value
	SetFormat(f Format)
	EvaluateExpressionPath() (string, bool)
	SetValueFromString(s string) error
}

// Breakpoint is analogous to lldb.SBBreakpoint.
type Breakpoint interface {
	ID() int32
	SetCondition(expr string)
	SetCallback(cb BreakpointCallback)
	SetIgnoreCount(n uint32)
	Locations() []BreakpointLocation
}

// BreakpointLocation is analogous to lldb.SBBreakpointLocation.
type BreakpointLocation interface {
	IsResolved() bool
	Enable(enabled bool)
	Address() uint64
	LineEntry() (file string, line uint32, ok bool)
}

// BreakpointCallback is invoked on the engine's own thread when a breakpoint
// is hit. It must not touch session state: it only reads the hit context
// passed in and returns whether the process should actually stop.
type BreakpointCallback func(hit BreakpointHit) bool

// BreakpointHit is the execution context of a single breakpoint hit.
type BreakpointHit interface {
	Frame() Frame
	Thread() Thread
}

// Broadcaster is analogous to lldb.SBBroadcaster: the source of events.
type Broadcaster interface {
	AddListener(l Listener, eventMask uint32) uint32
}

// Listener is analogous to lldb.SBListener.
type Listener interface {
	Events() <-chan Event
}

// Event is the common marker interface for everything delivered by a Listener.
type Event interface {
	EventType() string
}

// ProcessStateEvent reports a process lifecycle transition.
type ProcessStateEvent interface {
	Event
	State() StateType
	Restarted() bool
	ExitCode() int
}

// BreakpointChangedEvent reports engine-side breakpoint resolution changes.
type BreakpointChangedEvent interface {
	Event
	BreakpointID() int32
	LocationsAdded() bool
	Removed() bool
}

// ModuleEvent reports a module load into the target.
type ModuleEvent interface {
	Event
	ModuleName() string
}

// CommandInterpreter is analogous to lldb.SBCommandInterpreter, used for
// the `repl` evaluate context and for exec_commands-style command lists.
type CommandInterpreter interface {
	HandleCommand(command string, ctx CommandExecutionContext) (output string, ok bool)
}

// CommandExecutionContext pins a command/expression evaluation to a frame,
// analogous to lldb.SBExecutionContext.
type CommandExecutionContext interface {
	Frame() Frame
}

const (
	BreakpointChangedMask uint32 = 1 << iota
	ModulesLoadedMask
	ProcessStateMask
)
