package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/go-dap"
	"github.com/google/shlex"
	"github.com/sirupsen/logrus"

	lldbdap "github.com/lldb-tools/lldb-dap/dap"
	"github.com/lldb-tools/lldb-dap/internal/config"
	"github.com/lldb-tools/lldb-dap/internal/errs"
	"github.com/lldb-tools/lldb-dap/internal/handle"
	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
	"github.com/lldb-tools/lldb-dap/internal/script"
	"github.com/lldb-tools/lldb-dap/internal/term"
)

// container tags what a variables-reference handle actually points at,
// mirroring the Container union in §3's data model.
type containerKind int

const (
	containerStackFrame containerKind = iota
	containerLocals
	containerStatics
	containerGlobals
	containerRegisters
	containerChild
)

type container struct {
	kind  containerKind
	frame lldbapi.Frame
	value lldbapi.Value
}

// deferredResponder is the single-slot mailbox described in §9: installed
// by launch/attach, consumed by configurationDone. run takes the Context
// configurationDone was dispatched with, so launch/attach can still issue
// reverse requests (e.g. runInTerminal) despite replying long after their
// own request's Context has gone out of scope.
type deferredResponder struct {
	seq int
	run func(c lldbdap.Context) (dap.ResponseMessage, error)
}

// DebugSession is the stateful mediator between one DAP connection and one
// LLDB debugger/target/process lifecycle.
type DebugSession struct {
	log *logrus.Entry

	mu sync.Mutex

	debugger lldbapi.Debugger
	target   lldbapi.Target
	process  lldbapi.Process

	processLaunched bool
	onConfigDone    *deferredResponder

	breakpoints *BreakpointRegistry
	dispatcher  *ExpressionDispatcher
	sourceMap   *SourceMapper
	events      *EventTranslator
	renderer    *VariableRenderer
	interp      *script.Interpreter

	settings DisplaySettings
	varRefs  *handle.Tree

	pty      *term.PTY
	exitCmds []string

	frames map[int32]lldbapi.Frame // stack-frame handle -> engine frame, valid for one stop epoch
	disasm *DisassemblyCache       // PC -> rendered disassembly, for synthetic disassembly sources

	newDebugger func() lldbapi.Debugger
}

// New builds a DebugSession. newDebugger constructs the engine root handle;
// it is a constructor function rather than a value so tests can supply a
// fake without this package importing the real binding.
func New(log *logrus.Entry, newDebugger func() lldbapi.Debugger) *DebugSession {
	refs := handle.New()
	settings := DisplaySettings{
		GlobalFormat:    config.DisplayFormatAuto,
		ShowDisassembly: config.ShowDisassemblyAuto,
	}
	s := &DebugSession{
		log:         log,
		dispatcher:  NewExpressionDispatcher(),
		events:      NewEventTranslator(),
		varRefs:     refs,
		settings:    settings,
		frames:      make(map[int32]lldbapi.Frame),
		disasm:      NewDisassemblyCache(),
		newDebugger: newDebugger,
	}
	s.renderer = NewVariableRenderer(&s.settings, refs)
	return s
}

// Target returns the session's current target, or nil before launch/attach
// has created one. The event pump uses this to install its listener on
// target.Broadcaster() once a target exists.
func (s *DebugSession) Target() lldbapi.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Process returns the session's current process, or nil before
// launch/attach has started one.
func (s *DebugSession) Process() lldbapi.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process
}

// Debugger returns the session's engine root handle, or nil before
// initialize has run.
func (s *DebugSession) Debugger() lldbapi.Debugger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger
}

// Events returns the session's EventTranslator, used by the event pump to
// turn engine events into outbound DAP messages.
func (s *DebugSession) Events() *EventTranslator {
	return s.events
}

// Breakpoints returns the session's current BreakpointRegistry, or nil
// before launch/attach has created a target. The event pump uses this to
// release registry state when the engine reports a breakpoint removed.
func (s *DebugSession) Breakpoints() *BreakpointRegistry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakpoints
}

// Handler builds the dap.Handler wiring every request this core answers
// to a DebugSession method, per §6's handled-request list.
func (s *DebugSession) Handler() lldbdap.Handler {
	return lldbdap.Handler{
		Initialize:              s.handleInitialize,
		Launch:                  s.handleLaunch,
		Attach:                  s.handleAttach,
		SetBreakpoints:          s.handleSetBreakpoints,
		SetFunctionBreakpoints:  s.handleSetFunctionBreakpoints,
		SetExceptionBreakpoints: s.handleSetExceptionBreakpoints,
		ConfigurationDone:       s.handleConfigurationDone,
		Disconnect:              s.handleDisconnect,
		Pause:                   s.handlePause,
		Continue:                s.handleContinue,
		Next:                    s.handleNext,
		StepIn:                  s.handleStepIn,
		StepOut:                 s.handleStepOut,
		Threads:                 s.handleThreads,
		StackTrace:              s.handleStackTrace,
		Scopes:                  s.handleScopes,
		Variables:               s.handleVariables,
		Evaluate:                s.handleEvaluate,
		Source:                  s.handleSource,
		DisplaySettings:         s.handleDisplaySettings,
	}
}

func (s *DebugSession) handleInitialize(c lldbdap.Context, req *dap.InitializeRequest, resp *dap.InitializeResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger = s.newDebugger()
	s.debugger.SetAsync(true)
	s.interp = script.New()
	s.renderer = NewVariableRenderer(&s.settings, s.varRefs)
	s.events.SetInterpreter(s.interp)

	t := true
	resp.Body.SupportsConfigurationDoneRequest = t
	resp.Body.SupportsFunctionBreakpoints = t
	resp.Body.SupportsConditionalBreakpoints = t
	resp.Body.SupportsHitConditionalBreakpoints = t
	resp.Body.SupportsSetVariable = t
	resp.Body.SupportsDelayedStackTraceLoading = t
	resp.Body.SupportTerminateDebuggee = t
	resp.Body.SupportsLogPoints = t
	return nil
}

func (s *DebugSession) handleLaunch(c lldbdap.Context, req *dap.LaunchRequest, resp *dap.LaunchResponse) error {
	args, err := config.ParseLaunchArguments(req.Arguments)
	if err != nil {
		return errs.Protocolf("launch arguments: %v", err)
	}
	s.log.WithField("args", config.RedactForLog(req.Arguments)).Debug("launch requested")

	for _, cmd := range args.InitCommands {
		s.runCommand(cmd)
	}

	target, err := s.createTarget(args.Program)
	if err != nil {
		return errs.UserErrorf("creating target: %v", err)
	}

	s.mu.Lock()
	s.target = target
	s.breakpoints = NewBreakpointRegistry(target, s.interp, s.dispatcher)
	s.sourceMap = NewSourceMapper(remapFromPairs(args.SourceMap))
	s.exitCmds = args.ExitCommands
	s.mu.Unlock()

	c.C() <- &dap.InitializedEvent{Event: dap.Event{Event: "initialized"}}

	reqSeq := req.GetRequest().Seq
	s.mu.Lock()
	s.onConfigDone = &deferredResponder{
		seq: reqSeq,
		run: func(c lldbdap.Context) (dap.ResponseMessage, error) {
			return s.finishLaunch(c, args)
		},
	}
	s.mu.Unlock()
	return nil
}

// hostTerminal sends the runInTerminal reverse request built by
// allocateTerminal and blocks for the front-end's response, per §4.6's
// stdio-wiring rule.
func (s *DebugSession) hostTerminal(c lldbdap.Context, req term.RunInTerminalRequest) error {
	dapReq := &dap.RunInTerminalRequest{
		Request: dap.Request{Command: "runInTerminal"},
		Arguments: dap.RunInTerminalRequestArguments{
			Kind:  req.Kind,
			Title: req.Title,
			Cwd:   req.Cwd,
			Args:  req.Args,
		},
	}
	resp := c.Request(dapReq)
	if !resp.GetResponse().Success {
		return fmt.Errorf("%s", resp.GetResponse().Message)
	}
	return nil
}

func (s *DebugSession) finishLaunch(c lldbdap.Context, args *config.LaunchArguments) (dap.ResponseMessage, error) {
	for _, cmd := range args.PreRunCommands {
		s.runCommand(cmd)
	}

	info := lldbapi.LaunchInfo{
		Args:             args.Args,
		Env:              mergeEnv(os.Environ(), args.Env),
		WorkingDirectory: args.Cwd,
		StopAtEntry:      args.StopOnEntry,
		SourceMap:        args.SourceMap,
	}

	if len(args.Stdio) > 0 {
		info.Stdio = stdioFiles(args.Stdio)
	} else if pty, termReq, ok, err := allocateTerminal(args.Terminal, args.Program, args.Cwd); err != nil {
		return nil, errs.UserErrorf("allocating terminal: %v", err)
	} else if ok {
		if err := s.hostTerminal(c, termReq); err != nil {
			if closeErr := pty.Close(); closeErr != nil {
				s.log.WithError(closeErr).Warn("launch: failed to close pty after runInTerminal failure")
			}
			return nil, errs.UserErrorf("runInTerminal: %v", err)
		}
		s.mu.Lock()
		s.pty = pty
		s.mu.Unlock()
		slave := pty.SlavePath()
		info.Stdio = [3]lldbapi.StdioFile{
			{Path: slave, Read: true},
			{Path: slave, Write: true},
			{Path: slave, Write: true},
		}
	}

	proc, err := s.target.Launch(info)
	if err != nil {
		return nil, errs.UserErrorf("launching process: %v", err)
	}

	s.mu.Lock()
	s.process = proc
	s.processLaunched = true
	s.mu.Unlock()

	for _, cmd := range args.PostRunCommands {
		s.runCommand(cmd)
	}

	return &dap.LaunchResponse{Response: dap.Response{Success: true}}, nil
}

func (s *DebugSession) handleAttach(c lldbdap.Context, req *dap.AttachRequest, resp *dap.AttachResponse) error {
	args, err := config.ParseAttachArguments(req.Arguments)
	if err != nil {
		return errs.Protocolf("attach arguments: %v", err)
	}

	for _, cmd := range args.InitCommands {
		s.runCommand(cmd)
	}

	target, err := s.createTarget(args.Program)
	if err != nil {
		return errs.UserErrorf("creating target: %v", err)
	}

	s.mu.Lock()
	s.target = target
	s.breakpoints = NewBreakpointRegistry(target, s.interp, s.dispatcher)
	s.sourceMap = NewSourceMapper(remapFromPairs(args.SourceMap))
	s.exitCmds = args.ExitCommands
	s.mu.Unlock()

	c.C() <- &dap.InitializedEvent{Event: dap.Event{Event: "initialized"}}

	reqSeq := req.GetRequest().Seq
	s.mu.Lock()
	s.onConfigDone = &deferredResponder{
		seq: reqSeq,
		run: func(c lldbdap.Context) (dap.ResponseMessage, error) {
			return s.finishAttach(target, args)
		},
	}
	s.mu.Unlock()
	return nil
}

func (s *DebugSession) finishAttach(target lldbapi.Target, args *config.AttachArguments) (dap.ResponseMessage, error) {
	proc, err := target.Attach(lldbapi.AttachInfo{
		PID:     args.PID,
		Program: args.Program,
		WaitFor: args.WaitFor,
	})
	if err != nil {
		return nil, errs.UserErrorf("attaching: %v", err)
	}

	s.mu.Lock()
	s.process = proc
	s.processLaunched = false
	s.mu.Unlock()

	for _, cmd := range args.PostRunCommands {
		s.runCommand(cmd)
	}

	return &dap.AttachResponse{Response: dap.Response{Success: true}}, nil
}

func (s *DebugSession) createTarget(program string) (lldbapi.Target, error) {
	target, err := s.debugger.CreateTarget(program)
	if err != nil && os.PathSeparator == '\\' {
		return s.debugger.CreateTarget(program + ".exe")
	}
	return target, err
}

func (s *DebugSession) handleSetBreakpoints(c lldbdap.Context, req *dap.SetBreakpointsRequest, resp *dap.SetBreakpointsResponse) error {
	s.mu.Lock()
	registry := s.breakpoints
	s.mu.Unlock()
	if registry == nil {
		return errs.Preconditionf("no target")
	}

	// A breakpoint set while viewing a disassembly source (§3's
	// FileId::Disassembly(handle)) carries no path, only the source
	// reference handed out in handleStackTrace — which is itself the
	// frame's PC, since each synthetic disassembly source is anchored at
	// one address.
	if req.Arguments.Source.Path == "" && req.Arguments.Source.SourceReference != 0 {
		addr := uint64(req.Arguments.Source.SourceReference)
		out := make([]dap.Breakpoint, 0, len(req.Arguments.Breakpoints))
		for _, bp := range req.Arguments.Breakpoints {
			out = append(out, registry.SetAssemblyBreakpoint(addr, bp.Condition))
		}
		resp.Body.Breakpoints = out
		return nil
	}

	resp.Body.Breakpoints = registry.SetSourceBreakpoints(req.Arguments.Source.Path, req.Arguments.Breakpoints)
	return nil
}

func (s *DebugSession) handleSetFunctionBreakpoints(c lldbdap.Context, req *dap.SetFunctionBreakpointsRequest, resp *dap.SetFunctionBreakpointsResponse) error {
	s.mu.Lock()
	registry := s.breakpoints
	s.mu.Unlock()
	if registry == nil {
		return errs.Preconditionf("no target")
	}

	resp.Body.Breakpoints = registry.SetFunctionBreakpoints(req.Arguments.Breakpoints)
	return nil
}

// handleSetExceptionBreakpoints is a no-op acknowledgment: exception
// filters are declared in capabilities but not wired, per §4.2.
func (s *DebugSession) handleSetExceptionBreakpoints(c lldbdap.Context, req *dap.SetExceptionBreakpointsRequest, resp *dap.SetExceptionBreakpointsResponse) error {
	return nil
}

func (s *DebugSession) handleConfigurationDone(c lldbdap.Context, req *dap.ConfigurationDoneRequest, resp *dap.ConfigurationDoneResponse) error {
	s.mu.Lock()
	responder := s.onConfigDone
	s.onConfigDone = nil
	s.mu.Unlock()

	if responder == nil {
		return nil
	}

	c.Go(func(c lldbdap.Context) {
		launchResp, err := responder.run(c)
		msg := launchResp
		if err != nil {
			msg = &dap.Response{}
		}
		rm := msg.GetResponse()
		rm.RequestSeq = responder.seq
		rm.Success = err == nil
		if err != nil {
			rm.Message = errs.Message(err)
		}
		c.C() <- msg
	})
	return nil
}

func (s *DebugSession) handleDisconnect(c lldbdap.Context, req *dap.DisconnectRequest, resp *dap.DisconnectResponse) error {
	for _, cmd := range s.exitCmds {
		s.runCommand(cmd)
	}

	s.mu.Lock()
	proc := s.process
	owned := s.processLaunched
	terminateRequested := req.Arguments.TerminateDebuggee
	pty := s.pty
	s.mu.Unlock()

	if proc != nil {
		var err error
		if owned && terminateRequested {
			err = proc.Kill()
		} else {
			err = proc.Detach()
		}
		if err != nil {
			s.log.WithError(err).Warn("disconnect: failed to stop process")
		}
	}
	if pty != nil {
		if err := pty.Close(); err != nil {
			s.log.WithError(err).Warn("disconnect: failed to close pty")
		}
	}
	return nil
}

func (s *DebugSession) handlePause(c lldbdap.Context, req *dap.PauseRequest, resp *dap.PauseResponse) error {
	s.beforeResume()
	if s.process == nil {
		return errs.Preconditionf("no process")
	}
	if err := s.process.Stop(); err != nil {
		return errs.UserErrorf("pause: %v", err)
	}
	return nil
}

func (s *DebugSession) handleContinue(c lldbdap.Context, req *dap.ContinueRequest, resp *dap.ContinueResponse) error {
	s.beforeResume()
	if s.process == nil {
		return errs.Preconditionf("no process")
	}
	if err := s.process.Continue(); err != nil {
		return errs.UserErrorf("continue: %v", err)
	}
	return nil
}

func (s *DebugSession) handleNext(c lldbdap.Context, req *dap.NextRequest, resp *dap.NextResponse) error {
	return s.step(req.Arguments.ThreadId, func(t lldbapi.Thread) error { return t.StepOver() })
}

func (s *DebugSession) handleStepIn(c lldbdap.Context, req *dap.StepInRequest, resp *dap.StepInResponse) error {
	return s.step(req.Arguments.ThreadId, func(t lldbapi.Thread) error { return t.StepInto() })
}

func (s *DebugSession) handleStepOut(c lldbdap.Context, req *dap.StepOutRequest, resp *dap.StepOutResponse) error {
	return s.step(req.Arguments.ThreadId, func(t lldbapi.Thread) error { return t.StepOut() })
}

func (s *DebugSession) step(threadID int, fn func(lldbapi.Thread) error) error {
	s.beforeResume()
	if s.process == nil {
		return errs.Preconditionf("no process")
	}
	for _, t := range s.process.Threads() {
		if int(t.ID()) == threadID {
			if err := fn(t); err != nil {
				return errs.UserErrorf("step: %v", err)
			}
			return nil
		}
	}
	return errs.Protocolf("no such thread: %d", threadID)
}

// beforeResume resets the handle tree so handles issued in the prior stop
// epoch miss, per §3's HandleTree invariant and §8 property 3.
func (s *DebugSession) beforeResume() {
	s.varRefs.Reset()
	s.mu.Lock()
	s.frames = make(map[int32]lldbapi.Frame)
	s.mu.Unlock()
}

func (s *DebugSession) handleThreads(c lldbdap.Context, req *dap.ThreadsRequest, resp *dap.ThreadsResponse) error {
	resp.Body.Threads = []dap.Thread{}
	if s.process == nil {
		return nil
	}
	for _, t := range s.process.Threads() {
		resp.Body.Threads = append(resp.Body.Threads, dap.Thread{
			Id:   int(t.ID()),
			Name: fmt.Sprintf("%d: tid=%d", t.IndexID(), t.ID()),
		})
	}
	return nil
}

func (s *DebugSession) handleStackTrace(c lldbdap.Context, req *dap.StackTraceRequest, resp *dap.StackTraceResponse) error {
	if s.process == nil {
		return errs.Preconditionf("no process")
	}

	var thread lldbapi.Thread
	for _, t := range s.process.Threads() {
		if int(t.ID()) == req.Arguments.ThreadId {
			thread = t
			break
		}
	}
	if thread == nil {
		return errs.Protocolf("no such thread: %d", req.Arguments.ThreadId)
	}

	frames := thread.Frames()
	start := req.Arguments.StartFrame
	levels := req.Arguments.Levels
	if levels <= 0 {
		levels = len(frames) - start
	}

	out := make([]dap.StackFrame, 0, levels)
	for i := start; i < len(frames) && i < start+levels; i++ {
		f := frames[i]
		id := int32(i + 1)
		f.SetID(id)

		s.mu.Lock()
		s.frames[id] = f
		s.mu.Unlock()

		sf := dap.StackFrame{Id: int(id)}
		if name := f.FunctionName(); name != "" {
			sf.Name = name
		} else {
			sf.Name = fmt.Sprintf("0x%016x", f.PC())
		}

		if file, line, ok := f.LineEntry(); ok && s.inSource(file) {
			if local, mapped := s.sourceMap.Resolve("", file); mapped {
				sf.Source = &dap.Source{Path: local}
				sf.Line = int(line)
			}
		}
		if sf.Source == nil {
			sf.Source = &dap.Source{
				Name:             fmt.Sprintf("0x%016x", f.PC()),
				SourceReference:  int(f.PC()),
				PresentationHint: "deemphasize",
			}
			sf.Line = 1
			s.disasm.Put(f.PC(), f)
		}
		out = append(out, sf)
	}
	resp.Body.StackFrames = out
	resp.Body.TotalFrames = len(frames)
	return nil
}

func (s *DebugSession) inSource(file string) bool {
	if s.settings.ShowDisassembly == config.ShowDisassemblyNever {
		return true
	}
	if s.settings.ShowDisassembly == config.ShowDisassemblyAlways {
		return false
	}
	_, ok := s.sourceMap.Resolve("", file)
	return ok
}

func (s *DebugSession) handleScopes(c lldbdap.Context, req *dap.ScopesRequest, resp *dap.ScopesResponse) error {
	s.mu.Lock()
	f, ok := s.frames[int32(req.Arguments.FrameId)]
	s.mu.Unlock()
	if !ok {
		return errs.Protocolf("no such frame id: %d", req.Arguments.FrameId)
	}

	frameHandle := int64(req.Arguments.FrameId)
	mk := func(kind containerKind, name, key string) dap.Scope {
		ref := s.varRefs.Create(frameHandle, key, container{kind: kind, frame: f})
		return dap.Scope{Name: name, VariablesReference: int(ref)}
	}

	resp.Body.Scopes = []dap.Scope{
		mk(containerLocals, "Locals", "[locs]"),
		mk(containerStatics, "Statics", "[stat]"),
		mk(containerGlobals, "Globals", "[glob]"),
		mk(containerRegisters, "Registers", "[regs]"),
	}
	return nil
}

func (s *DebugSession) handleVariables(c lldbdap.Context, req *dap.VariablesRequest, resp *dap.VariablesResponse) error {
	v, ok := s.varRefs.Get(int64(req.Arguments.VariablesReference))
	if !ok {
		resp.Body.Variables = []dap.Variable{}
		return nil
	}
	cont := v.(container)
	ref := int64(req.Arguments.VariablesReference)

	switch cont.kind {
	case containerLocals:
		vars := cont.frame.Variables(lldbapi.ScopeArgsAndLocals)
		if t := cont.frame.Thread(); t != nil {
			if rv, ok := t.ReturnValue(); ok {
				vars = append([]lldbapi.Value{rv}, vars...)
			}
		}
		resp.Body.Variables = s.renderer.ConvertScopeValues(ref, "", vars)
	case containerStatics:
		vars := cont.frame.Variables(lldbapi.ScopeStatics)
		resp.Body.Variables = s.renderer.ConvertScopeValues(ref, "", vars)
	case containerGlobals:
		vars := cont.frame.Variables(lldbapi.ScopeGlobals)
		resp.Body.Variables = s.renderer.ConvertScopeValues(ref, "", vars)
	case containerRegisters:
		vars := cont.frame.Registers()
		resp.Body.Variables = s.renderer.ConvertScopeValues(ref, "", vars)
	case containerChild:
		children := make([]lldbapi.Value, 0, cont.value.NumChildren())
		for i := 0; i < cont.value.NumChildren(); i++ {
			children = append(children, cont.value.Child(i))
		}
		vars := s.renderer.ConvertScopeValues(ref, cont.value.Name(), children)
		if cont.value.IsSynthetic() {
			vars = append(vars, s.renderer.RawChild(ref, cont.value))
		}
		resp.Body.Variables = vars
	default:
		resp.Body.Variables = []dap.Variable{}
	}
	return nil
}

func (s *DebugSession) handleEvaluate(c lldbdap.Context, req *dap.EvaluateRequest, resp *dap.EvaluateResponse) error {
	s.mu.Lock()
	f, hasFrame := s.frames[int32(req.Arguments.FrameId)]
	s.mu.Unlock()

	if req.Arguments.Context == "repl" {
		return s.evaluateRepl(req, resp, f, hasFrame)
	}

	expr, format, hasFormat := ParseFormatSuffix(req.Arguments.Expression)
	body, kind := s.dispatcher.Classify(expr)

	var value string
	switch kind {
	case ExprNative:
		if !hasFrame {
			return errs.Preconditionf("no frame")
		}
		v, err := f.EvaluateExpression(body)
		if err != nil {
			return errs.UserErrorf("evaluate: %v", err)
		}
		fmtArg := lldbapi.FormatDefault
		if hasFormat {
			fmtArg = format
		}
		value = s.renderer.GetVarValueStr(v, fmtArg, v.NumChildren() > 0)
	case ExprScript:
		vars := map[string]string{}
		if hasFrame {
			vars = frameVariables(f)
		}
		result, err := s.interp.EvaluateExpression(body, vars)
		if err != nil {
			return errs.UserErrorf("evaluate: %v", err)
		}
		value = result
	default: // Simple
		vars := map[string]string{}
		if hasFrame {
			vars = frameVariables(f)
		}
		result, err := s.interp.EvaluateExpression(body, vars)
		if err != nil {
			return errs.UserErrorf("evaluate: %v", err)
		}
		value = result
	}

	resp.Body.Result = value
	return nil
}

func (s *DebugSession) evaluateRepl(req *dap.EvaluateRequest, resp *dap.EvaluateResponse, f lldbapi.Frame, hasFrame bool) error {
	if !hasFrame {
		return errs.Preconditionf("no frame")
	}

	expr := req.Arguments.Expression
	if len(expr) > 0 && expr[0] == '?' {
		v, err := f.EvaluateExpression(expr[1:])
		if err != nil {
			return errs.UserErrorf("evaluate: %v", err)
		}
		resp.Body.Result = s.renderer.GetVarValueStr(v, lldbapi.FormatDefault, v.NumChildren() > 0)
		return nil
	}

	output, ok := s.debugger.CommandInterpreter().HandleCommand(expr, f.CommandContext())
	resp.Body.Result = output
	if !ok {
		return errs.UserErrorf("command failed: %s", output)
	}
	return nil
}

func (s *DebugSession) handleSource(c lldbdap.Context, req *dap.SourceRequest, resp *dap.SourceResponse) error {
	if req.Arguments.SourceReference == 0 {
		return errs.Protocolf("no source reference")
	}

	addr := uint64(req.Arguments.SourceReference)
	text, found, err := s.disasm.Text(addr)
	if err != nil {
		return errs.Internalf("disassembling 0x%016x: %v", addr, err)
	}
	if !found {
		text = fmt.Sprintf("; disassembly for address 0x%016x unavailable without a live target", addr)
	}

	resp.Body.Content = text
	resp.Body.MimeType = "text/x-lldb.disassembly"
	return nil
}

func (s *DebugSession) handleDisplaySettings(c lldbdap.Context, req *lldbdap.DisplaySettingsRequest, resp *lldbdap.DisplaySettingsResponse) error {
	raw, _ := json.Marshal(req.Arguments)
	patch := config.ParseDisplaySettings(raw)

	s.mu.Lock()
	if patch.DisplayFormat != nil {
		s.settings.GlobalFormat = *patch.DisplayFormat
	}
	if patch.ShowDisassembly != nil {
		s.settings.ShowDisassembly = *patch.ShowDisassembly
	}
	if patch.DereferencePointers != nil {
		s.settings.DerefPointers = *patch.DereferencePointers
	}
	if patch.ContainerSummary != nil {
		s.settings.ContainerSummary = *patch.ContainerSummary
	}
	proc := s.process
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	thread := proc.SelectedThread()
	if thread == nil {
		return nil
	}

	// Force the IDE to refresh its variable views, per §4.6's displaySettings
	// design. This is a UX hack inherited from the source design; isolated
	// here so it can later become an explicit front-end-initiated refresh.
	c.C() <- &dap.ContinuedEvent{
		Event: dap.Event{Event: "continued"},
		Body:  dap.ContinuedEventBody{ThreadId: int(thread.ID())},
	}
	c.C() <- &dap.StoppedEvent{
		Event: dap.Event{Event: "stopped"},
		Body:  dap.StoppedEventBody{Reason: "unknown", ThreadId: int(thread.ID()), AllThreadsStopped: true},
	}
	return nil
}

func (s *DebugSession) runCommand(cmd string) {
	if s.debugger == nil {
		return
	}
	if tokens, err := shlex.Split(cmd); err == nil {
		s.log.WithField("tokens", tokens).Trace("running init/run command")
	}
	if _, ok := s.debugger.CommandInterpreter().HandleCommand(cmd, nil); !ok {
		s.log.WithField("command", cmd).Warn("init/run command failed")
	}
}

func mergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	out = append(out, base...)
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	return out
}

func remapFromPairs(pairs [][2]string) func(directory, filename string) string {
	return func(directory, filename string) string {
		for _, p := range pairs {
			if directory == p[0] {
				return p[1] + string(os.PathSeparator) + filename
			}
		}
		if directory == "" {
			return filename
		}
		return directory + string(os.PathSeparator) + filename
	}
}
