// Package session implements the debug session: the stateful mediator
// between a DAP front-end and a native debugger engine.
package session

import (
	"strings"
	"sync"

	"github.com/google/go-dap"

	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
	"github.com/lldb-tools/lldb-dap/internal/script"
)

// BreakpointKind tags what a BreakpointInfo was created from.
type BreakpointKind int

const (
	BreakpointSource BreakpointKind = iota
	BreakpointFunction
	BreakpointAssembly
)

// BreakpointInfo is the registry's own record for one engine breakpoint,
// independent of where it's indexed from (source line, function name, or
// assembly address).
type BreakpointInfo struct {
	ID           int32
	Kind         BreakpointKind
	Condition    string
	LogMessage   string
	IgnoreCount  uint32
	ResolvedLine uint32
	Locations    int
}

// BreakpointRegistry reconciles the front-end's declarative breakpoint
// lists against the engine's imperative create/delete/set-condition API.
// Request handlers and the event pump's Release calls run on separate
// goroutines; the mutex serializes every read and mutation between them.
type BreakpointRegistry struct {
	mu sync.Mutex

	byFile map[string]map[int]int32 // file -> line -> engine breakpoint id
	byFunc map[string]int32         // name-or-/re-pattern -> engine breakpoint id
	byAddr map[uint64]int32         // disassembly address -> engine breakpoint id

	infos map[int32]*BreakpointInfo

	target lldbapi.Target
	interp *script.Interpreter
	disp   *ExpressionDispatcher
}

// NewBreakpointRegistry builds an empty registry bound to a target. It is
// recreated whenever the target is recreated (a new launch/attach).
func NewBreakpointRegistry(target lldbapi.Target, interp *script.Interpreter, disp *ExpressionDispatcher) *BreakpointRegistry {
	return &BreakpointRegistry{
		byFile: make(map[string]map[int]int32),
		byFunc: make(map[string]int32),
		byAddr: make(map[uint64]int32),
		infos:  make(map[int32]*BreakpointInfo),
		target: target,
		interp: interp,
		disp:   disp,
	}
}

// SetSourceBreakpoints reconciles the breakpoint set for one source file
// against the requested lines, returning one dap.Breakpoint per requested
// entry in the same order.
func (r *BreakpointRegistry) SetSourceBreakpoints(file string, reqs []dap.SourceBreakpoint) []dap.Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[int]dap.SourceBreakpoint, len(reqs))
	for _, req := range reqs {
		wanted[req.Line] = req
	}

	existing := r.byFile[file]
	for line, id := range existing {
		if _, ok := wanted[line]; !ok {
			r.deleteLocked(id)
			delete(existing, line)
		}
	}

	if existing == nil {
		existing = make(map[int]int32)
		r.byFile[file] = existing
	}

	out := make([]dap.Breakpoint, 0, len(reqs))
	for _, req := range reqs {
		id, ok := existing[req.Line]
		var info *BreakpointInfo
		if !ok {
			bp := r.target.BreakpointCreateByLocation(file, uint32(req.Line))
			id = bp.ID()
			existing[req.Line] = id

			var resolvedLine uint32
			locs := bp.Locations()
			for _, loc := range locs {
				lf, line, has := loc.LineEntry()
				if !has || lf != file {
					loc.Enable(false)
					continue
				}
				if resolvedLine == 0 {
					resolvedLine = line
				}
			}

			info = &BreakpointInfo{ID: id, Kind: BreakpointSource, ResolvedLine: resolvedLine, Locations: len(locs)}
			r.infos[id] = info
		} else {
			info = r.infos[id]
		}

		info.Condition = req.Condition
		info.LogMessage = req.LogMessage
		r.initBPActions(id, info)

		bp := dap.Breakpoint{Id: int(id)}
		if info.ResolvedLine > 0 {
			bp.Verified = true
			bp.Line = int(info.ResolvedLine)
			bp.Source = &dap.Source{Path: file}
		} else {
			bp.Line = req.Line
		}
		out = append(out, bp)
	}
	return out
}

// SetFunctionBreakpoints reconciles against a requested function-name (or
// "/re " regex) list, mirroring SetSourceBreakpoints.
func (r *BreakpointRegistry) SetFunctionBreakpoints(reqs []dap.FunctionBreakpoint) []dap.Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]dap.FunctionBreakpoint, len(reqs))
	for _, req := range reqs {
		wanted[req.Name] = req
	}

	for name, id := range r.byFunc {
		if _, ok := wanted[name]; !ok {
			r.deleteLocked(id)
			delete(r.byFunc, name)
		}
	}

	out := make([]dap.Breakpoint, 0, len(reqs))
	for _, req := range reqs {
		id, ok := r.byFunc[req.Name]
		var info *BreakpointInfo
		if !ok {
			isRegex := strings.HasPrefix(req.Name, "/re ")
			name := strings.TrimPrefix(req.Name, "/re ")
			bp := r.target.BreakpointCreateByName(name, isRegex)
			id = bp.ID()
			r.byFunc[req.Name] = id

			info = &BreakpointInfo{ID: id, Kind: BreakpointFunction, Locations: len(bp.Locations())}
			r.infos[id] = info
		} else {
			info = r.infos[id]
		}

		info.Condition = req.Condition
		r.initBPActions(id, info)

		out = append(out, dap.Breakpoint{Id: int(id), Verified: info.Locations > 0})
	}
	return out
}

// SetAssemblyBreakpoint reconciles a single disassembly-handle breakpoint
// keyed by engine address, per the §4.6C assembly-breakpoint design.
func (r *BreakpointRegistry) SetAssemblyBreakpoint(addr uint64, condition string) dap.Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byAddr[addr]
	var info *BreakpointInfo
	if !ok {
		bp := r.target.BreakpointCreateByAddress(addr)
		id = bp.ID()
		r.byAddr[addr] = id
		info = &BreakpointInfo{ID: id, Kind: BreakpointAssembly, Locations: len(bp.Locations())}
		r.infos[id] = info
	} else {
		info = r.infos[id]
	}

	info.Condition = condition
	r.initBPActions(id, info)

	return dap.Breakpoint{Id: int(id), Verified: info.Locations > 0}
}

// initBPActions installs the breakpoint's condition per the native/simple
// dispatch rule in §4.2: native conditions are handed to the engine
// directly, everything else becomes a callback run through the embedded
// interpreter.
func (r *BreakpointRegistry) initBPActions(id int32, info *BreakpointInfo) {
	bp, ok := r.target.FindBreakpointByID(id)
	if !ok {
		return
	}

	bp.SetIgnoreCount(info.IgnoreCount)

	if info.Condition == "" {
		bp.SetCondition("")
		bp.SetCallback(nil)
		return
	}

	expr, kind := r.disp.Classify(info.Condition)
	if kind == ExprNative {
		bp.SetCondition(expr)
		bp.SetCallback(nil)
		return
	}

	bp.SetCondition("")
	interp := r.interp
	bp.SetCallback(func(hit lldbapi.BreakpointHit) bool {
		vars := frameVariables(hit.Frame())
		stop, err := interp.EvaluateCondition(expr, vars)
		if err != nil {
			return true
		}
		return stop
	})
}

func (r *BreakpointRegistry) deleteLocked(id int32) {
	r.target.BreakpointDelete(id)
	delete(r.infos, id)
}

// Info returns the registry's bookkeeping record for an engine breakpoint
// id.
func (r *BreakpointRegistry) Info(id int32) (*BreakpointInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.infos[id]
	return info, ok
}

// Release clears the callback for a breakpoint the engine reports as
// removed, so any captured closure state can be collected.
func (r *BreakpointRegistry) Release(id int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.infos, id)
	if bp, ok := r.target.FindBreakpointByID(id); ok {
		bp.SetCallback(nil)
	}
}

func frameVariables(f lldbapi.Frame) map[string]string {
	vars := make(map[string]string)
	for _, v := range f.Variables(lldbapi.ScopeArgsAndLocals) {
		if s, ok := v.ValueString(); ok {
			vars[v.Name()] = s
		}
	}
	return vars
}
