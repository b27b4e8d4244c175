// Package script wraps the embedded script interpreter used for Script
// (/py) expressions and for Script/Simple conditional-breakpoint callbacks.
// It is backed by gopher-lua, a pure-Go Lua 5.1 VM, standing in for the
// Python interpreter the original engine embeds: the session only needs
// "evaluate this string against a set of named values and get a result or
// a truthiness verdict back", and the interpreter choice is an
// implementation detail of this binding.
package script

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// Interpreter is a single embedded-script VM, owned by one DebugSession.
// All access is serialized: conditional-breakpoint callbacks run on engine
// threads and must not race the REPL's own evaluate calls.
type Interpreter struct {
	mu sync.Mutex
	ls *lua.LState
}

// New creates a fresh interpreter instance.
func New() *Interpreter {
	return &Interpreter{ls: lua.NewState()}
}

// Close releases the underlying VM.
func (i *Interpreter) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ls.Close()
}

// EvaluateCondition runs expr with vars bound as globals and returns whether
// the breakpoint should actually stop the program. Per the fail-safe
// default in the breakpoint-condition design, an evaluation error counts as
// true (stop), so the user can inspect the faulty condition.
func (i *Interpreter) EvaluateCondition(expr string, vars map[string]string) (stop bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.bindGlobals(vars)
	if err := i.ls.DoString("__cond_result = (" + expr + ")"); err != nil {
		return true, errors.Wrap(err, "condition evaluation failed")
	}

	v := i.ls.GetGlobal("__cond_result")
	i.ls.SetGlobal("__cond_result", lua.LNil)
	return truthy(v), nil
}

// EvaluateExpression runs expr with vars bound as globals and returns its
// string rendering, used for Script-classified evaluate requests.
func (i *Interpreter) EvaluateExpression(expr string, vars map[string]string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.bindGlobals(vars)
	if err := i.ls.DoString("__expr_result = tostring(" + expr + ")"); err != nil {
		return "", errors.Wrap(err, "expression evaluation failed")
	}

	v := i.ls.GetGlobal("__expr_result")
	i.ls.SetGlobal("__expr_result", lua.LNil)
	return lua.LVAsString(v), nil
}

// NotifyModulesLoaded calls the script-defined on_modules_loaded(names)
// hook, if one exists, with the names flushed from a stop's deferred
// module-load queue. A script that never defines the hook pays nothing.
func (i *Interpreter) NotifyModulesLoaded(names []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	fn := i.ls.GetGlobal("on_modules_loaded")
	if fn.Type() != lua.LTFunction {
		return nil
	}

	tbl := i.ls.NewTable()
	for _, name := range names {
		tbl.Append(lua.LString(name))
	}
	return i.ls.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl)
}

// bindGlobals binds each value that parses as a number as a Lua number, so
// conditions can compare it numerically; every other value is a Lua string.
func (i *Interpreter) bindGlobals(vars map[string]string) {
	for name, value := range vars {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			i.ls.SetGlobal(name, lua.LNumber(n))
			continue
		}
		i.ls.SetGlobal(name, lua.LString(value))
	}
}

func truthy(v lua.LValue) bool {
	switch v.Type() {
	case lua.LTNil:
		return false
	case lua.LTBool:
		return bool(v.(lua.LBool))
	case lua.LTNumber:
		return float64(v.(lua.LNumber)) != 0
	default:
		return true
	}
}
