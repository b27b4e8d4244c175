package main

import "github.com/lldb-tools/lldb-dap/internal/lldbapi"

// newRealDebugger is the integration seam between this core and the
// concrete LLDB bindings. The binding layer is out of this module's scope
// (see internal/lldbapi's package doc): a production build links this
// symbol against a cgo/SWIG wrapper around liblldb that satisfies
// lldbapi.Debugger and friends. Without that binding present, the adapter
// can still be exercised end-to-end against a fake lldbapi.Debugger in
// tests.
func newRealDebugger() lldbapi.Debugger {
	panic("lldb-dap: no LLDB binding linked into this build")
}
