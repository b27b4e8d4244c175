package session

import (
	"testing"

	"github.com/google/go-dap"

	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
	"github.com/lldb-tools/lldb-dap/internal/script"
)

type fakeLocation struct {
	file string
	line uint32
}

func (l *fakeLocation) IsResolved() bool { return true }
func (l *fakeLocation) Enable(enabled bool) {}
func (l *fakeLocation) Address() uint64 { return 0 }
func (l *fakeLocation) LineEntry() (string, uint32, bool) { return l.file, l.line, true }

type fakeBreakpoint struct {
	id        int32
	locations []lldbapi.BreakpointLocation
	condition string
	callback  lldbapi.BreakpointCallback
	ignore    uint32
}

func (b *fakeBreakpoint) ID() int32                                  { return b.id }
func (b *fakeBreakpoint) SetCondition(expr string)                   { b.condition = expr }
func (b *fakeBreakpoint) SetCallback(cb lldbapi.BreakpointCallback)   { b.callback = cb }
func (b *fakeBreakpoint) SetIgnoreCount(n uint32)                     { b.ignore = n }
func (b *fakeBreakpoint) Locations() []lldbapi.BreakpointLocation     { return b.locations }

type fakeTarget struct {
	nextID      int32
	breakpoints map[int32]*fakeBreakpoint
	deleted     []int32
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{breakpoints: make(map[int32]*fakeBreakpoint)}
}

func (t *fakeTarget) Launch(info lldbapi.LaunchInfo) (lldbapi.Process, error) { return nil, nil }
func (t *fakeTarget) Attach(info lldbapi.AttachInfo) (lldbapi.Process, error) { return nil, nil }

func (t *fakeTarget) BreakpointCreateByLocation(file string, line uint32) lldbapi.Breakpoint {
	t.nextID++
	bp := &fakeBreakpoint{id: t.nextID, locations: []lldbapi.BreakpointLocation{&fakeLocation{file: file, line: line}}}
	t.breakpoints[bp.id] = bp
	return bp
}

func (t *fakeTarget) BreakpointCreateByName(nameOrRegex string, isRegex bool) lldbapi.Breakpoint {
	t.nextID++
	bp := &fakeBreakpoint{id: t.nextID, locations: []lldbapi.BreakpointLocation{&fakeLocation{}}}
	t.breakpoints[bp.id] = bp
	return bp
}

func (t *fakeTarget) BreakpointCreateByAddress(addr uint64) lldbapi.Breakpoint {
	t.nextID++
	bp := &fakeBreakpoint{id: t.nextID, locations: []lldbapi.BreakpointLocation{&fakeLocation{}}}
	t.breakpoints[bp.id] = bp
	return bp
}

func (t *fakeTarget) BreakpointDelete(id int32) {
	t.deleted = append(t.deleted, id)
	delete(t.breakpoints, id)
}

func (t *fakeTarget) FindBreakpointByID(id int32) (lldbapi.Breakpoint, bool) {
	bp, ok := t.breakpoints[id]
	return bp, ok
}

func (t *fakeTarget) Broadcaster() lldbapi.Broadcaster { return nil }
func (t *fakeTarget) EvaluateExpression(expr string) (lldbapi.Value, error) { return nil, nil }

func TestSetSourceBreakpointsReconciles(t *testing.T) {
	target := newFakeTarget()
	reg := NewBreakpointRegistry(target, script.New(), NewExpressionDispatcher())

	first := reg.SetSourceBreakpoints("f.c", []dap.SourceBreakpoint{{Line: 10}, {Line: 20}})
	if len(first) != 2 {
		t.Fatalf("expected 2 breakpoints, got %d", len(first))
	}
	b10, b20 := first[0].Id, first[1].Id

	second := reg.SetSourceBreakpoints("f.c", []dap.SourceBreakpoint{{Line: 10}, {Line: 30}})
	if len(second) != 2 {
		t.Fatalf("expected 2 breakpoints, got %d", len(second))
	}
	if second[0].Id != b10 {
		t.Errorf("line 10 breakpoint id changed: got %d, want %d", second[0].Id, b10)
	}

	found := false
	for _, id := range target.deleted {
		if id == int32(b20) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected breakpoint %d to be deleted, deleted=%v", b20, target.deleted)
	}

	if len(reg.byFile["f.c"]) != 2 {
		t.Errorf("registry key set for f.c has %d entries, want 2", len(reg.byFile["f.c"]))
	}
}

func TestSetFunctionBreakpointsVerified(t *testing.T) {
	target := newFakeTarget()
	reg := NewBreakpointRegistry(target, script.New(), NewExpressionDispatcher())

	out := reg.SetFunctionBreakpoints([]dap.FunctionBreakpoint{{Name: "main"}})
	if len(out) != 1 || !out[0].Verified {
		t.Fatalf("expected one verified breakpoint, got %+v", out)
	}
}
