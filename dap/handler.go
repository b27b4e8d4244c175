package dap

import (
	"context"
	"reflect"

	"github.com/google/go-dap"
	"github.com/pkg/errors"
)

// Context is threaded through every handler: it carries cancellation, the
// outbound message channel, and the ability to spawn further session-owned
// goroutines (event translation, deferred responders).
type Context interface {
	context.Context
	C() chan<- dap.Message
	Go(f func(c Context)) bool
	// Request sends a reverse request to the front-end and blocks until the
	// matching response arrives (or the context is canceled).
	Request(req dap.RequestMessage) dap.ResponseMessage
}

type dispatchContext struct {
	context.Context
	srv *Server
	ch  chan<- dap.Message
}

func (c *dispatchContext) C() chan<- dap.Message {
	return c.ch
}

func (c *dispatchContext) Go(f func(c Context)) bool {
	return c.srv.Go(f)
}

func (c *dispatchContext) Request(req dap.RequestMessage) dap.ResponseMessage {
	done := make(chan dap.ResponseMessage, 1)
	c.srv.doRequest(c, req, func(c Context, resp dap.ResponseMessage) {
		done <- resp
	})
	select {
	case resp := <-done:
		return resp
	case <-c.Done():
		r := &dap.Response{}
		r.Success = false
		r.Message = context.Cause(c).Error()
		return r
	}
}

// HandlerFunc adapts a (Context, Req, Resp) function into something the
// Server's dispatch loop can invoke uniformly regardless of request type.
type HandlerFunc[Req dap.RequestMessage, Resp dap.ResponseMessage] func(c Context, req Req, resp Resp) error

// Do allocates a zero-valued response of the right concrete type and runs
// the handler against it. Returns "Not implemented." if the handler is nil,
// matching the DAP convention for requests this core doesn't support.
func (h HandlerFunc[Req, Resp]) Do(c Context, req Req) (resp Resp, err error) {
	if h == nil {
		return resp, errors.New("Not implemented.")
	}

	respT := reflect.TypeFor[Resp]()
	rv := reflect.New(respT.Elem())
	resp = rv.Interface().(Resp)
	err = h(c, req, resp)
	return resp, err
}

// Handler is the full set of DAP requests this adapter answers. Fields left
// nil respond with "Not implemented.", per the request-dispatch contract.
type Handler struct {
	Initialize              HandlerFunc[*dap.InitializeRequest, *dap.InitializeResponse]
	Launch                  HandlerFunc[*dap.LaunchRequest, *dap.LaunchResponse]
	Attach                  HandlerFunc[*dap.AttachRequest, *dap.AttachResponse]
	SetBreakpoints          HandlerFunc[*dap.SetBreakpointsRequest, *dap.SetBreakpointsResponse]
	SetFunctionBreakpoints  HandlerFunc[*dap.SetFunctionBreakpointsRequest, *dap.SetFunctionBreakpointsResponse]
	SetExceptionBreakpoints HandlerFunc[*dap.SetExceptionBreakpointsRequest, *dap.SetExceptionBreakpointsResponse]
	ConfigurationDone       HandlerFunc[*dap.ConfigurationDoneRequest, *dap.ConfigurationDoneResponse]
	Disconnect              HandlerFunc[*dap.DisconnectRequest, *dap.DisconnectResponse]
	Pause                   HandlerFunc[*dap.PauseRequest, *dap.PauseResponse]
	Continue                HandlerFunc[*dap.ContinueRequest, *dap.ContinueResponse]
	Next                    HandlerFunc[*dap.NextRequest, *dap.NextResponse]
	StepIn                  HandlerFunc[*dap.StepInRequest, *dap.StepInResponse]
	StepOut                 HandlerFunc[*dap.StepOutRequest, *dap.StepOutResponse]
	Threads                 HandlerFunc[*dap.ThreadsRequest, *dap.ThreadsResponse]
	StackTrace              HandlerFunc[*dap.StackTraceRequest, *dap.StackTraceResponse]
	Scopes                  HandlerFunc[*dap.ScopesRequest, *dap.ScopesResponse]
	Variables               HandlerFunc[*dap.VariablesRequest, *dap.VariablesResponse]
	Evaluate                HandlerFunc[*dap.EvaluateRequest, *dap.EvaluateResponse]
	Source                  HandlerFunc[*dap.SourceRequest, *dap.SourceResponse]
	DisplaySettings         HandlerFunc[*DisplaySettingsRequest, *DisplaySettingsResponse]
}
