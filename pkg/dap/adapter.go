/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"sync"

	"github.com/google/go-dap"
)

// Adapter answers the requests received by a Server.
//
// Accept is called once per request, strictly one request at a time and in arrival order,
// on the goroutine running Server.Run. For every request it must return a response whose
// RequestSeq matches req.Seq, or EmptyResponse() if the answer will be sent later through
// the Context. Request-level failures belong in a failed response (see MakeError); a
// returned error ends the server loop.
type Adapter interface {
	Accept(req *Request, ctx Context) (*Response, error)
}

// AdapterFunc lets an ordinary function act as an Adapter.
type AdapterFunc func(req *Request, ctx Context) (*Response, error)

// Accept calls f(req, ctx).
func (f AdapterFunc) Accept(req *Request, ctx Context) (*Response, error) {
	return f(req, ctx)
}

// Context is handed to the adapter for sending messages outside of the request/response
// flow and for asking the server to stop.
//
// A Context is safe for concurrent use and may be kept after Accept returns, e.g. by a
// goroutine that reports progress for a long running request.
type Context interface {
	// SendEvent sends an event to the peer.
	SendEvent(event dap.EventMessage) error

	// SendReverseRequest sends a request (e.g. runInTerminal) to the peer.
	SendReverseRequest(request dap.RequestMessage) error

	// RequestExit asks the server to stop once the current Accept returns
	// and its response has been sent.
	// Sending a terminated event before exiting is recommended.
	RequestExit()

	// CancelExit clears an exit requested during the current Accept call.
	// An exit requested before the call began, including one requested by another
	// goroutine while the server waited for input, is never retracted.
	CancelExit()

	// ExitRequested reports whether an exit has been requested.
	ExitRequested() bool
}

// serverContext is the Context implementation used by Server.
type serverContext struct {
	output *Output

	// mu guards the exit state below
	mu sync.Mutex

	exitRequested bool

	// inAccept is true while the adapter handles a request
	inAccept bool

	// exitPending records whether an exit was already requested when the current Accept began
	exitPending bool
}

func newServerContext(output *Output) *serverContext {
	return &serverContext{output: output}
}

func (c *serverContext) SendEvent(event dap.EventMessage) error {
	return c.output.SendEvent(event)
}

func (c *serverContext) SendReverseRequest(request dap.RequestMessage) error {
	return c.output.SendReverseRequest(request)
}

func (c *serverContext) RequestExit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitRequested = true
}

// CancelExit only retracts an exit requested during the Accept call in progress.
// Outside of Accept it does nothing.
func (c *serverContext) CancelExit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inAccept && !c.exitPending {
		c.exitRequested = false
	}
}

func (c *serverContext) ExitRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitRequested
}

// beginAccept latches the exit state seen before the adapter is called.
func (c *serverContext) beginAccept() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inAccept = true
	c.exitPending = c.exitRequested
}

func (c *serverContext) endAccept() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inAccept = false
	c.exitPending = false
}

var _ Context = (*serverContext)(nil)
