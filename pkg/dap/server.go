/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"context"
	"errors"
	"io"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// ServerConfig contains configuration options for Server.
type ServerConfig struct {
	// Logger is the logger for the server and its output. If nil, logging is disabled.
	Logger logr.Logger

	// SessionID identifies the server in log output. If empty, a random ID is generated.
	SessionID string
}

// Server reads requests from an input stream, hands them to an Adapter and writes the
// responses, events and reverse requests to an output stream.
type Server struct {
	reader  *FrameReader
	output  *Output
	context *serverContext
	exiting bool
	session string
	log     logr.Logger
}

// NewServer creates a server reading from input and writing to output.
// Opening and closing the streams is up to the caller.
//
// The server never takes bytes from input past the last request it handled (see
// NewFrameReader), so after Run returns the caller can keep reading input where the
// server stopped.
func NewServer(input io.Reader, output io.Writer, config ServerConfig) *Server {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	session := config.SessionID
	if session == "" {
		session = uuid.New().String()
	}
	log = log.WithValues("session", session)

	out := NewOutput(output, OutputConfig{Logger: log.WithName("output")})

	return &Server{
		reader:  NewFrameReader(input),
		output:  out,
		context: newServerContext(out),
		session: session,
		log:     log,
	}
}

// Output returns the shared output of the server. It can be used from any goroutine,
// including while Run is blocked reading the next request.
func (s *Server) Output() *Output {
	return s.output
}

// SessionID returns the ID the server uses in its log output.
func (s *Server) SessionID() string {
	return s.session
}

// Context returns the Context passed to the adapter.
func (s *Server) Context() Context {
	return s.context
}

// State returns the current position of the server in the frame grammar.
// It must not be called concurrently with Run or PollRequest.
func (s *Server) State() State {
	if s.exiting {
		return StateExiting
	}
	return s.reader.State()
}

// PollRequest reads the next request without dispatching it.
// It returns (nil, nil) when the input ends cleanly or the server is exiting.
func (s *Server) PollRequest() (*Request, error) {
	if s.exiting {
		return nil, nil
	}

	req, readErr := s.reader.ReadRequest()
	if errors.Is(readErr, io.EOF) {
		return nil, nil
	}
	if readErr != nil {
		return nil, readErr
	}

	return req, nil
}

// Run reads requests and dispatches them to the adapter until the input ends, the adapter
// requests an exit, ctx is cancelled, or an error occurs.
//
// Run returns nil when the input ends at a frame boundary or after an exit was requested.
// The exit flag is checked after each response is sent, so an exit requested outside of
// Accept (before Run, or by another goroutine) ends the loop after the next request.
// Framing, decoding and I/O errors stop the loop; the server never tries to resynchronize.
// Errors returned by the adapter are wrapped in an AdapterError.
//
// Cancellation of ctx is only observed between requests; a blocked read is not interrupted.
func (s *Server) Run(ctx context.Context, adapter Adapter) error {
	s.log.V(1).Info("Server loop starting")

	for {
		req, pollErr := s.PollRequest()
		if pollErr != nil {
			s.log.Error(pollErr, "Could not read request", "state", s.reader.State().String())
			return pollErr
		}
		if req == nil {
			s.log.V(1).Info("Input stream closed, server loop ending")
			return nil
		}

		s.log.V(1).Info("Received request", "seq", req.Seq, "command", req.CommandName())

		s.context.beginAccept()
		resp, acceptErr := adapter.Accept(req, s.context)
		s.context.endAccept()
		if acceptErr != nil {
			s.log.Error(acceptErr, "Adapter failed to handle request", "seq", req.Seq, "command", req.CommandName())
			return &AdapterError{Err: acceptErr}
		}

		if resp.IsEmpty() {
			s.log.V(1).Info("Response suppressed", "seq", req.Seq, "command", req.CommandName())
		} else if respondErr := s.output.Respond(resp); respondErr != nil {
			s.log.Error(respondErr, "Could not send response", "seq", req.Seq, "command", req.CommandName())
			return respondErr
		}

		if s.context.ExitRequested() {
			s.exiting = true
			s.log.Info("Exit requested, server loop ending", "seq", req.Seq, "command", req.CommandName())
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			s.log.V(1).Info("Context done, server loop ending")
			return ctxErr
		}
	}
}
