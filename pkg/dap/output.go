/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	"github.com/microsoft/dapserver/pkg/resiliency"
)

// OutputConfig contains configuration options for Output.
type OutputConfig struct {
	// Logger is the logger for the output. If nil, logging is disabled.
	Logger logr.Logger
}

// Output owns the outgoing byte stream and the outgoing sequence counter.
//
// Output is safe for concurrent use by multiple goroutines. The sequence number of an
// envelope is assigned and the envelope written while holding one lock, so sequence
// numbers in the stream always increase in the order the frames appear.
type Output struct {
	// mu guards everything below
	mu sync.Mutex

	writer *FrameWriter

	// seq is the sequence number of the last envelope written
	seq int

	// poisonErr is set when a send panicked while holding the lock
	poisonErr error

	log logr.Logger
}

// NewOutput creates an Output writing frames to w. The first envelope sent gets sequence number 1.
func NewOutput(w io.Writer, config OutputConfig) *Output {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Output{
		writer: NewFrameWriter(w),
		log:    log,
	}
}

// Send assigns the next sequence number to the payload and writes it to the stream.
//
// If the payload cannot be encoded, nothing is written, no sequence number is used and an
// ErrSerialization error is returned. If the sink panics, the output is poisoned: this and
// every later call return an ErrOutputPoisoned error.
func (o *Output) Send(payload Outgoing) (sendErr error) {
	if payload == nil {
		return fmt.Errorf("%w: nothing to send", ErrSerialization)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.poisonErr != nil {
		return fmt.Errorf("%w: %w", ErrOutputPoisoned, o.poisonErr)
	}

	defer func() {
		if panicVal := recover(); panicVal != nil {
			o.poisonErr = resiliency.MakePanicError(panicVal, o.log)
			sendErr = fmt.Errorf("%w: %w", ErrOutputPoisoned, o.poisonErr)
		}
	}()

	env := Envelope{Seq: o.seq + 1, Payload: payload}
	content, encodeErr := env.Encode()
	if encodeErr != nil {
		o.log.Error(encodeErr, "Could not encode outgoing message", "type", payload.Kind().String())
		return encodeErr
	}

	// The sequence number is used as soon as bytes may reach the stream.
	o.seq = env.Seq

	if writeErr := o.writer.WriteFrame(content); writeErr != nil {
		return writeErr
	}

	if o.log.V(1).Enabled() {
		o.log.V(1).Info("Sent message", "seq", env.Seq, "type", payload.Kind().String(), "length", len(content))
	}

	return nil
}

// Respond sends a response. Sending the empty response is an error; callers that may hold
// one should check IsEmpty first.
func (o *Output) Respond(resp *Response) error {
	return o.Send(resp)
}

// SendEvent sends an event.
func (o *Output) SendEvent(event dap.EventMessage) error {
	return o.Send(NewEvent(event))
}

// SendReverseRequest sends a request to the peer.
func (o *Output) SendReverseRequest(request dap.RequestMessage) error {
	return o.Send(NewReverseRequest(request))
}

// LastSeq returns the sequence number of the last envelope written, 0 if none.
func (o *Output) LastSeq() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq
}
