/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/go-dap"
)

// Kind identifies which of the outgoing message shapes a payload is.
type Kind int

const (
	// KindResponse is a response to a request received from the peer.
	KindResponse Kind = iota
	// KindEvent is an unsolicited notification.
	KindEvent
	// KindReverseRequest is a request issued by this side to the peer.
	KindReverseRequest
)

// String returns the value of the "type" field used on the wire for the kind.
func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	case KindReverseRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Outgoing is a payload that can be sent to the peer.
// The set of implementations is closed: *Response, Event and ReverseRequest.
type Outgoing interface {
	// Kind reports the shape of the payload.
	Kind() Kind

	// stamped returns a copy of the underlying protocol message carrying the given
	// sequence number. The caller's message is never modified.
	stamped(seq int) (dap.Message, error)
}

// Event is an outgoing event payload.
type Event struct {
	Message dap.EventMessage
}

// NewEvent wraps a protocol event for sending.
func NewEvent(msg dap.EventMessage) Event {
	return Event{Message: msg}
}

func (Event) Kind() Kind {
	return KindEvent
}

func (e Event) stamped(seq int) (dap.Message, error) {
	if isNilMessage(e.Message) {
		return nil, fmt.Errorf("%w: event has no message", ErrSerialization)
	}

	msg := cloneMessage(e.Message)
	header := msg.GetEvent()
	if header.Event == "" {
		return nil, fmt.Errorf("%w: %T has no event name", ErrSerialization, e.Message)
	}
	header.Seq = seq
	header.Type = KindEvent.String()
	return msg, nil
}

// ReverseRequest is a request sent from this side to the peer, e.g. runInTerminal.
type ReverseRequest struct {
	Message dap.RequestMessage
}

// NewReverseRequest wraps a protocol request for sending to the peer.
func NewReverseRequest(msg dap.RequestMessage) ReverseRequest {
	return ReverseRequest{Message: msg}
}

func (ReverseRequest) Kind() Kind {
	return KindReverseRequest
}

func (r ReverseRequest) stamped(seq int) (dap.Message, error) {
	if isNilMessage(r.Message) {
		return nil, fmt.Errorf("%w: reverse request has no message", ErrSerialization)
	}

	msg := cloneMessage(r.Message)
	header := msg.GetRequest()
	if header.Command == "" {
		return nil, fmt.Errorf("%w: %T has no command", ErrSerialization, r.Message)
	}
	header.Seq = seq
	header.Type = KindReverseRequest.String()
	return msg, nil
}

// Envelope is a payload together with the sequence number it is transmitted with.
// Envelopes are built by Output at the moment of transmission.
type Envelope struct {
	Seq     int
	Payload Outgoing
}

// Encode serializes the envelope to compact JSON of the form {"seq": N, "type": ..., ...}.
//
// The encoded message is checked against the protocol catalog: its tag must decode back
// to the same message type, so an unknown event name, a reverse request with an unknown
// command, or a body whose type does not match its command are all rejected.
func (e Envelope) Encode() ([]byte, error) {
	if e.Seq <= 0 {
		return nil, fmt.Errorf("%w: sequence number must be positive, got %d", ErrSerialization, e.Seq)
	}
	if e.Payload == nil {
		return nil, fmt.Errorf("%w: envelope has no payload", ErrSerialization)
	}

	msg, stampErr := e.Payload.stamped(e.Seq)
	if stampErr != nil {
		return nil, stampErr
	}

	data, marshalErr := marshalCompact(msg)
	if marshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, marshalErr)
	}

	if checkErr := checkCatalogShape(msg, data); checkErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, checkErr)
	}

	return data, nil
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return e.Encode()
}

// DecodeEnvelope parses a message previously produced by Envelope.Encode (or sent by a peer
// following the same protocol) back into an envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	msg, decodeErr := dap.DecodeProtocolMessage(data)
	if decodeErr != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrDeserialization, decodeErr)
	}

	switch m := msg.(type) {
	case dap.ResponseMessage:
		header := m.GetResponse()
		return Envelope{
			Seq: header.Seq,
			Payload: &Response{
				RequestSeq: header.RequestSeq,
				Command:    header.Command,
				Success:    header.Success,
				Message:    parseResponseMessage(header.Message),
				Body:       m,
			},
		}, nil

	case dap.EventMessage:
		return Envelope{Seq: m.GetSeq(), Payload: NewEvent(m)}, nil

	case dap.RequestMessage:
		return Envelope{Seq: m.GetSeq(), Payload: NewReverseRequest(m)}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: unexpected message %T", ErrDeserialization, msg)
	}
}

var errShapeMismatch = errors.New("message tag does not match message type")

// checkCatalogShape decodes data through the protocol catalog and verifies that the
// result has the same type as msg.
func checkCatalogShape(msg dap.Message, data []byte) error {
	switch m := msg.(type) {
	case *dap.Response:
		// Body-less response built without a catalog type; nothing to compare against.
		return nil
	case dap.ResponseMessage:
		if !m.GetResponse().Success {
			// The catalog decodes every failed response as an ErrorResponse.
			return nil
		}
	}

	decoded, decodeErr := dap.DecodeProtocolMessage(data)
	if decodeErr != nil {
		return decodeErr
	}

	if reflect.TypeOf(decoded) != reflect.TypeOf(msg) {
		return fmt.Errorf("%w: %T is tagged as %T", errShapeMismatch, msg, decoded)
	}

	return nil
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if encodeErr := enc.Encode(v); encodeErr != nil {
		return nil, encodeErr
	}

	// Encoder always terminates the value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// cloneMessage returns a shallow copy of a protocol message so that header fields
// can be stamped without touching the caller's value.
func cloneMessage[T dap.Message](msg T) T {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return msg
	}

	clone := reflect.New(v.Elem().Type())
	clone.Elem().Set(v.Elem())
	return clone.Interface().(T)
}

func isNilMessage(msg dap.Message) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
