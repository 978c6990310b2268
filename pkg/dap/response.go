/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/go-dap"
)

const cancelledMessage = "cancelled"

// ResponseMessage is the short message of a response: either the request was cancelled,
// or it failed with a short error string.
type ResponseMessage struct {
	cancelled bool
	text      string
}

// Cancelled returns the message used for responses to cancelled requests.
func Cancelled() *ResponseMessage {
	return &ResponseMessage{cancelled: true}
}

// ShortError returns a message carrying the raw error in short form.
// Clients may interpret it but do not show it in the UI.
func ShortError(text string) *ResponseMessage {
	return &ResponseMessage{text: text}
}

// IsCancelled returns true if the message signals a cancelled request.
func (m *ResponseMessage) IsCancelled() bool {
	return m != nil && m.cancelled
}

// String returns the value of the "message" field on the wire.
func (m *ResponseMessage) String() string {
	switch {
	case m == nil:
		return ""
	case m.cancelled:
		return cancelledMessage
	default:
		return m.text
	}
}

func parseResponseMessage(s string) *ResponseMessage {
	switch s {
	case "":
		return nil
	case cancelledMessage:
		return Cancelled()
	default:
		return ShortError(s)
	}
}

// Response answers a request received from the peer.
//
// Body holds the protocol response for the request's command, e.g. *dap.ThreadsResponse.
// The header fields of Body (seq, type, request_seq, success, message) are ignored and
// replaced with the values of the Response when it is sent.
type Response struct {
	RequestSeq int
	Command    string
	Success    bool
	Message    *ResponseMessage
	Body       dap.ResponseMessage

	empty bool
}

// EmptyResponse returns the sentinel response that tells the server not to transmit
// anything for the current request. Adapters use it when the answer is sent later,
// out of band.
func EmptyResponse() *Response {
	return &Response{empty: true}
}

// IsEmpty returns true for the response returned by EmptyResponse.
func (r *Response) IsEmpty() bool {
	return r == nil || r.empty
}

func (*Response) Kind() Kind {
	return KindResponse
}

func (r *Response) stamped(seq int) (dap.Message, error) {
	if r.IsEmpty() {
		return nil, fmt.Errorf("%w: the empty response is never transmitted", ErrSerialization)
	}

	var msg dap.ResponseMessage
	if isNilMessage(r.Body) {
		msg = &dap.Response{}
	} else {
		msg = cloneMessage(r.Body)
	}

	header := msg.GetResponse()
	switch {
	case header.Command == "":
		header.Command = r.Command
	case r.Command != "" && header.Command != r.Command:
		return nil, fmt.Errorf("%w: response for '%s' carries a '%s' body", ErrSerialization, r.Command, header.Command)
	}
	if header.Command == "" {
		return nil, fmt.Errorf("%w: response to request %d has no command", ErrSerialization, r.RequestSeq)
	}

	header.Seq = seq
	header.Type = KindResponse.String()
	header.RequestSeq = r.RequestSeq
	header.Success = r.Success
	header.Message = r.Message.String()
	return msg, nil
}

// MakeAck returns a successful response without a body for the request.
// It fails with ErrResponseConstruct if responses to the request's command carry a body,
// or if the command is not part of the protocol.
func MakeAck(req *Request) (*Response, error) {
	command := req.CommandName()
	ack, lookupErr := catalogResponse(command)
	if lookupErr != nil {
		return nil, lookupErr
	}

	if hasBody(ack) {
		return nil, fmt.Errorf("%w: responses to '%s' require a body", ErrResponseConstruct, command)
	}

	return &Response{
		RequestSeq: req.Seq,
		Command:    command,
		Success:    true,
		Body:       ack,
	}, nil
}

// MakeSuccess returns a successful response for the request with the given body.
// The body must be the protocol response type for the request's command.
func MakeSuccess(req *Request, body dap.ResponseMessage) (*Response, error) {
	command := req.CommandName()
	if isNilMessage(body) {
		return nil, fmt.Errorf("%w: no body given for '%s' response", ErrResponseConstruct, command)
	}

	expected, lookupErr := catalogResponse(command)
	if lookupErr != nil {
		return nil, lookupErr
	}

	if reflect.TypeOf(body) != reflect.TypeOf(expected) {
		return nil, fmt.Errorf("%w: '%s' responses use %T, not %T", ErrResponseConstruct, command, expected, body)
	}

	return &Response{
		RequestSeq: req.Seq,
		Command:    command,
		Success:    true,
		Body:       body,
	}, nil
}

// MakeError returns a failed response for the request carrying a short error message.
func MakeError(req *Request, message string) *Response {
	return &Response{
		RequestSeq: req.Seq,
		Command:    req.CommandName(),
		Success:    false,
		Message:    ShortError(message),
		Body:       &dap.ErrorResponse{},
	}
}

// MakeErrorWithDetails returns a failed response whose body carries a structured error
// that the client can show to the user.
func MakeErrorWithDetails(req *Request, details dap.ErrorMessage) *Response {
	resp := MakeError(req, details.Format)
	resp.Body = &dap.ErrorResponse{
		Body: dap.ErrorResponseBody{Error: &details},
	}
	return resp
}

// MakeCancelled returns a failed response signalling that the request was cancelled.
func MakeCancelled(req *Request) *Response {
	return &Response{
		RequestSeq: req.Seq,
		Command:    req.CommandName(),
		Success:    false,
		Message:    Cancelled(),
		Body:       &dap.ErrorResponse{},
	}
}

// catalogResponse returns a zero value of the protocol response type for the command.
func catalogResponse(command string) (dap.ResponseMessage, error) {
	probe, marshalErr := json.Marshal(&dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: KindResponse.String()},
		Command:         command,
		Success:         true,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseConstruct, marshalErr)
	}

	msg, decodeErr := dap.DecodeProtocolMessage(probe)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseConstruct, decodeErr)
	}

	resp, isResponse := msg.(dap.ResponseMessage)
	if !isResponse {
		return nil, fmt.Errorf("%w: '%s' does not decode as a response", ErrResponseConstruct, command)
	}

	return resp, nil
}

// hasBody returns true if the protocol response type declares a body.
func hasBody(msg dap.ResponseMessage) bool {
	t := reflect.TypeOf(msg)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}

	_, found := t.FieldByName("Body")
	return found
}
