/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when reading from the input or writing to the output fails.
	ErrTransport = errors.New("I/O error")

	// ErrUnknownHeader is returned when a frame header uses a key other than Content-Length.
	ErrUnknownHeader = errors.New("unknown header")

	// ErrHeaderParse is returned when a frame header line cannot be parsed.
	ErrHeaderParse = errors.New("could not parse header line")

	// ErrProtocol is returned when the frame structure is violated after a valid header.
	ErrProtocol = errors.New("protocol error")

	// ErrDecoding is returned when the frame content is not valid UTF-8.
	ErrDecoding = errors.New("error decoding character stream")

	// ErrDeserialization is returned when the frame content is not a valid request.
	ErrDeserialization = errors.New("error while deserializing")

	// ErrSerialization is returned when an outgoing envelope cannot be encoded.
	ErrSerialization = errors.New("serialization error")

	// ErrAdapter is returned (wrapped in an AdapterError) when the adapter fails.
	ErrAdapter = errors.New("adapter error")

	// ErrResponseConstruct is returned when a response cannot be built for a request,
	// e.g. an acknowledgement for a command whose response requires a body.
	ErrResponseConstruct = errors.New("could not construct response")

	// ErrOutputPoisoned is returned when the output can no longer be trusted because
	// a previous send panicked while holding it.
	ErrOutputPoisoned = errors.New("output lock is poisoned")
)

// UnknownHeaderError reports a header key other than Content-Length.
type UnknownHeaderError struct {
	Header string
}

func (e *UnknownHeaderError) Error() string {
	return fmt.Sprintf("unknown header: %s", e.Header)
}

func (e *UnknownHeaderError) Is(target error) bool {
	return target == ErrUnknownHeader
}

// HeaderParseError reports a header line that is not a valid "Key: Value" pair
// or whose Content-Length value is not a non-negative integer.
type HeaderParseError struct {
	Line string
}

func (e *HeaderParseError) Error() string {
	return fmt.Sprintf("could not parse header line '%s'", e.Line)
}

func (e *HeaderParseError) Is(target error) bool {
	return target == ErrHeaderParse
}

// ProtocolError reports a line that does not fit the frame grammar.
type ProtocolError struct {
	Reason string
	Line   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error while reading line '%s', reason: '%s'", e.Line, e.Reason)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// AdapterError carries an error returned by an Adapter. The server never interprets it.
type AdapterError struct {
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter error: %v", e.Err)
}

func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapter
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// IsTransportError returns true if the error is an I/O failure on the input or output stream.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsFramingError returns true if the error indicates that frame synchronization was lost.
// This includes unknown headers, unparseable headers and missing separators.
func IsFramingError(err error) bool {
	return errors.Is(err, ErrUnknownHeader) ||
		errors.Is(err, ErrHeaderParse) ||
		errors.Is(err, ErrProtocol)
}

// IsPayloadError returns true if the frame was well formed but its content could not be
// turned into a request. This includes decoding and deserialization errors.
func IsPayloadError(err error) bool {
	return errors.Is(err, ErrDecoding) ||
		errors.Is(err, ErrDeserialization)
}

// IsFatalOutputError returns true if the error means the output stream can no longer be used.
// Serialization errors are not fatal: nothing was written for the failed envelope.
func IsFatalOutputError(err error) bool {
	return errors.Is(err, ErrOutputPoisoned) ||
		errors.Is(err, ErrTransport)
}
