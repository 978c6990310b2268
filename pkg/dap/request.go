/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/go-dap"
)

// Request is a request received from the peer.
type Request struct {
	// Seq is the sequence number assigned by the peer. Responses refer to it via request_seq.
	Seq int

	// Command is the decoded protocol request, e.g. *dap.NextRequest.
	Command dap.RequestMessage
}

// CommandName returns the command tag of the request, e.g. "next".
func (r *Request) CommandName() string {
	if r == nil || isNilMessage(r.Command) {
		return ""
	}
	return r.Command.GetRequest().Command
}

// decodeRequest turns frame content into a Request.
// Invalid UTF-8 is reported separately from JSON and catalog failures.
func decodeRequest(content []byte) (*Request, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrDecoding)
	}

	msg, decodeErr := dap.DecodeProtocolMessage(content)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserialization, decodeErr)
	}

	req, isRequest := msg.(dap.RequestMessage)
	if !isRequest {
		return nil, fmt.Errorf("%w: expected a request, got %T", ErrDeserialization, msg)
	}

	return &Request{
		Seq:     req.GetSeq(),
		Command: req,
	}, nil
}
