/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

/*
Package dap implements the server side of the Debug Adapter Protocol (DAP) wire protocol.

It turns a byte stream into requests, calls an application supplied Adapter once per
request, and writes correctly sequenced responses, events and reverse requests back,
including messages sent concurrently from other goroutines.

# Key Components

  - FrameReader / FrameWriter: the Content-Length framing on the wire
  - Envelope: a sequence numbered outgoing message (response, event or reverse request)
  - Output: owns the output stream and the sequence counter; safe for concurrent use
  - Server: the read/dispatch loop
  - Adapter / Context: the application contract

Message payloads are the types of github.com/google/go-dap.

# Wire Format

Every message is framed as

	Content-Length: <N>\r\n
	\r\n
	<N bytes of UTF-8 JSON>

Outgoing frames are followed by an additional "\r\n". Content-Length is the only header
accepted on input.

# Usage

	adapter := dap.AdapterFunc(func(req *dap.Request, ctx dap.Context) (*dap.Response, error) {
		switch req.Command.(type) {
		case *godap.DisconnectRequest:
			ctx.RequestExit()
		}
		return dap.MakeAck(req)
	})

	server := dap.NewServer(os.Stdin, os.Stdout, dap.ServerConfig{Logger: log})
	err := server.Run(ctx, adapter)

Events can be sent at any time, from any goroutine, through the Context or Output:

	go func() {
		_ = server.Output().SendEvent(&godap.InitializedEvent{
			Event: godap.Event{Event: "initialized"},
		})
	}()

# Termination

Run returns nil when the input ends between frames or after the adapter called
Context.RequestExit. A stream that ends inside a frame, a malformed frame, a request that
cannot be decoded, a failed write, or an adapter error ends the loop with an error. The
server never tries to resynchronize with the stream.
*/
package dap
