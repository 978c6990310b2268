/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/dapserver/pkg/testutil"
)

func TestFrameReaderReadsConsecutiveFrames(t *testing.T) {
	t.Parallel()

	input := requestFrame(1, "next") + requestFrame(2, "threads")
	fr := NewFrameReader(strings.NewReader(input))
	assert.Equal(t, StateHeader, fr.State())

	first, err := fr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Seq)
	assert.IsType(t, &dap.NextRequest{}, first.Command)
	assert.Equal(t, StateHeader, fr.State())

	second, err := fr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, "threads", second.CommandName())

	_, err = fr.ReadRequest()
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, IsTransportError(err), "end of input between frames is not an I/O error")
}

func TestFrameReaderEmptyInputIsCleanEOF(t *testing.T) {
	t.Parallel()

	fr := NewFrameReader(strings.NewReader(""))
	_, err := fr.ReadFrame()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReaderHeaderVariants(t *testing.T) {
	t.Parallel()

	content := requestJSON(1, "next")

	inputs := []string{
		"Content-Length: " + itoa(len(content)) + "\r\n\r\n" + content,
		"Content-Length:" + itoa(len(content)) + "\r\n\r\n" + content,
		"Content-Length:   " + itoa(len(content)) + "  \r\n\r\n" + content,
	}

	for _, input := range inputs {
		fr := NewFrameReader(strings.NewReader(input))
		data, err := fr.ReadFrame()
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, content, string(data))
	}
}

func TestFrameReaderContentLengthCountsBytes(t *testing.T) {
	t.Parallel()

	content := `{"seq":1,"type":"request","command":"evaluate","arguments":{"expression":"héllo → 世界"}}`
	require.Greater(t, len(content), len([]rune(content)))

	fr := NewFrameReader(strings.NewReader(frame(content) + requestFrame(2, "next")))

	req, err := fr.ReadRequest()
	require.NoError(t, err)
	evaluate, isEvaluate := req.Command.(*dap.EvaluateRequest)
	require.True(t, isEvaluate)
	assert.Equal(t, "héllo → 世界", evaluate.Arguments.Expression)

	next, err := fr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, 2, next.Seq)
}

func TestFrameReaderDoesNotReadPastContent(t *testing.T) {
	t.Parallel()

	trailing := "Content-Length: 2"

	t.Run("plain reader", func(t *testing.T) {
		t.Parallel()

		source := strings.NewReader(requestFrame(1, "next") + trailing)
		fr := NewFrameReader(source)

		_, err := fr.ReadRequest()
		require.NoError(t, err)

		rest, err := io.ReadAll(source)
		require.NoError(t, err)
		assert.Equal(t, trailing, string(rest))
	})

	t.Run("buffered reader", func(t *testing.T) {
		t.Parallel()

		br := bufio.NewReader(strings.NewReader(requestFrame(1, "next") + trailing))
		fr := NewFrameReader(br)

		_, err := fr.ReadRequest()
		require.NoError(t, err)

		rest, err := io.ReadAll(br)
		require.NoError(t, err)
		assert.Equal(t, trailing, string(rest))
	})

	t.Run("scripted reader", func(t *testing.T) {
		t.Parallel()

		tr := testutil.NewTestReader()
		tr.AddEntry(testutil.AsStringTimelineEntries(requestFrame(1, "next") + requestFrame(2, "next"))...)
		fr := NewFrameReader(tr)

		req, err := fr.ReadRequest()
		require.NoError(t, err)
		assert.Equal(t, 1, req.Seq)
		assert.Equal(t, requestFrame(2, "next"), string(tr.Remaining()))
	})
}

func TestFrameReaderErrorIsFinal(t *testing.T) {
	t.Parallel()

	// The second header takes the place of the separator; the stream is out of sync from there on.
	input := "Content-Length: 2\r\nContent-Type: application/json\r\n\r\n{}" + requestFrame(1, "next")
	fr := NewFrameReader(strings.NewReader(input))

	_, firstErr := fr.ReadRequest()
	require.ErrorIs(t, firstErr, ErrProtocol)

	for i := 0; i < 3; i++ {
		req, err := fr.ReadRequest()
		assert.Nil(t, req)
		assert.Same(t, firstErr, err, "a failed reader keeps returning its first error")
	}
	assert.Equal(t, StateSeparator, fr.State())
}

func TestServerPollAfterFramingError(t *testing.T) {
	t.Parallel()

	server, sink := newTestServer(t, strings.NewReader("X-Custom: 1\r\n\r\n"+requestFrame(1, "next")))

	_, firstErr := server.PollRequest()
	require.ErrorIs(t, firstErr, ErrUnknownHeader)

	req, err := server.PollRequest()
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrUnknownHeader)
	assert.Empty(t, sink.Bytes())
}

func TestFrameReaderMalformedInput(t *testing.T) {
	t.Parallel()

	type testcase struct {
		description string
		input       string
		verify      func(t *testing.T, err error)
	}

	testcases := []testcase{
		{
			description: "unknown header",
			input:       "X-Custom: 1\r\n\r\n",
			verify: func(t *testing.T, err error) {
				var headerErr *UnknownHeaderError
				require.ErrorAs(t, err, &headerErr)
				assert.Equal(t, "X-Custom", headerErr.Header)
				assert.ErrorIs(t, err, ErrUnknownHeader)
			},
		},
		{
			description: "header without separator character",
			input:       "garbage\r\n\r\n",
			verify: func(t *testing.T, err error) {
				var parseErr *HeaderParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Contains(t, parseErr.Line, "garbage")
			},
		},
		{
			description: "non numeric length",
			input:       "Content-Length: ten\r\n\r\n",
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrHeaderParse)
			},
		},
		{
			description: "negative length",
			input:       "Content-Length: -1\r\n\r\n",
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrHeaderParse)
			},
		},
		{
			description: "blank line instead of header",
			input:       "\r\n" + requestFrame(1, "next"),
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrHeaderParse)
			},
		},
		{
			description: "second header instead of separator",
			input:       "Content-Length: 2\r\nContent-Type: application/json\r\n\r\n{}",
			verify: func(t *testing.T, err error) {
				var protocolErr *ProtocolError
				require.ErrorAs(t, err, &protocolErr)
				assert.Equal(t, "expected separator", protocolErr.Reason)
				assert.Equal(t, "Content-Type: application/json\r\n", protocolErr.Line)
			},
		},
		{
			description: "separator without carriage return",
			input:       "Content-Length: 2\r\n\n{}",
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrProtocol)
			},
		},
		{
			description: "invalid UTF-8",
			input:       frame("{\"seq\":1,\"type\":\"request\",\"command\":\"next\xff\"}"),
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDecoding)
				assert.False(t, errors.Is(err, ErrDeserialization))
			},
		},
		{
			description: "content is not JSON",
			input:       frame("hello"),
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDeserialization)
			},
		},
		{
			description: "zero length content",
			input:       "Content-Length: 0\r\n\r\n",
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDeserialization)
			},
		},
		{
			description: "unknown command",
			input:       requestFrame(1, "bogus"),
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDeserialization)
				var fieldErr *dap.DecodeProtocolMessageFieldError
				require.ErrorAs(t, err, &fieldErr)
				assert.Equal(t, "command", fieldErr.FieldName)
			},
		},
		{
			description: "event instead of request",
			input:       frame(`{"seq":1,"type":"event","event":"initialized"}`),
			verify: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDeserialization)
			},
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			fr := NewFrameReader(strings.NewReader(tc.input))
			req, err := fr.ReadRequest()
			require.Error(t, err)
			assert.Nil(t, req)
			assert.False(t, IsTransportError(err))
			tc.verify(t, err)
		})
	}
}

func TestFrameReaderTruncatedInput(t *testing.T) {
	t.Parallel()

	type testcase struct {
		description   string
		input         string
		expectedState State
	}

	testcases := []testcase{
		{
			description:   "inside header line",
			input:         "Content-Len",
			expectedState: StateHeader,
		},
		{
			description:   "before separator",
			input:         "Content-Length: 10\r\n",
			expectedState: StateSeparator,
		},
		{
			description:   "inside separator",
			input:         "Content-Length: 10\r\n\r",
			expectedState: StateSeparator,
		},
		{
			description:   "inside content",
			input:         "Content-Length: 10\r\n\r\n{\"seq\"",
			expectedState: StateContent,
		},
		{
			description:   "after a complete frame",
			input:         requestFrame(1, "next") + "Content-Length: 3\r\n\r\n",
			expectedState: StateContent,
		},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			fr := NewFrameReader(strings.NewReader(tc.input))

			var err error
			for err == nil {
				_, err = fr.ReadFrame()
			}

			assert.ErrorIs(t, err, ErrTransport)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			assert.False(t, errors.Is(err, io.EOF), "truncation must not look like a clean end of input")
			assert.Equal(t, tc.expectedState, fr.State())
		})
	}
}

func TestFrameReaderReportsReadErrors(t *testing.T) {
	t.Parallel()

	pipeErr := errors.New("pipe reset")
	tr := testutil.NewTestReader()
	tr.AddEntry(testutil.AsStringTimelineEntries("Content-Length: 5\r\n")...)
	tr.AddEntry(testutil.AsErrorTimelineEntry(pipeErr))

	fr := NewFrameReader(tr)
	_, err := fr.ReadFrame()

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, pipeErr)
	assert.Equal(t, StateSeparator, fr.State())
}

func TestFrameWriterWritesFrame(t *testing.T) {
	t.Parallel()

	sink := testutil.NewBufferWriter(0)
	fw := NewFrameWriter(sink)

	require.NoError(t, fw.WriteFrame([]byte(`{"a":"→"}`)))
	assert.Equal(t, "Content-Length: 11\r\n\r\n{\"a\":\"→\"}\r\n", sink.String())
	assert.Equal(t, 1, sink.ChunksLen(), "a frame is handed to the sink in one write")
	assert.Equal(t, 1, sink.Flushes())
}

func TestFrameWriterOutputIsReadable(t *testing.T) {
	t.Parallel()

	sink := testutil.NewBufferWriter(0)
	fw := NewFrameWriter(sink)

	resp, err := MakeAck(nextRequest(1))
	require.NoError(t, err)
	require.NoError(t, fw.WriteEnvelope(Envelope{Seq: 1, Payload: resp}))
	require.NoError(t, fw.WriteEnvelope(Envelope{Seq: 2, Payload: NewEvent(&dap.InitializedEvent{Event: dap.Event{Event: "initialized"}})}))

	frames := parseOutput(t, sink.Bytes())
	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].Seq(t))
	assert.Equal(t, "initialized", frames[1].Fields["event"])
}

func TestFrameWriterReportsWriteErrors(t *testing.T) {
	t.Parallel()

	sink := testutil.NewBufferWriter(0)
	pipeErr := errors.New("broken pipe")
	sink.FailWith(pipeErr)

	fw := NewFrameWriter(sink)
	err := fw.WriteFrame([]byte(`{}`))

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, pipeErr)
	assert.Empty(t, sink.Bytes())
}

func TestFrameWriterRejectsInvalidEnvelope(t *testing.T) {
	t.Parallel()

	sink := testutil.NewBufferWriter(0)
	fw := NewFrameWriter(sink)

	err := fw.WriteEnvelope(Envelope{Seq: 1, Payload: EmptyResponse()})
	assert.ErrorIs(t, err, ErrSerialization)
	assert.Empty(t, sink.Bytes())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "header", StateHeader.String())
	assert.Equal(t, "separator", StateSeparator.String())
	assert.Equal(t, "content", StateContent.String())
	assert.Equal(t, "exiting", StateExiting.String())
}
