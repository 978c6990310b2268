/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	contentLengthHeader = "Content-Length"
	lineTerminator      = "\r\n"
	separatorReason     = "expected separator"

	// Initial content buffer size; larger payloads grow the buffer as bytes arrive.
	initialContentBuffer = 64 * 1024
)

// State is the position of the frame reader (and the server driving it) in the frame grammar.
type State int

const (
	// StateHeader expects a "Content-Length: N" line.
	StateHeader State = iota
	// StateSeparator expects the blank line that ends the header block.
	StateSeparator
	// StateContent expects exactly Content-Length bytes of JSON.
	StateContent
	// StateExiting is terminal; the server stops reading.
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateHeader:
		return "header"
	case StateSeparator:
		return "separator"
	case StateContent:
		return "content"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// lineReader is the source a FrameReader reads from: header lines and exact content reads
// share one cursor.
type lineReader interface {
	io.Reader
	ReadString(delim byte) (string, error)
}

// FrameReader reads Content-Length framed messages from a byte stream.
// It is not safe for concurrent use.
type FrameReader struct {
	reader        lineReader
	state         State
	contentLength int64

	// err is the first error returned by ReadFrame; every later call returns it again
	err error
}

// NewFrameReader creates a frame reader.
//
// No byte past the end of the current frame is ever taken from r. If r is a *bufio.Reader it
// is used directly and the bytes it buffers stay available to the caller through it.
// Any other reader is read without buffering: header lines one byte at a time, content with
// exactly sized reads.
func NewFrameReader(r io.Reader) *FrameReader {
	var lr lineReader
	if br, isBuffered := r.(*bufio.Reader); isBuffered {
		lr = br
	} else {
		lr = &unbufferedReader{source: r}
	}

	return &FrameReader{
		reader: lr,
		state:  StateHeader,
	}
}

// State returns the part of the frame the reader expects next.
func (fr *FrameReader) State() State {
	return fr.state
}

// ReadFrame reads one complete frame and returns its content.
// It returns io.EOF if the stream ends cleanly before the first byte of a frame.
// A stream that ends anywhere inside a frame yields an ErrTransport error wrapping
// io.ErrUnexpectedEOF. No bytes past the end of the frame content are consumed.
//
// Once ReadFrame has failed, the position in the stream is unknown and every later call
// returns the same error.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if fr.err != nil {
		return nil, fr.err
	}

	content, readErr := fr.readFrame()
	if readErr != nil {
		fr.err = readErr
		return nil, readErr
	}

	return content, nil
}

func (fr *FrameReader) readFrame() ([]byte, error) {
	for {
		switch fr.state {
		case StateHeader:
			line, readErr := fr.readLine(true)
			if readErr != nil {
				return nil, readErr
			}

			length, parseErr := parseHeader(line)
			if parseErr != nil {
				return nil, parseErr
			}

			fr.contentLength = length
			fr.state = StateSeparator

		case StateSeparator:
			line, readErr := fr.readLine(false)
			if readErr != nil {
				return nil, readErr
			}

			if line != lineTerminator {
				return nil, &ProtocolError{Reason: separatorReason, Line: line}
			}

			fr.state = StateContent

		case StateContent:
			content, readErr := fr.readContent()
			if readErr != nil {
				return nil, readErr
			}

			fr.state = StateHeader
			return content, nil

		default:
			return nil, fmt.Errorf("frame reader is in state '%s'", fr.state)
		}
	}
}

// ReadRequest reads one frame and decodes it into a Request.
func (fr *FrameReader) ReadRequest() (*Request, error) {
	content, readErr := fr.ReadFrame()
	if readErr != nil {
		return nil, readErr
	}

	return decodeRequest(content)
}

// readLine reads up to and including the next '\n'.
// At a frame boundary a stream that ends before any byte is read is reported as io.EOF.
func (fr *FrameReader) readLine(atFrameBoundary bool) (string, error) {
	line, readErr := fr.reader.ReadString('\n')
	switch {
	case readErr == nil:
		return line, nil
	case errors.Is(readErr, io.EOF) && line == "" && atFrameBoundary:
		return "", io.EOF
	case errors.Is(readErr, io.EOF):
		return "", transportError(fmt.Sprintf("read %s", fr.state), io.ErrUnexpectedEOF)
	default:
		return "", transportError(fmt.Sprintf("read %s", fr.state), readErr)
	}
}

func (fr *FrameReader) readContent() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(fr.contentLength, initialContentBuffer)))

	_, copyErr := io.CopyN(&buf, fr.reader, fr.contentLength)
	switch {
	case copyErr == nil:
		return buf.Bytes(), nil
	case errors.Is(copyErr, io.EOF):
		return nil, transportError("read content", io.ErrUnexpectedEOF)
	default:
		return nil, transportError("read content", copyErr)
	}
}

// unbufferedReader serves line reads without read-ahead, so the underlying source is left
// positioned right after the last byte returned.
type unbufferedReader struct {
	source io.Reader
	single [1]byte
}

func (ur *unbufferedReader) Read(p []byte) (int, error) {
	return ur.source.Read(p)
}

func (ur *unbufferedReader) ReadString(delim byte) (string, error) {
	var line strings.Builder
	for {
		n, readErr := ur.source.Read(ur.single[:])
		if n == 1 {
			line.WriteByte(ur.single[0])
			if ur.single[0] == delim {
				return line.String(), nil
			}
		}
		if readErr != nil {
			return line.String(), readErr
		}
	}
}

// parseHeader parses a "Content-Length: N" line and returns N.
func parseHeader(line string) (int64, error) {
	trimmed := strings.TrimRight(line, " \t\r\n")

	key, value, found := strings.Cut(trimmed, ":")
	if !found {
		return 0, &HeaderParseError{Line: trimmed}
	}

	key = strings.TrimSpace(key)
	if key != contentLengthHeader {
		return 0, &UnknownHeaderError{Header: key}
	}

	// Bit size 63 keeps the value within int64.
	length, parseErr := strconv.ParseUint(strings.TrimSpace(value), 10, 63)
	if parseErr != nil {
		return 0, &HeaderParseError{Line: trimmed}
	}

	return int64(length), nil
}

// flusher is implemented by sinks that buffer data themselves.
type flusher interface {
	Flush() error
}

// FrameWriter writes Content-Length framed messages to a byte stream.
// It is not safe for concurrent use; Output serializes access to it.
type FrameWriter struct {
	sink   io.Writer
	writer *bufio.Writer
}

// NewFrameWriter creates a frame writer for the given sink.
func NewFrameWriter(w io.Writer) *FrameWriter {
	bw, isBuffered := w.(*bufio.Writer)
	if !isBuffered {
		bw = bufio.NewWriter(w)
	}

	return &FrameWriter{
		sink:   w,
		writer: bw,
	}
}

// WriteFrame writes "Content-Length: N\r\n\r\n<content>\r\n", where N is the byte length of
// content, and flushes the frame to the sink.
func (fw *FrameWriter) WriteFrame(content []byte) error {
	if _, writeErr := fmt.Fprintf(fw.writer, "%s: %d%s%s", contentLengthHeader, len(content), lineTerminator, lineTerminator); writeErr != nil {
		return transportError("write header", writeErr)
	}

	if _, writeErr := fw.writer.Write(content); writeErr != nil {
		return transportError("write content", writeErr)
	}

	if _, writeErr := fw.writer.WriteString(lineTerminator); writeErr != nil {
		return transportError("write content", writeErr)
	}

	if flushErr := fw.writer.Flush(); flushErr != nil {
		return transportError("flush", flushErr)
	}

	// Push the frame through sinks that buffer on their own (a *bufio.Writer sink was
	// flushed above).
	if f, canFlush := fw.sink.(flusher); canFlush && fw.sink != io.Writer(fw.writer) {
		if flushErr := f.Flush(); flushErr != nil {
			return transportError("flush", flushErr)
		}
	}

	return nil
}

// WriteEnvelope encodes the envelope and writes it as one frame.
func (fw *FrameWriter) WriteEnvelope(env Envelope) error {
	content, encodeErr := env.Encode()
	if encodeErr != nil {
		return encodeErr
	}

	return fw.WriteFrame(content)
}
