/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"errors"
	"io"
)

var ErrClosedReader = errors.New("reader is closed")

// The maximum number of entries in the timeline
const bufferSize = 64 * 1024

type testReaderTimelineEntry interface {
	Value() (byte, error)
}

type byteTimelineEntry struct {
	value byte
}

func AsByteTimelineEntries(b ...byte) []testReaderTimelineEntry {
	entries := make([]testReaderTimelineEntry, len(b))
	for i := range b {
		entries[i] = &byteTimelineEntry{value: b[i]}
	}

	return entries
}

func AsStringTimelineEntries(s string) []testReaderTimelineEntry {
	return AsByteTimelineEntries([]byte(s)...)
}

func (bte *byteTimelineEntry) Value() (byte, error) {
	return bte.value, nil
}

type errorTimelineEntry struct {
	err error
}

func AsErrorTimelineEntry(err error) testReaderTimelineEntry {
	// If err is nil, return EOF as the default error
	if err == nil {
		err = io.EOF
	}

	return &errorTimelineEntry{err: err}
}

func (ete *errorTimelineEntry) Value() (byte, error) {
	return 0, ete.err
}

// TestReader is an io.Reader that replays a timeline of bytes and errors.
// Once the timeline is drained, reads return io.EOF.
// Remaining returns the bytes not read yet, which lets tests check how far a consumer read.
type TestReader struct {
	timeline chan testReaderTimelineEntry
	closed   bool
}

func NewTestReader() *TestReader {
	return &TestReader{
		timeline: make(chan testReaderTimelineEntry, bufferSize),
	}
}

func (tr *TestReader) AddEntry(entries ...testReaderTimelineEntry) {
	for i := range entries {
		tr.timeline <- entries[i]
	}
}

func (tr *TestReader) Read(p []byte) (int, error) {
	if tr.closed {
		return 0, ErrClosedReader
	}

	for i := range p {
		select {
		case entry := <-tr.timeline:
			b, err := entry.Value()
			if err != nil {
				return i, err
			}

			p[i] = b
		default:
			// If we go to read from the timeline and there's nothing there, we need to respond with EOF
			return i, io.EOF
		}
	}

	return len(p), nil
}

// Remaining drains the timeline and returns the bytes left in it, stopping at the first error entry.
func (tr *TestReader) Remaining() []byte {
	var rest []byte
	for {
		select {
		case entry := <-tr.timeline:
			b, err := entry.Value()
			if err != nil {
				return rest
			}
			rest = append(rest, b)
		default:
			return rest
		}
	}
}

func (tr *TestReader) Close() error {
	tr.closed = true
	return nil
}
