/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// BufferWriter is an io.Writer that keeps everything written to it in memory.
// All methods are goroutine-safe.
// Every write operation is tracked and timestamped, and can be retrieved with Chunks().
// Writes fail once the writer is closed, once maxSize bytes have been written
// (maxSize 0 means unlimited), or when a failure was injected with FailWith.

type Chunk struct {
	Offset    int
	Length    int
	Timestamp time.Time
}

type BufferWriter struct {
	data      []byte
	chunks    []Chunk
	lock      *sync.Mutex
	maxSize   uint
	closed    bool
	failErr   error
	flushes   int
	onWriting func(p []byte)
}

func NewBufferWriter(maxSize uint) *BufferWriter {
	return &BufferWriter{
		lock:    &sync.Mutex{},
		maxSize: maxSize,
	}
}

func (bw *BufferWriter) Write(p []byte) (n int, err error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	if bw.onWriting != nil {
		bw.onWriting(p)
	}

	if bw.failErr != nil {
		return 0, bw.failErr
	}

	if bw.closed || (bw.maxSize > 0 && uint(len(bw.data)+len(p)) > bw.maxSize) {
		return 0, io.ErrShortWrite
	}

	bw.chunks = append(bw.chunks, Chunk{
		Offset:    len(bw.data),
		Length:    len(p),
		Timestamp: time.Now(),
	})
	bw.data = append(bw.data, p...)
	return len(p), nil
}

// Flush counts flushes; the data is already in memory.
func (bw *BufferWriter) Flush() error {
	bw.lock.Lock()
	defer bw.lock.Unlock()

	if bw.failErr != nil {
		return bw.failErr
	}
	bw.flushes++
	return nil
}

// FailWith makes every subsequent Write and Flush return err. Nil clears the failure.
func (bw *BufferWriter) FailWith(err error) {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.failErr = err
}

// OnWriting registers a function called with the data of every Write, before it is stored.
// The function runs while the writer lock is held and must not call back into the writer.
func (bw *BufferWriter) OnWriting(f func(p []byte)) {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.onWriting = f
}

func (bw *BufferWriter) Bytes() []byte {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bytes.Clone(bw.data)
}

func (bw *BufferWriter) String() string {
	return string(bw.Bytes())
}

func (bw *BufferWriter) Close() error {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	bw.closed = true
	return nil
}

func (bw *BufferWriter) Chunks() []Chunk {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	if bw.chunks == nil {
		return nil
	}
	return append([]Chunk{}, bw.chunks...) // make a copy
}

func (bw *BufferWriter) ChunksLen() int {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return len(bw.chunks)
}

func (bw *BufferWriter) Flushes() int {
	bw.lock.Lock()
	defer bw.lock.Unlock()
	return bw.flushes
}

var _ io.WriteCloser = (*BufferWriter)(nil)
