/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// frame builds an incoming frame (no trailing line terminator) around content.
func frame(content string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(content), content)
}

func requestJSON(seq int, command string) string {
	return fmt.Sprintf(`{"seq":%d,"type":"request","command":"%s"}`, seq, command)
}

func requestFrame(seq int, command string) string {
	return frame(requestJSON(seq, command))
}

// outgoingFrame is one frame parsed from server output.
type outgoingFrame struct {
	Content []byte
	Fields  map[string]any
}

func (f outgoingFrame) Seq(t *testing.T) int {
	seq, isNumber := f.Fields["seq"].(float64)
	require.True(t, isNumber, "frame has no numeric seq: %s", f.Content)
	return int(seq)
}

// parseOutput splits server output into frames. Every frame must be exactly
// "Content-Length: N\r\n\r\n" + N bytes of JSON + "\r\n".
func parseOutput(t *testing.T, data []byte) []outgoingFrame {
	var frames []outgoingFrame
	rest := data

	for len(rest) > 0 {
		headerEnd := bytes.Index(rest, []byte("\r\n\r\n"))
		require.GreaterOrEqual(t, headerEnd, 0, "missing header terminator in %q", rest)

		header := string(rest[:headerEnd])
		lengthStr, found := strings.CutPrefix(header, "Content-Length: ")
		require.True(t, found, "unexpected header %q", header)
		length, convErr := strconv.Atoi(lengthStr)
		require.NoError(t, convErr, "bad length in header %q", header)

		rest = rest[headerEnd+4:]
		require.GreaterOrEqual(t, len(rest), length+2, "frame content truncated")

		content := rest[:length]
		require.Equal(t, "\r\n", string(rest[length:length+2]), "frame must end with a line terminator")
		rest = rest[length+2:]

		var fields map[string]any
		require.NoError(t, json.Unmarshal(content, &fields), "frame content is not a JSON object: %s", content)
		frames = append(frames, outgoingFrame{Content: content, Fields: fields})
	}

	return frames
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
