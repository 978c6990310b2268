/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// Overrides the timeout of every test context, e.g. DAPSERVER_TEST_CONTEXT_TIMEOUT=10m when debugging.
const DAPSERVER_TEST_CONTEXT_TIMEOUT = "DAPSERVER_TEST_CONTEXT_TIMEOUT"

// GetTestContext returns a context that ends no later than the test deadline,
// or after testTimeout if that comes first. Zero testTimeout means "no extra limit".
func GetTestContext(t *testing.T, testTimeout time.Duration) (context.Context, context.CancelFunc) {
	if timeoutStr, found := os.LookupEnv(DAPSERVER_TEST_CONTEXT_TIMEOUT); found {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil || timeout <= 0 {
			panic(fmt.Sprintf("Context timeout value '%s' is invalid", timeoutStr))
		}
		return context.WithTimeout(context.Background(), timeout)
	}

	deadline, haveDeadline := t.Deadline()

	switch {
	case !haveDeadline && testTimeout == 0:
		return context.WithCancel(context.Background())

	case haveDeadline && testTimeout == 0:
		return context.WithDeadline(context.Background(), deadline)

	case !haveDeadline:
		return context.WithTimeout(context.Background(), testTimeout)

	default:
		// Take shorter of the two deadlines
		testDeadline := time.Now().Add(testTimeout)
		if testDeadline.Before(deadline) {
			deadline = testDeadline
		}
		return context.WithDeadline(context.Background(), deadline)
	}
}
