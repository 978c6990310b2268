/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/mock"
)

// MockLoggerSink is a logr.LogSink that records calls through testify/mock.
type MockLoggerSink struct {
	mock.Mock
}

// NewMockLoggerSink returns a sink that accepts Init and WithName, enables every verbosity
// level and records all Info and Error calls. Tests can then assert on the recorded calls.
func NewMockLoggerSink() *MockLoggerSink {
	sink := &MockLoggerSink{}
	sink.On("Init", mock.Anything).Maybe()
	sink.On("Enabled", mock.Anything).Return(true).Maybe()
	sink.On("WithName", mock.Anything).Return(sink).Maybe()
	sink.On("WithValues", mock.Anything).Return(sink).Maybe()
	sink.On("Info", mock.Anything, mock.Anything, mock.Anything).Maybe()
	sink.On("Error", mock.Anything, mock.Anything, mock.Anything).Maybe()
	return sink
}

func (m *MockLoggerSink) Enabled(level int) bool {
	args := m.Called(level)
	return args.Bool(0)
}

func (m *MockLoggerSink) Error(err error, msg string, keysAndValues ...interface{}) {
	m.Called(err, msg, keysAndValues)
}

func (m *MockLoggerSink) Info(level int, msg string, keysAndValues ...interface{}) {
	m.Called(level, msg, keysAndValues)
}

func (m *MockLoggerSink) Init(info logr.RuntimeInfo) {
	m.Called(info)
}

func (m *MockLoggerSink) WithName(name string) logr.LogSink {
	args := m.Called(name)
	return args.Get(0).(logr.LogSink)
}

func (m *MockLoggerSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	args := m.Called(keysAndValues)
	return args.Get(0).(logr.LogSink)
}

// LoggedErrors returns the errors passed to Error, in call order.
func (m *MockLoggerSink) LoggedErrors() []error {
	var errs []error
	for _, call := range m.Calls {
		if call.Method == "Error" {
			if err, isErr := call.Arguments.Get(0).(error); isErr {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// LoggedMessages returns the messages passed to Info and Error, in call order.
func (m *MockLoggerSink) LoggedMessages() []string {
	var msgs []string
	for _, call := range m.Calls {
		if call.Method == "Info" || call.Method == "Error" {
			msgs = append(msgs, call.Arguments.String(1))
		}
	}
	return msgs
}

var _ logr.LogSink = (*MockLoggerSink)(nil)
