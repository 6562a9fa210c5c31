// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ingesterr defines the pipeline's own error type, captured with a
// stack trace at the point it's raised and returned by Stack. No pipeline
// code raises one, and the CLI prints only an error's message, not a stack.
package ingesterr

import (
	"fmt"
	"runtime/debug"
)

// Kind enumerates the pipeline's own error conditions, as opposed to
// errors wrapped in from I/O or decoding.
type Kind int

const (
	// NonIDKey reports a feature-label byte whose tag prefix does not
	// match the expected varint XID prefix.
	NonIDKey Kind = iota
)

func (k Kind) String() string {
	switch k {
	case NonIDKey:
		return "non-id key"
	default:
		return "unknown"
	}
}

// Error is the pipeline's own error type. It captures a stack trace at
// Raise time, not at the point it's eventually logged or printed.
type Error struct {
	Kind    Kind
	Prefix  byte
	stack   []byte
	wrapped error
}

// Raise constructs an Error of kind k, capturing the current stack.
func Raise(k Kind, prefix byte) *Error {
	return &Error{Kind: k, Prefix: prefix, stack: debug.Stack()}
}

// Wrap raises an Error of kind k that chains err as its cause.
func Wrap(k Kind, err error) *Error {
	return &Error{Kind: k, stack: debug.Stack(), wrapped: err}
}

func (e *Error) Error() string {
	switch e.Kind {
	case NonIDKey:
		return fmt.Sprintf("expected varint xid prefix, found %#x", e.Prefix)
	default:
		if e.wrapped != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.wrapped)
		}

		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.wrapped }

// Stack returns the stack trace captured when e was raised.
func (e *Error) Stack() []byte { return e.stack }
