// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors provides a layered error type used across the relay.
// Errors wrap one another preserving the component boundary at which
// each layer was added, so callers can match against sentinel errors
// with Contains regardless of wrapping depth.
package errors

import "encoding/json"

// Error specifies an API that must be fulfilled by error type.
type Error interface {
	// Error implements the error interface.
	Error() string

	// Msg returns error message.
	Msg() string

	// Err returns wrapped error.
	Err() Error

	// MarshalJSON returns a marshaled error.
	MarshalJSON() ([]byte, error)
}

var _ Error = (*relayError)(nil)

// relayError represents a relay error.
type relayError struct {
	msg string
	err Error
}

// New returns an Error that formats as the given text.
func New(text string) Error {
	return &relayError{
		msg: text,
		err: nil,
	}
}

func (re *relayError) Error() string {
	if re == nil {
		return ""
	}
	if re.err == nil {
		return re.msg
	}
	return re.msg + " : " + re.err.Error()
}

func (re *relayError) Msg() string {
	return re.msg
}

func (re *relayError) Err() Error {
	return re.err
}

func (re *relayError) MarshalJSON() ([]byte, error) {
	var val string
	if e := re.Err(); e != nil {
		val = e.Msg()
	}
	return json.Marshal(&struct {
		Err string `json:"error"`
		Msg string `json:"message"`
	}{
		Err: val,
		Msg: re.Msg(),
	})
}

// Wrap returns an Error that wraps err with wrapper.
func Wrap(wrapper, err error) error {
	if wrapper == nil || err == nil {
		return wrapper
	}
	if w, ok := wrapper.(Error); ok {
		return &relayError{
			msg: w.Msg(),
			err: cast(err),
		}
	}
	return &relayError{
		msg: wrapper.Error(),
		err: cast(err),
	}
}

// Unwrap returns the wrapper and the wrapped error separately.
func Unwrap(err error) (error, error) {
	if re, ok := err.(Error); ok {
		if re.Err() == nil {
			return nil, New(re.Msg())
		}
		return New(re.Msg()), re.Err()
	}

	return nil, err
}

// Contains inspects if e2 error is contained in any layer of e1 error.
func Contains(e1, e2 error) bool {
	if e1 == nil || e2 == nil {
		return e2 == e1
	}
	if re, ok := e1.(Error); ok {
		if re.Msg() == e2.Error() {
			return true
		}
		return Contains(re.Err(), e2)
	}
	return e1.Error() == e2.Error()
}

func cast(err error) Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		return e
	}
	return &relayError{
		msg: err.Error(),
		err: nil,
	}
}
