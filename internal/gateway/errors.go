// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes gateway failures for handling.
type ErrorKind int

const (
	KindUnknown   ErrorKind = iota
	KindRequest             // request could not be built (bad input, bad URL)
	KindTransport           // connection refused, reset, DNS failure
	KindTimeout             // deadline exceeded or HTTP client timeout
	KindStatus              // backend answered with a non-2xx status
	KindDecode              // 2xx body was not the expected JSON
	KindCanceled            // caller cancelled the context
)

// String returns the lowercase kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by every gateway operation.
// Message is human readable and safe to show to the user.
type Error struct {
	Op      Op
	Kind    ErrorKind
	Status  int // HTTP status for KindStatus, zero otherwise
	Message string
	Detail  string // server-provided error text, if any
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the ErrorKind of err, or KindUnknown if err is not a gateway error.
func KindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}

// IsTimeout reports whether err is a gateway timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsCanceled reports whether err is a gateway call the caller cancelled.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled
}
