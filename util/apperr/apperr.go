// Package apperr carries the coded errors services hand to controllers.
package apperr

import (
	"errors"
)

type Code string

const (
	BadInput          Code = "BAD_INPUT"
	Unauthenticated   Code = "UNAUTHENTICATED"
	Forbidden         Code = "FORBIDDEN"
	NotFound          Code = "NOT_FOUND"
	Conflict          Code = "CONFLICT"
	InsufficientFunds Code = "INSUFFICIENT_FUNDS"
)

type codedError struct {
	code   Code
	reason string
	msg    string
}

func (e *codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	if e.reason != "" {
		return e.reason
	}
	return string(e.code)
}

func (e *codedError) Code() Code     { return e.code }
func (e *codedError) Reason() string { return e.reason }

// New builds a coded error. reason is a stable machine-readable token
// returned to clients next to the message.
func New(code Code, reason, msg string) error {
	return &codedError{code: code, reason: reason, msg: msg}
}

// Code extracts the error code, or "" for uncoded errors.
func CodeOf(err error) Code {
	var ce interface{ Code() Code }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

func ReasonOf(err error) string {
	var ce interface{ Reason() string }
	if errors.As(err, &ce) {
		return ce.Reason()
	}
	return ""
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
