package bybit

import (
	"errors"
	"fmt"
)

// Error kinds returned by Load. Match them with errors.Is.
var (
	ErrTransport  = errors.New("bybit: transport")
	ErrStatus     = errors.New("bybit: http status")
	ErrEnvelope   = errors.New("bybit: envelope")
	ErrConversion = errors.New("bybit: conversion")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bybit: kline http %d", e.Code)
	}
	return fmt.Sprintf("bybit: kline http %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// ConversionError reports a wire value that could not be coerced to its
// column type. Row is the position in the upstream list, before sorting.
type ConversionError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("bybit: kline[%d] %s: cannot convert %s: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() []error { return []error{ErrConversion, e.Err} }

func envelopeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrEnvelope}, args...)...)
}
