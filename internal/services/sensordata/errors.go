package sensordata

import "errors"

var (
	// ErrInvalidInput means the payload was malformed or a measurement was missing or not a number.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means the store holds no reading yet.
	ErrNotFound = errors.New("no data available")
)
