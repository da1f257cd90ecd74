package prizewheel

import (
	"errors"
	"fmt"
)

// ErrConfig is the root of every configuration error returned by this package.
// Test with errors.Is.
var ErrConfig = errors.New("prizewheel: invalid configuration")

var (
	// ErrNoItems is returned when an engine is built with an empty item set.
	ErrNoItems = fmt.Errorf("%w: wheel has no items", ErrConfig)

	// ErrUnknownWinner is returned by Spin when the forced winner matches no label.
	ErrUnknownWinner = fmt.Errorf("%w: winner is not a wheel label", ErrConfig)
)

// ErrClosed is returned by Spin after Close.
var ErrClosed = errors.New("prizewheel: engine closed")
