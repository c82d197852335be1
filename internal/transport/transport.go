// SPDX-License-Identifier: MIT

// Package transport delivers render states and spectrum frames to whoever is
// watching: websocket clients, the log, or several at once.
package transport

import (
	"errors"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport sends per-frame data. Implementations must be safe for
// concurrent use and must not retain data after Send returns; callers
// reuse their buffers.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every Send out to all of its transports.
type Multi []Transport

// Send delivers data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
