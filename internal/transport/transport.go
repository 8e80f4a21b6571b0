// SPDX-License-Identifier: MIT
/*
Package transport ships telemetry out of the process. Implementations are
safe for concurrent use and never block the caller for longer than a
non-blocking queue insert.
*/
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Transport defines a generic interface for sending telemetry.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans a message out to several transports and joins their errors.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

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
