// SPDX-License-Identifier: MIT
package transport

import "errors"

// Transport delivers chart payloads to a display. Implementations must be
// safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Sizer is a payload that can be re-laid out for one display's surface.
// Transports that know a client's size send SizedFor(w, h) instead of the
// payload itself.
type Sizer interface {
	SizedFor(width, height int) any
}

// Multi fans a payload out to several transports.
type Multi []Transport

// Send delivers data to every transport, even if some fail.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport.
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
