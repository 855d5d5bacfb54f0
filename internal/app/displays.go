// SPDX-License-Identifier: MIT
package app

import (
	"errors"
	"fmt"

	"voiceeq/internal/config"
	"voiceeq/internal/transport"
	"voiceeq/internal/transport/udp"
)

// Displays holds the transports enabled in the config. WebSocket and UDP
// are nil when disabled.
type Displays struct {
	Log       *transport.LoggingTransport
	WebSocket *transport.WebSocketTransport
	UDP       *udp.UDPPublisher
}

// NewDisplays opens the displays cfg enables. The logging transport is
// always present.
func NewDisplays(cfg config.TransportConfig) (*Displays, error) {
	d := &Displays{Log: transport.NewLoggingTransport()}

	if cfg.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to open UDP display: %w", err)
		}
		d.UDP, err = udp.NewUDPPublisher(cfg.UDPRepeat, sender)
		if err != nil {
			sender.Close()
			return nil, err
		}
	}
	if cfg.WebSocketEnabled {
		d.WebSocket = transport.NewWebSocketTransport(cfg.WebSocketAddress)
	}
	return d, nil
}

// Transports lists the open displays for a pipeline.
func (d *Displays) Transports() []transport.Transport {
	ts := []transport.Transport{d.Log}
	if d.WebSocket != nil {
		ts = append(ts, d.WebSocket)
	}
	if d.UDP != nil {
		ts = append(ts, d.UDP)
	}
	return ts
}

// StartRepeats begins re-sending the latest snapshot over UDP.
func (d *Displays) StartRepeats() {
	if d.UDP != nil {
		d.UDP.Start()
	}
}

// Close closes every display. Pipelines that were given the transports
// close them already; closing twice is harmless.
func (d *Displays) Close() error {
	var errs []error
	for _, t := range d.Transports() {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}
