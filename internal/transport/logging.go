// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	applog "voiceeq/internal/log"
)

// LoggingTransport writes a one-line summary of each payload to the log.
// At debug level the full JSON is logged as well.
type LoggingTransport struct {
	sent atomic.Int64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if s, ok := data.(fmt.Stringer); ok {
		applog.Infof("LOG_TRANSPORT: #%d %s", n, s)
	} else {
		applog.Infof("LOG_TRANSPORT: #%d received %T", n, data)
	}

	if applog.GetLevel() <= applog.LevelDebug {
		jsonData, err := json.Marshal(data)
		if err != nil {
			applog.Debugf("LOG_TRANSPORT: (%T) JSON marshal error: %v", data, err)
		} else {
			applog.Debugf("LOG_TRANSPORT: %s", jsonData)
		}
	}
	return nil
}

// Sent returns the number of payloads logged.
func (lt *LoggingTransport) Sent() int64 { return lt.sent.Load() }

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called after %d payloads.", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
