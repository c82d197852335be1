// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"sync/atomic"

	"spectra/internal/log"
)

var logger = log.Named("transport")

// LoggingTransport writes every Nth message to the debug log as JSON. It is
// the fallback when no network consumer is configured.
type LoggingTransport struct {
	every uint64
	count atomic.Uint64
}

// NewLoggingTransport logs one message out of every. Values below 1 log all.
func NewLoggingTransport(every int) *LoggingTransport {
	logger.Infof("using logging transport (1 in %d frames)", max(every, 1))
	return &LoggingTransport{every: uint64(max(every, 1))}
}

// Send never fails. Marshal errors are logged.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.count.Add(1)
	if (n-1)%lt.every != 0 {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Warnf("frame %d (%T): marshal: %v", n, data, err)
		return nil
	}
	logger.Debugf("frame %d: %s", n, payload)
	return nil
}

// Sent returns the number of messages received.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.count.Load()
}

func (lt *LoggingTransport) Close() error {
	logger.Debugf("logging transport closed after %d frames", lt.Sent())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
