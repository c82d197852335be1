// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"spectra/internal/log"
)

var logger = log.Named("udp")

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp sender is closed")

// Sender writes datagrams to a single target.
type Sender struct {
	mu     sync.Mutex // protects conn during Close
	conn   *net.UDPConn
	target *net.UDPAddr
	closed bool
}

// NewSender dials targetAddress ("host:port").
func NewSender(targetAddress string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve udp target %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp target %q: %w", targetAddress, err)
	}
	logger.Infof("sending spectrum packets to %s", conn.RemoteAddr())
	return &Sender{conn: conn, target: addr}, nil
}

// Target returns the resolved destination.
func (s *Sender) Target() *net.UDPAddr {
	return s.target
}

// Send transmits data as one datagram.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("send udp packet: %w", err)
	}
	return nil
}

// Close closes the connection. Closing twice is a no-op.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close udp connection: %w", err)
	}
	return nil
}
