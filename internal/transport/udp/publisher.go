// SPDX-License-Identifier: MIT

// Package udp publishes the byte spectrum as small binary datagrams for
// external visualizers.
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

/*
Packet layout, big endian:

|<- 4 bytes ->|<-- 8 bytes -->|<- 2 bytes ->|<--- N bytes --->|
+-------------+---------------+-------------+-----------------+
|  Sequence   |   Timestamp   |    Count    |      Bins       |
|  (uint32)   | (int64, ns)   |  (uint16)   |   (N x uint8)   |
+-------------+---------------+-------------+-----------------+
*/

// HeaderSize is the fixed part of a packet.
const HeaderSize = 4 + 8 + 2

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("short spectrum packet")

// SpectrumFunc copies the current byte spectrum into dst and returns the
// number of bins written.
type SpectrumFunc func(dst []byte) int

// Packet is a decoded datagram.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Bins      []byte
}

// DecodePacket parses a datagram produced by the Publisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) < HeaderSize+count {
		return Packet{}, fmt.Errorf("%w: want %d bins, have %d", ErrShortPacket, count, len(b)-HeaderSize)
	}
	return Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
		Bins:      append([]byte(nil), b[HeaderSize:HeaderSize+count]...),
	}, nil
}

// Publisher sends one packet per interval until stopped.
type Publisher struct {
	sender   *Sender
	spectrum SpectrumFunc
	interval time.Duration

	mu       sync.Mutex // guards ticker and done across Start/Stop
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seq    uint32
	bins   []byte
	packet bytes.Buffer
}

// NewPublisher creates a stopped publisher for up to maxBins bins per
// packet. An interval <= 0 defaults to ~60Hz.
func NewPublisher(interval time.Duration, sender *Sender, spectrum SpectrumFunc, maxBins int) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if spectrum == nil {
		return nil, errors.New("udp publisher: spectrum source cannot be nil")
	}
	if maxBins <= 0 || maxBins > 0xffff {
		return nil, fmt.Errorf("udp publisher: bin count %d out of range", maxBins)
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("invalid publish interval, defaulting to %s", interval)
	}
	return &Publisher{
		sender:   sender,
		spectrum: spectrum,
		interval: interval,
		bins:     make([]byte, maxBins),
	}, nil
}

// Start launches the publishing goroutine. Starting twice is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Debugf("publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				if err := p.publish(time.Now()); err != nil {
					logger.Debugf("publish: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Debugf("publisher stopped after %d packets", p.seq)
	return nil
}

// Close stops the publisher and closes its sender.
func (p *Publisher) Close() error {
	return errors.Join(p.Stop(), p.sender.Close())
}

// publish builds and sends one packet. Only the publishing goroutine calls
// it, so the buffers need no lock.
func (p *Publisher) publish(now time.Time) error {
	n := p.spectrum(p.bins)
	n = min(max(n, 0), len(p.bins))

	p.seq++
	p.packet.Reset()
	p.packet.Grow(HeaderSize + n)
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], p.seq)
	binary.BigEndian.PutUint64(header[4:12], uint64(now.UnixNano()))
	binary.BigEndian.PutUint16(header[12:14], uint16(n))
	p.packet.Write(header[:])
	p.packet.Write(p.bins[:n])

	return p.sender.Send(p.packet.Bytes())
}

var _ interface{ Close() error } = (*Publisher)(nil)
