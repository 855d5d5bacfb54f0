// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "voiceeq/internal/log"
	"voiceeq/internal/snapshot"
)

/*
Snapshot packet (big endian):

	| Field        | Type      | Bytes |
	|--------------|-----------|-------|
	| Sequence     | uint32    | 4     |
	| Timestamp    | int64     | 8     | ns since epoch
	| Sample rate  | uint32    | 4     | 0 = no usable data
	| Count (N)    | uint16    | 2     |
	| Magnitudes   | [N]uint8  | N     |

A diagnostic-only snapshot is sent with rate 0 and N = 0.
*/
const HeaderSize = 4 + 8 + 4 + 2

var ErrShortPacket = errors.New("udp: short snapshot packet")

// Packet is a decoded snapshot datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  time.Time
	SampleRate uint32
	Magnitudes []uint8
}

// AppendPacket encodes snap after buf.
func AppendPacket(buf *bytes.Buffer, seq uint32, ts time.Time, snap snapshot.FrequencySnapshot) error {
	mags := snap.Magnitudes
	rate := snap.SampleRate
	if !snap.Usable() {
		mags, rate = nil, 0
	}
	if len(mags) > math.MaxUint16 {
		return fmt.Errorf("udp: %d magnitudes exceed packet limit", len(mags))
	}

	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts.UnixNano())
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint32(rate))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(mags)))
	}
	if err == nil {
		_, err = buf.Write(mags)
	}
	return err
}

// ParsePacket decodes a datagram produced by AppendPacket.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, ErrShortPacket
	}
	n := int(binary.BigEndian.Uint16(data[16:18]))
	if len(data) < HeaderSize+n {
		return Packet{}, fmt.Errorf("%w: want %d magnitudes, have %d bytes", ErrShortPacket, n, len(data)-HeaderSize)
	}
	return Packet{
		Sequence:   binary.BigEndian.Uint32(data[0:4]),
		Timestamp:  time.Unix(0, int64(binary.BigEndian.Uint64(data[4:12]))),
		SampleRate: binary.BigEndian.Uint32(data[12:16]),
		Magnitudes: bytes.Clone(data[HeaderSize : HeaderSize+n]),
	}, nil
}

// Sender is the datagram sink a Publisher writes to.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// UDPPublisher sends each snapshot it is given and, when an interval is
// set, keeps re-sending the latest one until stopped, so a listener that
// starts late or drops a datagram still gets the chart.
type UDPPublisher struct {
	sender   Sender
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker, doneChan, latest, packetBuffer

	sequenceNum uint32
	latest      *snapshot.FrequencySnapshot

	packetBuffer *bytes.Buffer
}

// NewUDPPublisher wraps sender. An interval of zero disables repeats.
func NewUDPPublisher(interval time.Duration, sender Sender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval < 0 {
		interval = 0
	}
	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		now:          time.Now,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send publishes a snapshot immediately. It accepts FrequencySnapshot
// values or pointers; anything else is ignored.
func (p *UDPPublisher) Send(data any) error {
	var snap snapshot.FrequencySnapshot
	switch v := data.(type) {
	case snapshot.FrequencySnapshot:
		snap = v
	case *snapshot.FrequencySnapshot:
		if v == nil {
			return nil
		}
		snap = *v
	case interface{ Snapshot() snapshot.FrequencySnapshot }:
		snap = v.Snapshot()
	default:
		applog.Debugf("UDPPublisher: Ignoring payload of type %T", data)
		return nil
	}

	p.mu.Lock()
	p.latest = &snap
	p.mu.Unlock()
	return p.buildAndSendPacket()
}

// Start begins re-sending the latest snapshot every interval. It is a no-op
// without an interval or when already running.
func (p *UDPPublisher) Start() {
	if p.interval <= 0 {
		return
	}

	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Repeating latest snapshot every %s", p.interval)
		for {
			select {
			case <-ticker.C:
				p.mu.Lock()
				ready := p.latest != nil
				p.mu.Unlock()
				if !ready {
					continue
				}
				if err := p.buildAndSendPacket(); err != nil {
					applog.Warnf("UDPPublisher: Repeat send failed: %v", err)
				}
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop ends the repeat loop and waits for it to exit.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Sequence returns the number of packets built so far.
func (p *UDPPublisher) Sequence() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequenceNum
}

func (p *UDPPublisher) buildAndSendPacket() error {
	p.mu.Lock()
	p.sequenceNum++
	seq := p.sequenceNum
	p.packetBuffer.Reset()
	err := AppendPacket(p.packetBuffer, seq, p.now(), *p.latest)
	packet := bytes.Clone(p.packetBuffer.Bytes())
	p.mu.Unlock()

	if err != nil {
		applog.Errorf("UDPPublisher: Error packing snapshot: %v", err)
		return err
	}
	if err := p.sender.Send(packet); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", seq, len(packet))
	return nil
}

// Close stops repeating and closes the sender.
func (p *UDPPublisher) Close() error {
	p.Stop()
	return p.sender.Close()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
