// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval paces packets at roughly the display frame rate.
const DefaultInterval = 25 * time.Millisecond

// Publisher sends the most recent spectrum snapshot over UDP at a fixed
// interval. The display loop hands it values with Publish and never waits on
// the network; a tick without a new snapshot sends nothing.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	ticker   *time.Ticker   // Triggers packet sending.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	dataMu sync.Mutex
	latest []float32 // Last published snapshot, guarded by dataMu
	fresh  bool      // latest has not been sent yet

	// Owned by the publisher goroutine.
	sequenceNum  uint32
	sendBuf      []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher for snapshots of count values.
// If the provided interval is invalid (<= 0), it defaults to DefaultInterval.
func NewPublisher(interval time.Duration, sender *Sender, count int) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("UDP sender cannot be nil")
	}
	if count <= 0 || count > maxValues {
		return nil, fmt.Errorf("invalid value count %d", count)
	}

	if interval <= 0 {
		interval = DefaultInterval
		logger.Warnf("invalid interval provided, defaulting to %s", interval)
	}

	logger.Infof("publishing %d values every %s", count, interval)

	return &Publisher{
		sender:       sender,
		interval:     interval,
		latest:       make([]float32, count),
		sendBuf:      make([]float32, count),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Publish records values as the latest snapshot. Extra values are ignored and
// missing ones are sent as zero.
func (p *Publisher) Publish(values []float64) {
	p.dataMu.Lock()
	n := copy32(p.latest, values)
	clear(p.latest[n:])
	p.fresh = true
	p.dataMu.Unlock()
}

func copy32(dst []float32, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i])
	}
	return n
}

// Start begins the periodic publishing process. Calling it while running is
// a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture locals so the goroutine does not race Stop on the fields.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. It is safe to call Stop multiple times.
func (p *Publisher) Stop() error {
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
	logger.Debugf("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |     Count     |         Values          |
|      (uint32)     |   (int64, ns epoch)   |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+

Values are the power of the displayed bins; silent bins are -Inf.
*/

const (
	headerSize = 4 + 8 + 2
	maxValues  = (65507 - headerSize) / 4 // Largest IPv4 UDP payload
)

// Packet is a decoded telemetry packet.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Values    []float32
}

// EncodePacket writes one packet into buf.
func EncodePacket(buf *bytes.Buffer, seq uint32, ts time.Time, values []float32) error {
	if len(values) > maxValues {
		return fmt.Errorf("too many values: %d", len(values))
	}
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts.UnixNano())
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(values)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, values)
	}
	return err
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, fmt.Errorf("short packet: %d bytes", len(data))
	}
	count := int(binary.BigEndian.Uint16(data[12:14]))
	if len(data) != headerSize+4*count {
		return Packet{}, fmt.Errorf("packet length %d does not match count %d", len(data), count)
	}

	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(data[4:12]))),
		Values:    make([]float32, count),
	}
	if err := binary.Read(bytes.NewReader(data[headerSize:]), binary.BigEndian, pkt.Values); err != nil {
		return Packet{}, err
	}
	return pkt, nil
}

// buildAndSendPacket sends the latest snapshot if it has not been sent yet.
func (p *Publisher) buildAndSendPacket() {
	p.dataMu.Lock()
	if !p.fresh {
		p.dataMu.Unlock()
		return
	}
	copy(p.sendBuf, p.latest)
	p.fresh = false
	p.dataMu.Unlock()

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, time.Now(), p.sendBuf); err != nil {
		logger.Errorf("error packing data into binary buffer: %v", err)
		return
	}

	// Send logs its own errors.
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		logger.Debugf("sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// Close implements io.Closer. It stops the publisher goroutine.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
