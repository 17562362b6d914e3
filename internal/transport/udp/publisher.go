// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "tempo/internal/log"
	"tempo/internal/monitor"
)

// ResultSource supplies the monitor snapshots to publish.
type ResultSource interface {
	List() []monitor.Entry
}

/*
Packet layout (BigEndian):

	| Field           | Type    | Size | Description                    |
	|-----------------|---------|------|--------------------------------|
	| Sequence Number | uint32  | 4    | Monotonically increasing       |
	| Timestamp       | int64   | 8    | Nanoseconds since epoch        |
	| Monitor Count   | uint16  | 2    | Number of records that follow  |

	per monitor record:

	| Monitor ID      | uint32  | 4    |                                |
	| Active          | uint8   | 1    | 1 = active                     |
	| Status          | uint8   | 1    | detect.Status numeric value    |
	| BPM             | float32 | 4    |                                |
	| Confidence      | float32 | 4    |                                |
	| Signal Level    | float32 | 4    |                                |
*/

// Publisher periodically snapshots the monitor set, packs it into the
// binary layout above, and ships it through a Sender. Runs in its own
// goroutine between Start and Stop.
type Publisher struct {
	sender   *Sender
	source   ResultSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher sending one packet per interval. An
// interval <= 0 falls back to 100ms.
func NewPublisher(interval time.Duration, sender *Sender, source ResultSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("publisher requires a UDP sender")
	}
	if source == nil {
		return nil, fmt.Errorf("publisher requires a result source")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
		applog.Warnf("UDP publisher: invalid interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. A second Start without an
// intervening Stop is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP publisher: Start called but already running")
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
		applog.Infof("UDP publisher: started (interval %s)", p.interval)
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

// Stop signals the goroutine to exit and waits for it. Safe to call twice.
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
	applog.Infof("UDP publisher: stopped")
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}

func (p *Publisher) buildAndSendPacket() {
	entries := p.source.List()

	p.sequenceNum++
	if err := p.encodePacket(p.packetBuffer, p.sequenceNum, time.Now().UnixNano(), entries); err != nil {
		applog.Errorf("UDP publisher: error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Debugf("UDP publisher: send failed: %v", err)
		return
	}
	applog.Debugf("UDP publisher: sent packet %d (%d monitors)", p.sequenceNum, len(entries))
}

// encodePacket serializes one snapshot into buf, resetting it first.
func (p *Publisher) encodePacket(buf *bytes.Buffer, seq uint32, timestamp int64, entries []monitor.Entry) error {
	buf.Reset()

	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(entries)))
	}

	for _, e := range entries {
		if err != nil {
			break
		}
		var active uint8
		if e.Active {
			active = 1
		}
		err = binary.Write(buf, binary.BigEndian, e.ID)
		if err == nil {
			err = binary.Write(buf, binary.BigEndian, active)
		}
		if err == nil {
			err = binary.Write(buf, binary.BigEndian, uint8(e.Result.Status))
		}
		if err == nil {
			err = binary.Write(buf, binary.BigEndian, float32(e.Result.BPM))
		}
		if err == nil {
			err = binary.Write(buf, binary.BigEndian, float32(e.Result.Confidence))
		}
		if err == nil {
			err = binary.Write(buf, binary.BigEndian, float32(e.Result.SignalLevel))
		}
	}
	return err
}
