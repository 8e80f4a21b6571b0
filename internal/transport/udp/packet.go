// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"enginesound/internal/telemetry"
	"enginesound/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Latency           | float32        | 4            | Seconds                 |
| Leveler Gain      | float32        | 4            |                         |
| Lead Fill         | float32        | 4            | Device lead / target    |
| Output Fill       | uint32         | 4            | Samples                 |
| Underruns         | uint32         | 4            | Cumulative              |
| Overruns          | uint32         | 4            | Cumulative              |
| Dropped Input     | uint32         | 4            | Cumulative              |
| Resyncs           | uint32         | 4            | Cumulative              |
| Band Count        | uint16         | 2            | Number of floats (N)    |
| Band Levels       | []float32      | N * 4        | In [0, 1]               |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the packet length without band levels.
const HeaderSize = 4 + 8 + 3*4 + 5*4 + 2

// Packet is the decoded form of one telemetry datagram.
type Packet struct {
	Sequence     uint32
	Timestamp    int64
	Latency      float32
	LevelerGain  float32
	LeadFill     float32
	OutputFill   uint32
	Underruns    uint32
	Overruns     uint32
	DroppedInput uint32
	Resyncs      uint32
	Bands        []float32
}

// SnapshotTransport encodes telemetry Snapshots into packets and sends them
// with a UDPSender.
type SnapshotTransport struct {
	sender *UDPSender

	mu           sync.Mutex
	sequenceNum  uint32
	packetBuffer *bytes.Buffer
	bandBuffer   []float32
}

func NewSnapshotTransport(sender *UDPSender) (*SnapshotTransport, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP sender cannot be nil")
	}
	return &SnapshotTransport{sender: sender, packetBuffer: new(bytes.Buffer)}, nil
}

// Send accepts telemetry.Snapshot values and pointers to them.
func (t *SnapshotTransport) Send(data any) error {
	var snap *telemetry.Snapshot
	switch v := data.(type) {
	case telemetry.Snapshot:
		snap = &v
	case *telemetry.Snapshot:
		snap = v
	default:
		return fmt.Errorf("unsupported payload %T", data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sequenceNum++
	if err := t.encode(snap); err != nil {
		return fmt.Errorf("error packing telemetry: %w", err)
	}
	if err := t.sender.Send(t.packetBuffer.Bytes()); err != nil {
		return err
	}
	logger.Debugf("Sent packet %d (%d bytes)", t.sequenceNum, t.packetBuffer.Len())
	return nil
}

func (t *SnapshotTransport) encode(s *telemetry.Snapshot) error {
	t.bandBuffer = t.bandBuffer[:0]
	for _, b := range s.Bands {
		t.bandBuffer = append(t.bandBuffer, float32(b.Level))
	}

	header := struct {
		Sequence     uint32
		Timestamp    int64
		Latency      float32
		LevelerGain  float32
		LeadFill     float32
		OutputFill   uint32
		Underruns    uint32
		Overruns     uint32
		DroppedInput uint32
		Resyncs      uint32
		BandCount    uint16
	}{
		Sequence:     t.sequenceNum,
		Timestamp:    s.Timestamp,
		Latency:      float32(s.Latency),
		LevelerGain:  float32(s.LevelerGain),
		LeadFill:     float32(s.LeadFill),
		OutputFill:   uint32(s.OutputFill),
		Underruns:    uint32(s.Underruns),
		Overruns:     uint32(s.Overruns),
		DroppedInput: uint32(s.DroppedInput),
		Resyncs:      uint32(s.Resyncs),
		BandCount:    uint16(len(t.bandBuffer)),
	}

	t.packetBuffer.Reset()
	if err := binary.Write(t.packetBuffer, binary.BigEndian, &header); err != nil {
		return err
	}
	return binary.Write(t.packetBuffer, binary.BigEndian, t.bandBuffer)
}

// DecodePacket parses one datagram.
func DecodePacket(b []byte) (Packet, error) {
	var p Packet
	if len(b) < HeaderSize {
		return p, fmt.Errorf("packet too short: %d bytes", len(b))
	}

	be := binary.BigEndian
	p.Sequence = be.Uint32(b[0:])
	p.Timestamp = int64(be.Uint64(b[4:]))
	p.Latency = math.Float32frombits(be.Uint32(b[12:]))
	p.LevelerGain = math.Float32frombits(be.Uint32(b[16:]))
	p.LeadFill = math.Float32frombits(be.Uint32(b[20:]))
	p.OutputFill = be.Uint32(b[24:])
	p.Underruns = be.Uint32(b[28:])
	p.Overruns = be.Uint32(b[32:])
	p.DroppedInput = be.Uint32(b[36:])
	p.Resyncs = be.Uint32(b[40:])
	n := int(be.Uint16(b[44:]))

	if len(b) != HeaderSize+4*n {
		return p, fmt.Errorf("packet length %d does not match %d bands", len(b), n)
	}
	p.Bands = make([]float32, n)
	for i := range p.Bands {
		p.Bands[i] = math.Float32frombits(be.Uint32(b[HeaderSize+4*i:]))
	}
	return p, nil
}

// Close closes the underlying sender.
func (t *SnapshotTransport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*SnapshotTransport)(nil)
