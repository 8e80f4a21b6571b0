// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"enginesound/internal/telemetry"
)

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("UDP loopback unavailable: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSnapshotTransportRoundTrip(t *testing.T) {
	conn := listenUDP(t)

	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error: %v", err)
	}
	st, err := NewSnapshotTransport(sender)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	snap := telemetry.Snapshot{
		Timestamp:    1234567890,
		Latency:      0.025,
		LevelerGain:  1.5,
		LeadFill:     0.75,
		OutputFill:   2000,
		Underruns:    3,
		Overruns:     4,
		DroppedInput: 5,
		Resyncs:      6,
		Bands:        []telemetry.Band{{Name: "rumble", Level: 0.5}, {Name: "mid", Level: 0.25}},
	}

	for range 2 {
		if err := st.Send(snap); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}

	buf := make([]byte, 1500)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var last Packet
	for range 2 {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP() error: %v", err)
		}
		if n != HeaderSize+8 {
			t.Fatalf("packet length = %d, want %d", n, HeaderSize+8)
		}
		last, err = DecodePacket(buf[:n])
		if err != nil {
			t.Fatalf("DecodePacket() error: %v", err)
		}
	}

	if last.Sequence != 2 {
		t.Errorf("Sequence = %d, want 2", last.Sequence)
	}
	if last.Timestamp != snap.Timestamp || last.OutputFill != 2000 || last.Resyncs != 6 {
		t.Errorf("decoded header %+v does not match snapshot", last)
	}
	if last.LevelerGain != 1.5 || last.LeadFill != 0.75 {
		t.Errorf("decoded floats gain=%v lead=%v", last.LevelerGain, last.LeadFill)
	}
	if len(last.Bands) != 2 || last.Bands[0] != 0.5 || last.Bands[1] != 0.25 {
		t.Errorf("Bands = %v, want [0.5 0.25]", last.Bands)
	}
}

func TestSnapshotTransportRejectsPayload(t *testing.T) {
	conn := listenUDP(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	st, _ := NewSnapshotTransport(sender)

	if err := st.Send([]float64{1, 2}); err == nil {
		t.Error("Send() accepted a non-snapshot payload")
	}

	st.Close()
	if err := st.Send(&telemetry.Snapshot{}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send() after Close = %v, want ErrSenderClosed", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestDecodePacketErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", make([]byte, HeaderSize-1)},
		{"band count mismatch", append(make([]byte, HeaderSize-2), 0, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePacket(tt.data); err == nil {
				t.Error("DecodePacket() returned no error")
			}
		})
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not-an-address"); err == nil {
		t.Error("NewUDPSender() accepted an address without a port")
	}
	if _, err := NewSnapshotTransport(nil); err == nil {
		t.Error("NewSnapshotTransport(nil) should fail")
	}
}
