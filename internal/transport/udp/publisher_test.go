// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"math"
	"net"
	"os"
	"testing"
	"time"
)

func listen(t *testing.T) net.PacketConn {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { pc.Close() })
	return pc
}

func readPacket(t *testing.T, pc net.PacketConn) Packet {
	t.Helper()
	buf := make([]byte, 65536)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	pkt, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return pkt
}

func TestPacketRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	values := []float32{1.5, -2, float32(math.Inf(-1))}

	var buf bytes.Buffer
	if err := EncodePacket(&buf, 7, ts, values); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != headerSize+4*len(values) {
		t.Fatalf("packet is %d bytes, want %d", buf.Len(), headerSize+4*len(values))
	}

	// Header fields are big-endian.
	raw := buf.Bytes()
	if raw[3] != 7 || raw[13] != 3 {
		t.Errorf("header bytes = % x", raw[:headerSize])
	}

	pkt, err := DecodePacket(raw)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Sequence != 7 || !pkt.Timestamp.Equal(ts) {
		t.Errorf("header = %d %v", pkt.Sequence, pkt.Timestamp)
	}
	if pkt.Values[0] != 1.5 || pkt.Values[1] != -2 || !math.IsInf(float64(pkt.Values[2]), -1) {
		t.Errorf("values = %v", pkt.Values)
	}
}

func TestDecodePacketErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Short header", make([]byte, headerSize-1)},
		{"Count mismatch", append(make([]byte, 13), 2, 0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePacket(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPublisherSendsLatestSnapshot(t *testing.T) {
	pc := listen(t)
	sender, err := NewSender(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	pub, err := NewPublisher(5*time.Millisecond, sender, 4)
	if err != nil {
		t.Fatal(err)
	}
	pub.Start()
	pub.Start() // no-op while running
	defer pub.Stop()

	pub.Publish([]float64{10, 20, 30, 40, 50})
	pkt := readPacket(t, pc)
	if pkt.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", pkt.Sequence)
	}
	want := []float32{10, 20, 30, 40}
	for i := range want {
		if pkt.Values[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, pkt.Values[i], want[i])
		}
	}

	// A short snapshot is zero-padded.
	pub.Publish([]float64{1})
	pkt = readPacket(t, pc)
	if pkt.Sequence != 2 || pkt.Values[0] != 1 || pkt.Values[3] != 0 {
		t.Errorf("second packet = %+v", pkt)
	}

	// Nothing new, nothing sent.
	pc.SetReadDeadline(time.Now().Add(30 * time.Millisecond))
	if _, _, err := pc.ReadFrom(make([]byte, 1024)); !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Errorf("expected no packet without a new snapshot, got err=%v", err)
	}
}

func TestPublisherStopIdempotent(t *testing.T) {
	pc := listen(t)
	sender, err := NewSender(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	pub, err := NewPublisher(0, sender, 53)
	if err != nil {
		t.Fatal(err)
	}
	if pub.interval != DefaultInterval {
		t.Errorf("interval = %v, want default", pub.interval)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	pub.Start()
	if err := pub.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close after Stop: %v", err)
	}
}

func TestNewPublisherErrors(t *testing.T) {
	if _, err := NewPublisher(time.Millisecond, nil, 10); err == nil {
		t.Error("expected error for nil sender")
	}

	pc := listen(t)
	sender, err := NewSender(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()
	for _, count := range []int{0, maxValues + 1} {
		if _, err := NewPublisher(time.Millisecond, sender, count); err == nil {
			t.Errorf("expected error for count %d", count)
		}
	}
}

func TestSender(t *testing.T) {
	if _, err := NewSender("not an address"); err == nil {
		t.Error("expected error for bad address")
	}

	pc := listen(t)
	sender, err := NewSender(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	if err := sender.Send([]byte("ping")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	buf := make([]byte, 16)
	pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Errorf("received %q, %v", buf[:n], err)
	}

	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := sender.Send([]byte("late")); err == nil {
		t.Error("expected error after Close")
	}
}
