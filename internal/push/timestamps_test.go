package push

import (
	"context"
	"testing"
	"time"
)

// pesPacket builds a TS packet starting a video PES with PTS and DTS.
func pesPacket(pts, dts int64) []byte {
	pkt := make([]byte, TSPacketSize)
	pkt[0] = tsSyncByte
	pkt[1] = 0x40 | 0x01 // PUSI, PID 0x100
	pkt[2] = 0x00
	pkt[3] = 0x10 // payload only
	pes := pkt[4:]
	copy(pes, []byte{0, 0, 1, 0xE0, 0, 0, 0x80, 0xC0, 10})
	pes[9] = 0x30
	putPTS(pes[9:], pts)
	pes[14] = 0x10
	putPTS(pes[14:], dts)
	return pkt
}

// pcrPacket builds a TS packet whose adaptation field carries a PCR.
func pcrPacket(base int64, ext uint16) []byte {
	pkt := make([]byte, TSPacketSize)
	pkt[0] = tsSyncByte
	pkt[1] = 0x01
	pkt[3] = 0x20 // adaptation only
	pkt[4] = 183
	pkt[5] = 0x10 // PCR flag
	pkt[10] = byte(ext >> 8)
	pkt[11] = byte(ext)
	putPCR(pkt[6:], base)
	return pkt
}

func TestTimestampFieldRoundTrip(t *testing.T) {
	t.Parallel()
	for _, v := range []int64{0, 1, 90000, 1<<32 + 12345, 1<<33 - 1} {
		b := []byte{0x20, 0, 0, 0, 0}
		putPTS(b, v)
		if got := readPTS(b); got != v {
			t.Errorf("PTS %d read back as %d", v, got)
		}
		if b[0]&0xF0 != 0x20 || b[0]&1 != 1 || b[2]&1 != 1 || b[4]&1 != 1 {
			t.Errorf("PTS %d: prefix or marker bits lost: % x", v, b)
		}

		p := make([]byte, 6)
		p[4], p[5] = 0x01, 0x2C // extension 300
		putPCR(p, v)
		if got := readPCR(p); got != v {
			t.Errorf("PCR %d read back as %d", v, got)
		}
		if ext := uint16(p[4]&1)<<8 | uint16(p[5]); ext != 300 {
			t.Errorf("PCR %d: extension = %d, want 300", v, ext)
		}
	}
}

func TestShiftTimestamps(t *testing.T) {
	t.Parallel()
	data := append(pesPacket(126000, 123000), pcrPacket(120000, 7)...)
	data = append(data, tsData(1)...)

	sites := findTimestamps(data)
	if len(sites) != 3 {
		t.Fatalf("found %d timestamps, want 3", len(sites))
	}
	shiftTimestamps(data, sites, 90000)

	if got := readPTS(data[4+9:]); got != 216000 {
		t.Errorf("PTS = %d, want 216000", got)
	}
	if got := readPTS(data[4+14:]); got != 213000 {
		t.Errorf("DTS = %d, want 213000", got)
	}
	if got := readPCR(data[TSPacketSize+6:]); got != 210000 {
		t.Errorf("PCR = %d, want 210000", got)
	}

	// 33-bit wrap.
	wrap := pesPacket(1<<33-10, 1<<33-10)
	shiftTimestamps(wrap, findTimestamps(wrap), 20)
	if got := readPTS(wrap[4+9:]); got != 10 {
		t.Errorf("wrapped PTS = %d, want 10", got)
	}
}

func TestLoopTicks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{time.Second, 90000},
		{51200 * time.Millisecond, 4608000},
		// 34 cycles of 9 frames at 30000/1001 fps.
		{time.Duration(102102) * time.Second / 10000, 918918},
	}
	for _, tt := range tests {
		if got := loopTicks(tt.d); got != tt.want {
			t.Errorf("loopTicks(%s) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestPushLoopsAdvanceTimestamps(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{}
	clk := &fakeClock{t: time.Unix(0, 0)}
	p, _ := newTestPusher(conn, clk)
	data := pesPacket(126000, 126000)
	orig := append([]byte(nil), data...)

	_, err := p.Push(context.Background(), Request{Address: "x", Data: data, Duration: 2 * time.Second, Loops: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(conn.writes) != 3 {
		t.Fatalf("%d writes, want 3", len(conn.writes))
	}
	for i, want := range []int64{126000, 306000, 486000} {
		if got := readPTS(conn.writes[i][4+9:]); got != want {
			t.Errorf("loop %d PTS = %d, want %d", i, got, want)
		}
	}
	if string(data) != string(orig) {
		t.Error("request data modified")
	}
}
