package push

import "time"

// ClockRate is the MPEG-TS system clock base in ticks per second.
const ClockRate = 90000

const tsSyncByte = 0x47

// timestamp locates one PTS, DTS or PCR field inside a clip.
type timestamp struct {
	offset int
	pcr    bool // 6-byte adaptation field PCR; otherwise a 5-byte PES PTS/DTS
}

// findTimestamps returns the location of every PCR and every audio or
// video PTS/DTS in data.
func findTimestamps(data []byte) []timestamp {
	var out []timestamp
	for off := 0; off+TSPacketSize <= len(data); off += TSPacketSize {
		pkt := data[off : off+TSPacketSize]
		if pkt[0] != tsSyncByte {
			continue
		}
		hasAdapt := pkt[3]&0x20 != 0
		hasPayload := pkt[3]&0x10 != 0

		pos := 4
		if hasAdapt {
			afLen := int(pkt[pos])
			if afLen >= 7 && pkt[pos+1]&0x10 != 0 {
				out = append(out, timestamp{offset: off + pos + 2, pcr: true})
			}
			pos += 1 + afLen
		}

		if pkt[1]&0x40 == 0 || !hasPayload || pos >= TSPacketSize {
			continue
		}
		pes := pkt[pos:]
		if len(pes) < 14 || pes[0] != 0 || pes[1] != 0 || pes[2] != 1 {
			continue
		}
		if sid := pes[3]; sid < 0xC0 || sid > 0xEF {
			continue
		}
		if pes[7]&0x80 != 0 {
			out = append(out, timestamp{offset: off + pos + 9})
		}
		if pes[7]&0x40 != 0 && len(pes) >= 19 {
			out = append(out, timestamp{offset: off + pos + 14})
		}
	}
	return out
}

// shiftTimestamps adds delta ticks to every located timestamp. Values wrap
// at 33 bits like the fields themselves.
func shiftTimestamps(data []byte, sites []timestamp, delta int64) {
	for _, s := range sites {
		b := data[s.offset:]
		if s.pcr {
			putPCR(b, readPCR(b)+delta)
		} else {
			putPTS(b, readPTS(b)+delta)
		}
	}
}

// loopTicks converts a clip duration to the timestamp advance per loop.
func loopTicks(d time.Duration) int64 {
	return (int64(d)*ClockRate + int64(time.Second)/2) / int64(time.Second)
}

func readPTS(b []byte) int64 {
	return int64(b[0]>>1&0x07)<<30 |
		int64(b[1])<<22 |
		int64(b[2]>>1)<<15 |
		int64(b[3])<<7 |
		int64(b[4]>>1)
}

// putPTS keeps the 4-bit prefix of the first byte and sets the marker bits.
func putPTS(b []byte, v int64) {
	b[0] = b[0]&0xF0 | byte(v>>29&0x0E) | 0x01
	b[1] = byte(v >> 22)
	b[2] = byte(v>>14&0xFE) | 0x01
	b[3] = byte(v >> 7)
	b[4] = byte(v<<1&0xFE) | 0x01
}

// readPCR returns the 33-bit base; the 9-bit extension is ignored.
func readPCR(b []byte) int64 {
	return int64(b[0])<<25 |
		int64(b[1])<<17 |
		int64(b[2])<<9 |
		int64(b[3])<<1 |
		int64(b[4]>>7)
}

// putPCR writes the base and keeps the extension.
func putPCR(b []byte, base int64) {
	ext := uint16(b[4]&0x01)<<8 | uint16(b[5])
	b[0] = byte(base >> 25)
	b[1] = byte(base >> 17)
	b[2] = byte(base >> 9)
	b[3] = byte(base >> 1)
	b[4] = byte(base&1)<<7 | 0x7E | byte(ext>>8)
	b[5] = byte(ext)
}
