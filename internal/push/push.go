// Package push streams a muxed MPEG-TS clip to an SRT listener in real
// time, so a generated sync clip can be fed straight into the system under
// test.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

// TSPacketSize is the fixed size of an MPEG-TS packet.
const TSPacketSize = 188

// ChunkSize is the SRT payload written per call: seven TS packets.
const ChunkSize = TSPacketSize * 7

// latencyNs is the SRT latency setting in nanoseconds (120ms).
const latencyNs = 120_000_000

// DefaultDialTimeout bounds how long Push waits for the SRT handshake.
const DefaultDialTimeout = 10 * time.Second

// Conn is the write side of an SRT connection.
type Conn interface {
	Write(b []byte) (int, error)
	Close() error
}

// Dialer opens a caller-mode connection to addr with the given stream ID.
type Dialer func(addr, streamID string) (Conn, error)

// DialSRT dials with srtgo using the default configuration.
func DialSRT(addr, streamID string) (Conn, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs
	cfg.StreamID = streamID
	conn, err := srtgo.Dial(addr, cfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Request describes one push.
type Request struct {
	Address  string
	StreamID string
	// Data is the MPEG-TS payload.
	Data []byte
	// Duration is the playback length of Data; writes are paced so Data
	// takes this long to send.
	Duration time.Duration
	// Loops is the number of times Data is sent; 0 sends it once. Data
	// itself is never modified.
	Loops int
}

// Stats summarizes a finished push.
type Stats struct {
	Bytes  int64
	Chunks int
	Loops  int
}

// Pusher sends clips over SRT. The zero value dials with DialSRT and
// paces against the wall clock.
type Pusher struct {
	Dial        Dialer
	DialTimeout time.Duration
	Logger      *slog.Logger

	// now and sleep are replaced in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func (p *Pusher) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default().With("component", "srt-push")
	}
	return p.Logger.With("component", "srt-push")
}

// Push connects to req.Address and writes req.Data in ChunkSize pieces,
// pacing against a single clock so timing stays continuous across loop
// boundaries. It returns when every loop is sent, the connection fails, or
// ctx is cancelled.
func (p *Pusher) Push(ctx context.Context, req Request) (Stats, error) {
	if req.Address == "" {
		return Stats{}, errors.New("push: address is required")
	}
	if len(req.Data) == 0 {
		return Stats{}, errors.New("push: no data")
	}
	if req.Duration <= 0 {
		return Stats{}, fmt.Errorf("push: duration %s must be positive", req.Duration)
	}
	loops := max(req.Loops, 1)
	log := p.logger().With("stream_id", req.StreamID, "addr", req.Address)
	if len(req.Data)%TSPacketSize != 0 {
		log.Warn("clip size not a multiple of the TS packet size", "bytes", len(req.Data))
	}

	conn, err := p.dial(ctx, req.Address, req.StreamID)
	if err != nil {
		return Stats{}, err
	}
	defer conn.Close()
	log.Info("connected", "loops", loops, "duration", req.Duration)

	now := p.now
	if now == nil {
		now = time.Now
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	// Looped copies advance every PTS/DTS/PCR by the clip duration so the
	// listener sees one continuous stream.
	data := req.Data
	var sites []timestamp
	if loops > 1 {
		data = append([]byte(nil), req.Data...)
		sites = findTimestamps(data)
		log.Debug("timestamps located", "count", len(sites))
	}
	delta := loopTicks(req.Duration)

	bytesPerSec := float64(len(data)) / req.Duration.Seconds()
	start := now()
	var st Stats
	for st.Loops < loops {
		if st.Loops > 0 {
			shiftTimestamps(data, sites, delta)
		}
		for i := 0; i < len(data); i += ChunkSize {
			end := min(i+ChunkSize, len(data))
			if _, err := conn.Write(data[i:end]); err != nil {
				return st, fmt.Errorf("push: write: %w", err)
			}
			st.Bytes += int64(end - i)
			st.Chunks++

			expected := time.Duration(float64(st.Bytes) / bytesPerSec * float64(time.Second))
			if ahead := expected - now().Sub(start); ahead > 0 {
				if err := sleep(ctx, ahead); err != nil {
					return st, err
				}
			}
		}
		st.Loops++
		log.Debug("loop complete", "loop", st.Loops, "bytes", st.Bytes)
	}
	log.Info("push finished", "bytes", st.Bytes, "loops", st.Loops)
	return st, nil
}

// dial runs the dialer with a timeout. A connection that arrives after the
// timeout or cancellation is closed in the background.
func (p *Pusher) dial(ctx context.Context, addr, streamID string) (Conn, error) {
	dialer := p.Dial
	if dialer == nil {
		dialer = DialSRT
	}
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	type dialResult struct {
		conn Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := dialer(addr, streamID)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	drain := func() {
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
	}
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("push: SRT dial %s: %w", addr, res.err)
		}
		return res.conn, nil
	case <-timer.C:
		drain()
		return nil, fmt.Errorf("push: SRT dial %s timed out after %s", addr, timeout)
	case <-ctx.Done():
		drain()
		return nil, ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
