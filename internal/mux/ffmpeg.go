// Package mux combines the generated image sequence and PCM stream into a
// container file by running ffmpeg.
package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zsiec/syncgen/internal/media"
	"github.com/zsiec/syncgen/internal/timebase"
)

// Input describes one mux invocation.
type Input struct {
	// FramePattern is the printf pattern of the numbered image sequence.
	FramePattern string
	FrameRate    timebase.Rational
	// PCMPath is raw mono s16le audio at SampleRate.
	PCMPath    string
	SampleRate int64
	Output     string
}

// ToolError reports a mux tool that failed. It is not retried.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("mux: %s failed (exit %d): %v", e.Tool, e.ExitCode, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// FFmpeg muxes with the ffmpeg command line tool.
type FFmpeg struct {
	// Binary is the executable to run; empty selects "ffmpeg" from PATH.
	Binary string
	Logger *slog.Logger
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

// Args returns the ffmpeg arguments for in. Outputs ending in .ts are
// written as MPEG-TS so they can be pushed over SRT.
func (f *FFmpeg) Args(in Input) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-framerate", in.FrameRate.String(),
		"-i", in.FramePattern,
		"-channel_layout", "mono",
		"-f", media.SampleFormat,
		"-ac", strconv.Itoa(media.Channels),
		"-ar", strconv.FormatInt(in.SampleRate, 10),
		"-i", in.PCMPath,
		"-pix_fmt", "yuv420p",
		"-b:a", "192k",
	}
	if IsTransportStream(in.Output) {
		args = append(args, "-f", "mpegts")
	}
	return append(args, "-y", in.Output)
}

// Mux runs ffmpeg and waits for it. A non-zero exit yields a *ToolError
// carrying the exit status and the tool's output.
func (f *FFmpeg) Mux(ctx context.Context, in Input) error {
	log := f.Logger
	if log == nil {
		log = slog.Default()
	}
	args := f.Args(in)
	log.Debug("running mux tool", "tool", f.binary(), "args", strings.Join(args, " "))

	out, err := exec.CommandContext(ctx, f.binary(), args...).CombinedOutput()
	if err != nil {
		code := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
		return &ToolError{Tool: f.binary(), ExitCode: code, Output: string(out), Err: err}
	}
	log.Info("muxed clip", "output", in.Output)
	return nil
}

// IsTransportStream reports whether path names an MPEG-TS file.
func IsTransportStream(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".m2ts", ".mts":
		return true
	}
	return false
}
