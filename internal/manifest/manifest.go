// Package manifest writes the JSON sidecar that describes a generated
// clip, so an analyzer can check the positions it detects against the
// positions the generator intended.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/zsiec/syncgen/internal/pattern"
	"github.com/zsiec/syncgen/internal/schedule"
)

// Pattern describes one pattern as generated.
type Pattern struct {
	FlashFrames   int64  `json:"q"`
	ToneFrequency int64  `json:"f"`
	CycleCount    int64  `json:"c"`
	Flags         uint8  `json:"t"`
	FlashMillis   int64  `json:"flashMillis"`
	BurstSamples  int64  `json:"burstSamples"`
	FirstFrame    int64  `json:"firstFrame"`
	FirstSync     int64  `json:"firstSyncSample"`
	FirstPayload  string `json:"firstPayload"`
}

// Manifest is the sidecar document.
type Manifest struct {
	RunID        string    `json:"runId"`
	Generated    string    `json:"generated"`
	Output       string    `json:"output"`
	FrameRate    string    `json:"frameRate"`
	SampleRate   int64     `json:"sampleRate"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Duration     string    `json:"duration"`
	DurationSec  float64   `json:"durationSec"`
	Repeats      int64     `json:"repeats"`
	VideoFrames  int64     `json:"videoFrames"`
	AudioSamples int64     `json:"audioSamples"`
	Ordering     string    `json:"ordering"`
	Patterns     []Pattern `json:"patterns"`
}

// Build describes plan. The sync sample of each pattern's first cycle is
// the sample at which its burst crosses from alignment image A to B.
func Build(plan *schedule.Plan, patterns []*pattern.Pattern, output string, width, height int) Manifest {
	tb := plan.Timebase
	m := Manifest{
		RunID:        uuid.Must(uuid.NewV7()).String(),
		Generated:    time.Now().UTC().Format(time.RFC3339),
		Output:       output,
		FrameRate:    tb.FrameRate.String(),
		SampleRate:   tb.SampleRate,
		Width:        width,
		Height:       height,
		Duration:     plan.Duration.String(),
		DurationSec:  plan.Duration.Float64(),
		Repeats:      plan.Repeats,
		VideoFrames:  plan.FrameCount(),
		AudioSamples: plan.SampleCount(),
		Ordering:     "pattern-major",
	}
	var first int64
	for _, p := range patterns {
		cfg, codec := p.Config(), p.Codec()
		m.Patterns = append(m.Patterns, Pattern{
			FlashFrames:   cfg.FlashFrames,
			ToneFrequency: cfg.ToneFrequency,
			CycleCount:    cfg.CycleCount,
			Flags:         uint8(codec.Params().Flags),
			FlashMillis:   codec.FlashMillis(),
			BurstSamples:  codec.BurstSamples(),
			FirstFrame:    first,
			FirstSync:     tb.ToSamples(first) + codec.SyncSamples(),
			FirstPayload:  codec.Payload(0),
		})
		first += p.FrameCount() * plan.Repeats
	}
	return m
}

// Path returns the sidecar path for a clip.
func Path(output string) string {
	return output + ".json"
}

// Write stores m as indented JSON.
func Write(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	return m, nil
}
