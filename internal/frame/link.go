package frame

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zsiec/syncgen/internal/media"
)

// SequenceName is the printf pattern of numbered frame files written by
// Link, in the form image-sequence demuxers expect.
const SequenceName = "frame-%06d.png"

// Link lays frames out in dir as a numbered image sequence. dir is
// recreated empty. Each entry is a hard link to the stored image so
// repeated frames cost no extra storage; filesystems that refuse links get
// a copy instead. It returns the printf pattern of the sequence.
func Link(frames []media.Frame, dir string) (string, error) {
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("frame: clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("frame: create %s: %w", dir, err)
	}
	pattern := filepath.Join(dir, SequenceName)
	useCopy := false
	for i, fr := range frames {
		dst := fmt.Sprintf(pattern, i)
		if !useCopy {
			err := os.Link(fr.Path, dst)
			if err == nil {
				continue
			}
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("frame: link frame %d: %w", i, err)
			}
			useCopy = true
		}
		if err := copyFile(fr.Path, dst); err != nil {
			return "", fmt.Errorf("frame: copy frame %d: %w", i, err)
		}
	}
	return pattern, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
