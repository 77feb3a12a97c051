package frame

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/skip2/go-qrcode"

	"github.com/zsiec/syncgen/internal/media"
)

// Default frame geometry.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	black = color.RGBA{A: 0xFF}
	white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	gray  = color.RGBA{R: 127, G: 127, B: 127, A: 0xFF}
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Width    int
	Height   int
	Renderer Renderer
	Logger   *slog.Logger
}

// Store renders frame images into a private scratch directory and hands
// out media.Frame references to them. Alignment images are rendered once;
// flash images once per distinct payload. All methods are safe for
// concurrent use. Close removes every file the Store created.
type Store struct {
	log    *slog.Logger
	r      Renderer
	dir    string
	width  int
	height int

	mu     sync.Mutex
	seq    int
	alignA *media.Frame
	alignB *media.Frame
	flash  map[string]media.Frame
	closed bool
}

// NewStore creates a Store whose scratch directory lives under workdir.
func NewStore(workdir string, opts Options) (*Store, error) {
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.Width < 2 || opts.Height < 2 {
		return nil, fmt.Errorf("frame: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Renderer == nil {
		opts.Renderer = Canvas{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	dir, err := os.MkdirTemp(workdir, "syncgen-frames-")
	if err != nil {
		return nil, fmt.Errorf("frame: scratch dir: %w", err)
	}
	return &Store{
		log:    opts.Logger.With("component", "frame-store"),
		r:      opts.Renderer,
		dir:    dir,
		width:  opts.Width,
		height: opts.Height,
		flash:  make(map[string]media.Frame),
	}, nil
}

// Dir returns the scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// AlignmentA returns the checkerboard with white top-left and bottom-right
// quadrants. Every call returns the same Frame.
func (s *Store) AlignmentA() (media.Frame, error) {
	return s.alignment(&s.alignA, media.FrameAlignmentA)
}

// AlignmentB returns the photographic negative of AlignmentA.
func (s *Store) AlignmentB() (media.Frame, error) {
	return s.alignment(&s.alignB, media.FrameAlignmentB)
}

func (s *Store) alignment(slot **media.Frame, kind media.FrameKind) (media.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *slot != nil {
		return **slot, nil
	}
	if s.closed {
		return media.Frame{}, os.ErrClosed
	}

	img := s.r.Solid(s.width, s.height, black)
	w, h := s.width/2, s.height/2
	quad := s.r.Solid(w, h, white)
	if kind == media.FrameAlignmentA {
		s.r.Paste(img, quad, image.Pt(0, 0))
		s.r.Paste(img, quad, image.Pt(w, h))
	} else {
		s.r.Paste(img, quad, image.Pt(w, 0))
		s.r.Paste(img, quad, image.Pt(0, h))
	}
	fr := media.Frame{Path: s.nextPathLocked(), Kind: kind}
	if err := s.r.Save(img, fr.Path); err != nil {
		return media.Frame{}, fmt.Errorf("frame: save %s: %w", kind, err)
	}
	s.log.Debug("rendered alignment image", "kind", kind, "path", fr.Path)
	*slot = &fr
	return fr, nil
}

// Flash returns the QR flash image for payload, centred on a mid-gray
// frame. index is recorded on the Frame for diagnostics.
func (s *Store) Flash(index int, payload string) (media.Frame, error) {
	s.mu.Lock()
	if fr, ok := s.flash[payload]; ok {
		s.mu.Unlock()
		return fr, nil
	}
	if s.closed {
		s.mu.Unlock()
		return media.Frame{}, os.ErrClosed
	}
	path := s.nextPathLocked()
	s.mu.Unlock()

	// Rendering happens outside the lock so patterns can prerender in
	// parallel.
	code, err := s.r.MachineCode(payload, qrcode.Medium)
	if err != nil {
		return media.Frame{}, err
	}
	size := min(s.width, s.height)
	img := s.r.Solid(s.width, s.height, gray)
	s.r.Paste(img, s.r.Resize(code, size), image.Pt((s.width-size)/2, (s.height-size)/2))
	if err := s.r.Save(img, path); err != nil {
		return media.Frame{}, fmt.Errorf("frame: save flash %q: %w", payload, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		os.Remove(path)
		return media.Frame{}, os.ErrClosed
	}
	if fr, ok := s.flash[payload]; ok {
		os.Remove(path)
		return fr, nil
	}
	fr := media.Frame{Path: path, Kind: media.FrameFlash, Index: index}
	s.flash[payload] = fr
	return fr, nil
}

// Rendered returns the number of distinct images saved so far.
func (s *Store) Rendered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.flash)
	if s.alignA != nil {
		n++
	}
	if s.alignB != nil {
		n++
	}
	return n
}

func (s *Store) nextPathLocked() string {
	s.seq++
	return filepath.Join(s.dir, fmt.Sprintf("image-%04d.png", s.seq))
}

// Close removes the scratch directory and everything in it. Frames handed
// out earlier become invalid. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.alignA, s.alignB = nil, nil
	s.flash = nil
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("frame: remove %s: %w", s.dir, err)
	}
	return nil
}
