package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/peltran/giftwise/internal/config"
)

// Camera errors.
var (
	ErrCameraAcquire = errors.New(config.ErrCameraAcquire)
	ErrCameraCapture = errors.New(config.ErrCameraCapture)
)

// Stream is a live camera feed. It is a scoped resource: exactly one stream
// is active at a time and every owner must Release it on the way out,
// whichever transition it takes. Capture freezes a single still image and is
// valid at most once per acquisition.
type Stream interface {
	Capture() ([]byte, error)
	Release()
}

// Camera acquires a Stream. Real media-device access is outside this module;
// implementations stand in for it (a file on disk, a byte slice from an HTTP
// upload, a mock in tests).
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// FileCamera serves stills from a JPEG file on disk. It is the device used by
// the CLI: point it at a card scan and the workflow behaves exactly as it
// would with a live feed.
type FileCamera struct {
	Path string
}

// Acquire opens the backing file. A missing or unreadable file maps to the
// device-access failure class, just like a denied camera permission.
func (c FileCamera) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraAcquire, err)
	}
	return &fileStream{f: f}, nil
}

type fileStream struct {
	mu       sync.Mutex
	f        *os.File
	released bool
}

func (s *fileStream) Capture() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, fmt.Errorf("%w: stream released", ErrCameraCapture)
	}
	data, err := io.ReadAll(io.LimitReader(s.f, config.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraCapture, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCameraCapture, config.ErrImageEmpty)
	}
	if len(data) > config.MaxImageBytes {
		return nil, fmt.Errorf("%w: %s", ErrCameraCapture, config.ErrImageTooLarge)
	}
	return data, nil
}

func (s *fileStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	_ = s.f.Close()
	slog.Debug(config.MsgStreamReleased, config.LogKeyComponent, config.CompCapture)
}

// StillCamera wraps an already-captured image, used when the still arrives
// through the HTTP API instead of a local device. The workflow (and its
// release guarantees) runs unchanged.
type StillCamera struct {
	Data []byte
}

// Acquire validates the payload and returns a one-shot stream.
func (c StillCamera) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCameraAcquire, config.ErrImageEmpty)
	}
	if len(c.Data) > config.MaxImageBytes {
		return nil, fmt.Errorf("%w: %s", ErrCameraAcquire, config.ErrImageTooLarge)
	}
	return &stillStream{data: c.Data}, nil
}

type stillStream struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

func (s *stillStream) Capture() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, fmt.Errorf("%w: stream released", ErrCameraCapture)
	}
	return s.data, nil
}

func (s *stillStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.data = nil
}
