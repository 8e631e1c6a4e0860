// Package capture wraps a start/stop microphone session. Fragments
// delivered by the device are buffered in arrival order and finalized
// into a single clip when the session stops.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBusy is returned when Start is called on a session that is
	// already recording or still stopping.
	ErrBusy = errors.New("capture session already active")
	// ErrNotRecording is returned when Stop is called with no active
	// recording.
	ErrNotRecording = errors.New("no active recording")
)

// State models the push-to-talk lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Clip is the finalized audio object handed off after Stop.
type Clip struct {
	Data []byte
	MIME string
}

// Device delivers streamed audio fragments between Start and Stop. The
// fragment channel is closed once the device has released the capture
// source.
type Device interface {
	Start(ctx context.Context) (<-chan []byte, error)
	Stop() error
}

// Session owns one recording from start to clip handoff. It is not
// reused: the UI creates a fresh session per recording.
type Session struct {
	dev  Device
	mime string

	mu    sync.Mutex
	state State
	frags [][]byte
	done  chan struct{}
}

func NewSession(dev Device, mime string) *Session {
	return &Session{dev: dev, mime: mime}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start requests the capture device and begins buffering fragments.
// Device failure (no microphone, permission denied) is returned as an
// error rather than panicking into the caller flow.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateRecording
	s.frags = nil
	s.done = make(chan struct{})
	s.mu.Unlock()

	ch, err := s.dev.Start(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	go func() {
		for frag := range ch {
			s.mu.Lock()
			s.frags = append(s.frags, frag)
			s.mu.Unlock()
		}
		close(s.done)
	}()
	return nil
}

// Stop releases the device, waits for the fragment stream to drain and
// returns the buffered audio as one clip. The session is idle (and
// spent) afterwards.
func (s *Session) Stop() (Clip, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return Clip{}, ErrNotRecording
	}
	s.state = StateStopping
	s.mu.Unlock()

	stopErr := s.dev.Stop()
	<-s.done

	s.mu.Lock()
	var size int
	for _, f := range s.frags {
		size += len(f)
	}
	data := make([]byte, 0, size)
	for _, f := range s.frags {
		data = append(data, f...)
	}
	s.frags = nil
	s.state = StateIdle
	s.mu.Unlock()

	if stopErr != nil {
		return Clip{}, fmt.Errorf("failed to release capture device: %w", stopErr)
	}
	if len(data) == 0 {
		return Clip{}, errors.New("capture produced no audio")
	}
	return Clip{Data: data, MIME: s.mime}, nil
}
