package captions

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrRecognitionUnavailable = errors.New("speech recognition unavailable")
	ErrRecognizerStopped      = errors.New("recognizer stopped")
	ErrRecognizerBusy         = errors.New("recognizer queue full")
	ErrAlreadyStarted         = errors.New("recognizer already started")
)

// Result is one speech-recognition update. Interim results may be revised;
// final results are not.
type Result struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// Recognizer is a continuous speech-recognition session. The returned channel
// is closed once the session stops.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Result, error)
	Stop()
}

// StreamRecognizer is fed by results a browser forwards from its own
// speech-recognition engine.
type StreamRecognizer struct {
	mu      sync.Mutex
	ch      chan Result
	done    chan struct{}
	started bool
	stopped bool
}

func NewStreamRecognizer(queue int) *StreamRecognizer {
	if queue <= 0 {
		queue = 32
	}
	return &StreamRecognizer{
		ch:   make(chan Result, queue),
		done: make(chan struct{}),
	}
}

func (s *StreamRecognizer) Start(ctx context.Context) (<-chan Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrRecognizerStopped
	}
	if s.started {
		return nil, ErrAlreadyStarted
	}
	s.started = true

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	return s.ch, nil
}

// Push queues a result without blocking.
func (s *StreamRecognizer) Push(r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrRecognizerStopped
	}
	select {
	case s.ch <- r:
		return nil
	default:
		return ErrRecognizerBusy
	}
}

func (s *StreamRecognizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.ch)
	close(s.done)
}

// unavailableRecognizer stands in when the client has no speech engine.
type unavailableRecognizer struct{}

func (unavailableRecognizer) Start(context.Context) (<-chan Result, error) {
	return nil, ErrRecognitionUnavailable
}

func (unavailableRecognizer) Stop() {}

// Unavailable returns a Recognizer whose Start always fails with ErrRecognitionUnavailable.
func Unavailable() Recognizer {
	return unavailableRecognizer{}
}
