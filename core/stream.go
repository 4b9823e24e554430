package core

import (
	"context"
	"iter"
	"strings"
	"sync"
)

// Source identifies which stage of an agent run produced a chunk.
type Source string

const (
	SourceAgent Source = "agent"
	SourceTools Source = "tools"
)

// Message is one piece of text output.
type Message struct {
	Content string `json:"content"`
}

// Chunk is one incremental unit of agent output.
type Chunk struct {
	Source   Source    `json:"source"`
	Messages []Message `json:"messages"`
}

// Aggregate concatenates the first message of every agent and tool chunk in
// arrival order. Chunks from any other source are skipped. It is a pure
// fold over chunks: an empty sequence yields "".
func Aggregate(chunks iter.Seq[Chunk]) string {
	var b strings.Builder
	for chunk := range chunks {
		switch chunk.Source {
		case SourceAgent, SourceTools:
			if len(chunk.Messages) > 0 {
				b.WriteString(chunk.Messages[0].Content)
			}
		}
	}
	return b.String()
}

// Stream is the lazily produced output of one agent run. Chunks are
// delivered in emission order; the producer blocks until each one is taken.
type Stream struct {
	chunks chan Chunk
	done   chan struct{}
	cancel context.CancelFunc

	once sync.Once
	err  error
}

// NewStream starts produce on its own goroutine. produce receives a context
// that is cancelled when the consumer stops early or parent is done, and an
// emit function that hands a chunk to the consumer.
func NewStream(parent context.Context, produce func(ctx context.Context, emit func(Chunk)) error) *Stream {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream{
		chunks: make(chan Chunk),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		err := produce(ctx, func(c Chunk) {
			select {
			case s.chunks <- c:
			case <-ctx.Done():
			}
		})
		s.finish(err)
	}()
	return s
}

func (s *Stream) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.chunks)
		close(s.done)
		s.cancel()
	})
}

// Chunks yields the run's chunks until it completes. Breaking out of the
// loop cancels the run.
func (s *Stream) Chunks() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for c := range s.chunks {
			if !yield(c) {
				s.cancel()
				return
			}
		}
	}
}

// Err waits for the run to end and returns its error, if any. Chunks not
// yet consumed are discarded.
func (s *Stream) Err() error {
	for range s.chunks {
	}
	<-s.done
	return s.err
}

