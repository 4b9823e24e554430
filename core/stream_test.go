package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(source Source, contents ...string) Chunk {
	c := Chunk{Source: source}
	for _, content := range contents {
		c.Messages = append(c.Messages, Message{Content: content})
	}
	return c
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
		want   string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name: "agent and tools in arrival order",
			chunks: []Chunk{
				chunk(SourceAgent, "Checking. "),
				chunk(SourceTools, "Balance of eth: 1"),
				chunk(SourceAgent, " You have 1 ETH."),
			},
			want: "Checking. Balance of eth: 1 You have 1 ETH.",
		},
		{
			name: "only first message of each chunk",
			chunks: []Chunk{
				chunk(SourceAgent, "a", "ignored"),
				chunk(SourceTools, "b", "ignored"),
			},
			want: "ab",
		},
		{
			name: "unknown sources skipped",
			chunks: []Chunk{
				chunk("__metadata__", "x"),
				chunk(SourceAgent, "y"),
				chunk("", "z"),
			},
			want: "y",
		},
		{
			name: "chunks without messages contribute nothing",
			chunks: []Chunk{
				chunk(SourceAgent),
				chunk(SourceTools, "done"),
			},
			want: "done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(slices.Values(tt.chunks)))
		})
	}
}

func TestAggregateIsRepeatable(t *testing.T) {
	chunks := []Chunk{chunk(SourceAgent, "one"), chunk(SourceTools, "two")}
	first := Aggregate(slices.Values(chunks))
	assert.Equal(t, first, Aggregate(slices.Values(chunks)))
}

func TestStreamDeliversInOrder(t *testing.T) {
	stream := NewStream(context.Background(), func(ctx context.Context, emit func(Chunk)) error {
		emit(chunk(SourceAgent, "1"))
		emit(chunk(SourceTools, "2"))
		emit(chunk(SourceAgent, "3"))
		return nil
	})

	assert.Equal(t, "123", Aggregate(stream.Chunks()))
	assert.NoError(t, stream.Err())
}

func TestStreamPropagatesError(t *testing.T) {
	boom := errors.New("execution reverted")
	stream := NewStream(context.Background(), func(ctx context.Context, emit func(Chunk)) error {
		emit(chunk(SourceAgent, "partial"))
		return boom
	})

	Aggregate(stream.Chunks())
	assert.ErrorIs(t, stream.Err(), boom)
}

func TestStreamErrWithoutConsuming(t *testing.T) {
	stream := NewStream(context.Background(), func(ctx context.Context, emit func(Chunk)) error {
		emit(chunk(SourceAgent, "never read"))
		emit(chunk(SourceAgent, "never read"))
		return nil
	})

	assert.NoError(t, stream.Err())
}

func TestStreamEarlyBreakCancelsRun(t *testing.T) {
	stopped := make(chan error, 1)
	stream := NewStream(context.Background(), func(ctx context.Context, emit func(Chunk)) error {
		for {
			emit(chunk(SourceAgent, "tick"))
			if err := ctx.Err(); err != nil {
				stopped <- err
				return err
			}
		}
	})

	for range stream.Chunks() {
		break
	}

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("producer was not cancelled")
	}
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}

func TestStreamParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	stream := NewStream(ctx, func(ctx context.Context, emit func(Chunk)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	cancel()
	require.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Equal(t, "", Aggregate(stream.Chunks()))
}
