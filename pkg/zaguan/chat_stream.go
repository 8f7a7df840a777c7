package zaguan

import (
	"iter"

	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/debug"
	"github.com/zaguanlabs/zaguan-go/pkg/observability"
)

// ChatStream decodes a chat completion stream into chunks and accumulates
// them into a final response.
type ChatStream struct {
	*Stream
	chunk *api.ChatCompletionChunk
	acc   api.ChatCompletionAccumulator
}

// Next advances to the next chunk. Events that do not decode as a chunk are
// skipped like malformed frames.
func (cs *ChatStream) Next() bool {
	for cs.Stream.Next() {
		var chunk api.ChatCompletionChunk
		if err := cs.Event().Decode(&chunk); err != nil {
			observability.StreamFramesDroppedTotal.WithLabelValues(cs.endpoint).Inc()
			debug.Log("stream", "dropping undecodable chunk", "request_id", cs.requestID, "error", err)
			continue
		}
		cs.chunk = &chunk
		cs.acc.Add(&chunk)
		return true
	}
	return false
}

// Chunk returns the chunk produced by the last call to Next.
func (cs *ChatStream) Chunk() *api.ChatCompletionChunk { return cs.chunk }

// Response returns everything received so far folded into one response.
func (cs *ChatStream) Response() *api.ChatCompletionResponse { return cs.acc.Response() }

// Chunks returns the stream as an iterator over chunks. The stream is
// closed when the loop ends; a terminal error is yielded last.
func (cs *ChatStream) Chunks() iter.Seq2[*api.ChatCompletionChunk, error] {
	return func(yield func(*api.ChatCompletionChunk, error) bool) {
		defer cs.Close()
		for cs.Next() {
			if !yield(cs.Chunk(), nil) {
				return
			}
		}
		if err := cs.Err(); err != nil {
			yield(nil, err)
		}
	}
}
