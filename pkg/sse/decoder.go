package sse

import (
	"bytes"

	"github.com/tidwall/gjson"

	"github.com/zaguanlabs/zaguan-go/pkg/debug"
)

// State is the decoder's position in its two-state lifecycle.
type State int

const (
	// StateStreaming accepts more input.
	StateStreaming State = iota
	// StateTerminated ignores all further input.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// Decoder reassembles a byte stream into Events.
//
// Input is buffered as raw bytes and split on '\n' only. A newline byte never
// occurs inside a multi-byte UTF-8 sequence, so a character split across two
// reads is rejoined before the line is interpreted.
//
// A Decoder is not safe for concurrent use; a stream has exactly one reader.
type Decoder struct {
	buf     []byte
	state   State
	dropped int
}

// NewDecoder returns a Decoder in StateStreaming with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// State reports the current decoder state.
func (d *Decoder) State() State {
	return d.state
}

// Dropped reports how many data frames were discarded because their payload
// was not a JSON object.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Feed appends p to the buffer and returns the events completed by it, in
// line order. After the [DONE] sentinel the rest of p, and every later
// call, is ignored.
func (d *Decoder) Feed(p []byte) []Event {
	if d.state == StateTerminated || len(p) == 0 {
		return nil
	}
	d.buf = append(d.buf, p...)

	var events []Event
	for d.state == StateStreaming {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]

		if ev, ok := d.parseLine(line); ok {
			events = append(events, ev)
		}
	}

	if d.state == StateTerminated {
		d.buf = nil
	} else if len(d.buf) == 0 {
		// Let the backing array go once every line has been consumed.
		d.buf = nil
	}
	return events
}

// Finish is called once the underlying stream is exhausted. A trailing
// partial line cannot be a complete frame and is discarded. The decoder is
// terminated afterwards.
func (d *Decoder) Finish() []Event {
	if d.state == StateStreaming && len(bytes.TrimSpace(d.buf)) > 0 {
		debug.Log("stream", "discarding trailing partial line", "bytes", len(d.buf))
	}
	d.buf = nil
	d.state = StateTerminated
	return nil
}

func (d *Decoder) parseLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if bytes.Equal(payload, doneMarker) {
		d.state = StateTerminated
		return Event{}, false
	}

	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		d.dropped++
		debug.Log("stream", "skipping malformed frame", "data", debug.Truncate(string(payload), 200))
		return Event{}, false
	}

	// The payload aliases the internal buffer, which later appends may reuse.
	return Event{Data: bytes.Clone(payload)}, true
}
