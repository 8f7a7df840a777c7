package sse

import (
	"github.com/tidwall/gjson"

	"github.com/zaguanlabs/zaguan-go/internal/json"
)

// Event is one decoded "data:" frame. Data always holds a complete JSON object.
type Event struct {
	Data json.RawMessage
}

// Get returns the value at the given gjson path inside the event payload.
func (e Event) Get(path string) gjson.Result {
	return gjson.GetBytes(e.Data, path)
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// String returns the raw payload.
func (e Event) String() string {
	return string(e.Data)
}
