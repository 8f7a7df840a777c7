// Package sse decodes the gateway's line-oriented event stream.
//
// A Decoder is a pure buffering state machine: callers push bytes in with
// Feed as they arrive from the network and receive fully parsed events back.
// It owns no network resources and never reads ahead of a complete line, so
// it behaves the same whether the body arrives in one read or one byte at a
// time.
package sse
