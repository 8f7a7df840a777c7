// Package zaguan is the Go client for the Zaguan gateway, an
// OpenAI-compatible chat completions API.
//
// A Client is built once and shared by any number of goroutines:
//
//	client, err := zaguan.New(zaguan.WithAPIKey(key))
//	resp, err := client.CreateChatCompletion(ctx, &api.ChatCompletionRequest{...})
//
// Every call goes through the same path. A fresh request descriptor is built
// for each attempt and sent under a cancellation signal that merges the
// caller's context with the per-call (or client) timeout. Non-2xx responses
// are classified into the error kinds of package api, and the retry policy
// decides whether to re-issue the call. Retries are opt-in and apply to GET
// requests unless a call declares itself idempotent.
//
// # Streaming
//
// Stream and CreateChatCompletionStream return a pull-based stream. Bytes are
// read only when the consumer asks for the next event, and the response body
// is released exactly once: on the terminal [DONE] frame, end of data, a read
// error, cancellation, or Close.
//
//	stream, err := client.CreateChatCompletionStream(ctx, req)
//	if err != nil {
//		return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//		for _, choice := range stream.Chunk().Choices {
//			if choice.Delta.Content != nil {
//				fmt.Print(*choice.Delta.Content)
//			}
//		}
//	}
//	return stream.Err()
//
// # Errors
//
// Failures are always one of the api error kinds. Use errors.As or
// api.KindOf to branch on them:
//
//	var rl *api.RateLimitError
//	if errors.As(err, &rl) {
//		...
//	}
package zaguan
