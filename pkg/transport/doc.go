// Package transport is the boundary between the SDK core and the network.
//
// The core never talks to net/http directly. It builds a Request descriptor
// for each attempt and hands it, together with the call's cancellation
// context, to a Transport. The Transport returns either a Response with an
// unread body or an error meaning no response was obtained. Releasing the
// response is closing its Body.
//
// # Implementations
//
// HTTP sends requests with a *http.Client. Func adapts an ordinary function,
// which is how tests script gateway behavior without a listener.
//
// # Middleware
//
// Middleware wraps a Transport with cross-cutting behavior. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-Id),
// and structured logging via log/slog.
package transport
