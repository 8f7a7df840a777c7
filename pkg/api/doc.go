// Package api defines the wire types of the Zaguan gateway and the error
// taxonomy the client reports failures in.
//
// Request and response types follow the OpenAI-compatible formats the
// gateway exposes (chat completions, models, capabilities, credits,
// embeddings, moderations, audio transcriptions) plus the gateway's own
// extensions.
//
// Every failure returned by the client is one of:
//   - [*ConnectionError]: no usable response (network, timeout, cancelled)
//   - [*AuthenticationError]: HTTP 401
//   - [*InsufficientCreditsError]: HTTP 402
//   - [*BandAccessDeniedError]: HTTP 403 with type "band_access_denied"
//   - [*RateLimitError]: HTTP 429
//   - [*APIError]: any other non-2xx status
//
// The status-specific kinds embed and unwrap to *APIError, so errors.As
// with *APIError matches all of them. [KindOf], [StatusCodeOf] and
// [CorrelationIDOf] read the common fields without type switches.
package api
