package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTP is the net/http Transport. The context given to Send is attached to
// the outgoing request, so cancelling it aborts both the connection phase and
// any later body reads.
type HTTP struct {
	Client *http.Client
}

// NewHTTP returns an HTTP transport using client, or http.DefaultClient when
// client is nil.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Client: client}
}

// Send implements Transport.
func (t *HTTP) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if req.RequestID != "" {
		httpReq.Header.Set(RequestIDHeader, req.RequestID)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       httpResp.Body,
	}, nil
}
