package zaguan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zaguanlabs/zaguan-go/internal/json"
	"github.com/zaguanlabs/zaguan-go/pkg/api"
	"github.com/zaguanlabs/zaguan-go/pkg/transport"
)

// CreateChatCompletion sends a non-streaming chat completion. The call is not
// retried unless WithIdempotent(true) is given, since the gateway may
// already have billed the work.
func (c *Client) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, opts ...CallOption) (*api.ChatCompletionResponse, error) {
	body := *req
	body.Stream = false
	body.StreamOptions = nil

	var resp api.ChatCompletionResponse
	err := c.Do(ctx, &Request{
		Method:   http.MethodPost,
		Path:     "/v1/chat/completions",
		Body:     &body,
		Endpoint: "chat.completions",
		Options:  newCallOptions(opts),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateChatCompletionStream starts a streaming chat completion. Usage is
// requested in the final chunk.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *api.ChatCompletionRequest, opts ...CallOption) (*ChatStream, error) {
	body := *req
	body.Stream = true
	if body.StreamOptions == nil {
		body.StreamOptions = &api.ChatStreamOptions{IncludeUsage: true}
	}

	s, err := c.Stream(ctx, &Request{
		Method:   http.MethodPost,
		Path:     "/v1/chat/completions",
		Body:     &body,
		Endpoint: "chat.completions.stream",
		Options:  newCallOptions(opts),
	})
	if err != nil {
		return nil, err
	}
	return &ChatStream{Stream: s}, nil
}

// ListModels lists the models the key can route to.
func (c *Client) ListModels(ctx context.Context, opts ...CallOption) (*api.ModelList, error) {
	var resp api.ModelList
	if err := c.get(ctx, "/v1/models", "models.list", &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetModel fetches one model.
func (c *Client) GetModel(ctx context.Context, id string, opts ...CallOption) (*api.Model, error) {
	var resp api.Model
	if err := c.get(ctx, "/v1/models/"+url.PathEscape(id), "models.get", &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCapabilities lists per-model capabilities.
func (c *Client) GetCapabilities(ctx context.Context, opts ...CallOption) (*api.CapabilitiesList, error) {
	var resp api.CapabilitiesList
	if err := c.get(ctx, "/v1/capabilities", "capabilities", &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCredits returns the credit balance of the key.
func (c *Client) GetCredits(ctx context.Context, opts ...CallOption) (*api.CreditsBalance, error) {
	var resp api.CreditsBalance
	if err := c.get(ctx, "/v1/credits/balance", "credits.balance", &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateEmbeddings embeds one or more inputs.
func (c *Client) CreateEmbeddings(ctx context.Context, req *api.EmbeddingRequest, opts ...CallOption) (*api.EmbeddingResponse, error) {
	var resp api.EmbeddingResponse
	err := c.Do(ctx, &Request{
		Method:   http.MethodPost,
		Path:     "/v1/embeddings",
		Body:     req,
		Endpoint: "embeddings",
		Options:  newCallOptions(opts),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateModeration classifies inputs against the moderation categories.
func (c *Client) CreateModeration(ctx context.Context, req *api.ModerationRequest, opts ...CallOption) (*api.ModerationResponse, error) {
	var resp api.ModerationResponse
	err := c.Do(ctx, &Request{
		Method:   http.MethodPost,
		Path:     "/v1/moderations",
		Body:     req,
		Endpoint: "moderations",
		Options:  newCallOptions(opts),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateTranscription uploads audio as multipart/form-data. Plain text
// response formats ("text", "srt", "vtt") are returned in Text.
func (c *Client) CreateTranscription(ctx context.Context, req *api.TranscriptionRequest, opts ...CallOption) (*api.Transcription, error) {
	body, ctype, err := encodeTranscription(req)
	if err != nil {
		return nil, c.fail(err)
	}

	// The id is fixed up front so a decode failure below can carry it.
	o := newCallOptions(opts)
	if o.RequestID == "" {
		o.RequestID = transport.NewRequestID()
	}

	var raw []byte
	err = c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        "/v1/audio/transcriptions",
		RawBody:     body,
		ContentType: ctype,
		Endpoint:    "audio.transcriptions",
		Options:     o,
	}, &raw)
	if err != nil {
		return nil, err
	}

	switch req.ResponseFormat {
	case "text", "srt", "vtt":
		return &api.Transcription{Text: string(raw)}, nil
	}
	var resp api.Transcription
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, c.fail(&api.APIError{
			HTTPStatus: http.StatusOK,
			Message:    fmt.Sprintf("decoding response: %v", err),
			Type:       "invalid_response",
			RequestID:  o.RequestID,
		})
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path, endpoint string, out any, opts []CallOption) error {
	return c.Do(ctx, &Request{
		Method:   http.MethodGet,
		Path:     path,
		Endpoint: endpoint,
		Options:  newCallOptions(opts),
	}, out)
}

func encodeTranscription(req *api.TranscriptionRequest) ([]byte, string, error) {
	if len(req.Audio) == 0 {
		return nil, "", errors.New("zaguan: transcription audio is empty")
	}
	name := req.FileName
	if name == "" {
		name = "audio.wav"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"model", req.Model},
		{"language", req.Language},
		{"prompt", req.Prompt},
		{"response_format", req.ResponseFormat},
	}
	if req.Temperature != nil {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(*req.Temperature, 'f', -1, 64)})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
