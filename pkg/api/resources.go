package api

import "github.com/zaguanlabs/zaguan-go/internal/json"

// ModelList is the response from /v1/models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Model describes one model routed by the gateway.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by"`
	Band    string `json:"band,omitempty"`
}

// ModelCapabilities is one entry of /v1/capabilities.
type ModelCapabilities struct {
	ModelID           string   `json:"model_id"`
	Provider          string   `json:"provider"`
	SupportsVision    bool     `json:"supports_vision"`
	SupportsTools     bool     `json:"supports_tools"`
	SupportsReasoning bool     `json:"supports_reasoning"`
	SupportsAudio     bool     `json:"supports_audio"`
	MaxContextTokens  int      `json:"max_context_tokens,omitempty"`
	MaxOutputTokens   int      `json:"max_output_tokens,omitempty"`
	Modalities        []string `json:"modalities,omitempty"`
}

// CapabilitiesList is the response from /v1/capabilities.
type CapabilitiesList struct {
	Object string              `json:"object"`
	Data   []ModelCapabilities `json:"data"`
}

// CreditsBalance is the response from /v1/credits/balance.
type CreditsBalance struct {
	CreditsRemaining int      `json:"credits_remaining"`
	CreditsTotal     int      `json:"credits_total"`
	CreditsUsed      int      `json:"credits_used"`
	Tier             string   `json:"tier"`
	Bands            []string `json:"bands,omitempty"`
	ResetDate        string   `json:"reset_date,omitempty"`
}

// EmbeddingRequest is the request body for /v1/embeddings. Input is a string
// or a slice of strings.
type EmbeddingRequest struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     *int   `json:"dimensions,omitempty"`
	User           string `json:"user,omitempty"`
}

// EmbeddingResponse is the response from /v1/embeddings.
type EmbeddingResponse struct {
	Object string      `json:"object"`
	Data   []Embedding `json:"data"`
	Model  string      `json:"model"`
	Usage  *ChatUsage  `json:"usage,omitempty"`
}

// Embedding is a single vector.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// ModerationRequest is the request body for /v1/moderations.
type ModerationRequest struct {
	Input any    `json:"input"`
	Model string `json:"model,omitempty"`
}

// ModerationResponse is the response from /v1/moderations.
type ModerationResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Results []ModerationResult `json:"results"`
}

// ModerationResult holds the verdict for one input.
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// TranscriptionRequest describes an audio transcription upload. It is sent as
// multipart/form-data, not JSON.
type TranscriptionRequest struct {
	Model          string
	FileName       string
	Audio          []byte
	Language       string
	Prompt         string
	ResponseFormat string
	Temperature    *float64
}

// Transcription is the response from /v1/audio/transcriptions.
type Transcription struct {
	Text     string          `json:"text"`
	Language string          `json:"language,omitempty"`
	Duration float64         `json:"duration,omitempty"`
	Segments json.RawMessage `json:"segments,omitempty"`
}
