package mockgateway

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zaguanlabs/zaguan-go/internal/json"
	"github.com/zaguanlabs/zaguan-go/pkg/api"
)

// MockModel is the model id every response reports unless the request
// names one.
const MockModel = "mock-model"

func (g *Gateway) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req api.ChatCompletionRequest
	if err := json.Decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "messages is required")
		return
	}
	if req.Model == "" {
		req.Model = MockModel
	}

	if req.Stream {
		g.streamChat(w, r, &req)
		return
	}

	text := strings.Join(replyTokens(&req), "")
	resp := api.ChatCompletionResponse{
		ID:      "chatcmpl-mock-text",
		Object:  "chat.completion",
		Created: 1700000000,
		Model:   req.Model,
		Choices: []api.ChatChoice{{
			Index:        0,
			Message:      api.ChatMessage{Role: "assistant", Content: text},
			FinishReason: "stop",
		}},
		Usage: &api.ChatUsage{PromptTokens: 10, CompletionTokens: len(replyTokens(&req)), TotalTokens: 10 + len(replyTokens(&req)), CreditsUsed: 1},
	}
	if len(req.Tools) > 0 {
		resp.ID = "chatcmpl-mock-tool"
		resp.Choices[0].Message = api.ChatMessage{
			Role: "assistant",
			ToolCalls: []api.ChatToolCall{{
				ID:   "call_mock_1",
				Type: "function",
				Function: api.ChatFunctionCall{
					Name:      req.Tools[0].Function.Name,
					Arguments: `{"location":"San Francisco","unit":"celsius"}`,
				},
			}},
		}
		resp.Choices[0].FinishReason = "tool_calls"
	}
	writeJSON(w, http.StatusOK, resp)
}

// streamChat writes one frame per token, a finish frame with usage, then
// the [DONE] sentinel. A ": ping" comment precedes the first frame.
func (g *Gateway) streamChat(w http.ResponseWriter, r *http.Request, req *api.ChatCompletionRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	hangAfter := -1
	if n, err := strconv.Atoi(r.Header.Get(HeaderHangAfter)); err == nil {
		hangAfter = n
	}
	malformed := r.Header.Get(HeaderMalformed) == "1"

	frames := chatFrames(req)
	fmt.Fprint(w, ": ping\n\n")
	for i, frame := range frames {
		if i == hangAfter {
			flusher.Flush()
			<-r.Context().Done()
			return
		}
		if malformed && i == 1 {
			fmt.Fprint(w, "data: {\"id\": \"chatcmpl-mock-stream\", \"choices\": [\n\n")
		}
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()

		if g.opts.FrameDelay > 0 {
			select {
			case <-time.After(g.opts.FrameDelay):
			case <-r.Context().Done():
				return
			}
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func chatFrames(req *api.ChatCompletionRequest) [][]byte {
	chunk := func(delta api.ChatChunkDelta, finish *string, usage *api.ChatUsage) []byte {
		data, _ := json.Marshal(api.ChatCompletionChunk{
			ID:      "chatcmpl-mock-stream",
			Object:  "chat.completion.chunk",
			Created: 1700000000,
			Model:   req.Model,
			Choices: []api.ChatChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
			Usage:   usage,
		})
		return data
	}

	var frames [][]byte
	frames = append(frames, chunk(api.ChatChunkDelta{Role: "assistant"}, nil, nil))

	finish := "stop"
	tokens := replyTokens(req)
	if len(req.Tools) > 0 {
		finish = "tool_calls"
		name := req.Tools[0].Function.Name
		for i, part := range []string{`{"location":`, `"San Francisco"}`} {
			tc := api.ChatChunkToolCall{Index: 0, Function: api.ChatChunkFunctionCall{Arguments: part}}
			if i == 0 {
				tc.ID, tc.Type, tc.Function.Name = "call_mock_1", "function", name
			}
			frames = append(frames, chunk(api.ChatChunkDelta{ToolCalls: []api.ChatChunkToolCall{tc}}, nil, nil))
		}
	} else {
		for _, tok := range tokens {
			frames = append(frames, chunk(api.ChatChunkDelta{Content: &tok}, nil, nil))
		}
	}

	usage := &api.ChatUsage{PromptTokens: 10, CompletionTokens: len(tokens), TotalTokens: 10 + len(tokens), CreditsUsed: 1}
	frames = append(frames, chunk(api.ChatChunkDelta{}, &finish, usage))
	return frames
}

var mockModels = []api.Model{
	{ID: MockModel, Object: "model", Created: 1700000000, OwnedBy: "zaguan-mock", Band: "A"},
	{ID: "mock-reasoner", Object: "model", Created: 1700000000, OwnedBy: "zaguan-mock", Band: "D"},
}

func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ModelList{Object: "list", Data: mockModels})
}

func (g *Gateway) handleModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, m := range mockModels {
		if m.ID == id {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	writeError(w, http.StatusNotFound, "model_not_found", fmt.Sprintf("model %q not found", id))
}

func (g *Gateway) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.CapabilitiesList{
		Object: "list",
		Data: []api.ModelCapabilities{
			{ModelID: MockModel, Provider: "mock", SupportsTools: true, MaxContextTokens: 8192, Modalities: []string{"text"}},
			{ModelID: "mock-reasoner", Provider: "mock", SupportsReasoning: true, MaxContextTokens: 32768, Modalities: []string{"text"}},
		},
	})
}

func (g *Gateway) handleCredits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.CreditsBalance{
		CreditsRemaining: 900,
		CreditsTotal:     1000,
		CreditsUsed:      100,
		Tier:             "pro",
		Bands:            []string{"A", "B", "C", "D"},
		ResetDate:        "2026-11-01",
	})
}

func (g *Gateway) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req api.EmbeddingRequest
	if err := json.Decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}

	var inputs []string
	switch v := req.Input.(type) {
	case string:
		inputs = []string{v}
	case []any:
		for _, s := range v {
			str, _ := s.(string)
			inputs = append(inputs, str)
		}
	}

	resp := api.EmbeddingResponse{Object: "list", Model: req.Model}
	for i, in := range inputs {
		// Deterministic three-dimensional vector derived from the input.
		resp.Data = append(resp.Data, api.Embedding{
			Object:    "embedding",
			Index:     i,
			Embedding: []float64{float64(len(in)), float64(i), 1},
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleModerations(w http.ResponseWriter, r *http.Request) {
	var req api.ModerationRequest
	if err := json.Decode(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	text, _ := req.Input.(string)
	flagged := strings.Contains(strings.ToLower(text), "violence")
	writeJSON(w, http.StatusOK, api.ModerationResponse{
		ID:    "modr-mock",
		Model: "mock-moderation",
		Results: []api.ModerationResult{{
			Flagged:        flagged,
			Categories:     map[string]bool{"violence": flagged},
			CategoryScores: map[string]float64{"violence": map[bool]float64{true: 0.98, false: 0.01}[flagged]},
		}},
	})
}

func (g *Gateway) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "expected multipart/form-data")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "file is required")
		return
	}
	defer f.Close()
	audio, _ := io.ReadAll(f)

	text := fmt.Sprintf("transcribed %d bytes from %s", len(audio), hdr.Filename)
	switch r.FormValue("response_format") {
	case "text", "srt", "vtt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, text)
	default:
		writeJSON(w, http.StatusOK, api.Transcription{Text: text, Language: r.FormValue("language"), Duration: 1.5})
	}
}
