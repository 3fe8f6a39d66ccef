package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

const DefaultBatchSize = 50

// Translator translates a batch of subtitle texts. Implementations must
// return exactly one output per input, in order.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// llmTranslator talks to an OpenAI-compatible chat-completions endpoint.
// Batching keeps prompts bounded and isolates failures to one batch.
type llmTranslator struct {
	client *resty.Client
	model  string
}

func NewLLMTranslator(cfg config.TranslatorConfig) Translator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout)
	return &llmTranslator{client: client, model: cfg.Model}
}

const translateSystemPrompt = "You are a subtitle translator. You receive a JSON array of subtitle lines. " +
	"Translate every line from %s to %s. Reply with ONLY a JSON array of the translated lines, " +
	"same length and order as the input. Keep line breaks inside entries. Do not merge or split entries."

func (t *llmTranslator) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	reqBody := chatRequest{
		Model: t.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(translateSystemPrompt, sourceLang, targetLang)},
			{Role: "user", Content: string(payload)},
		},
	}

	respBody := &chatResponse{}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(respBody).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("translation provider returned %s", resp.Status())
	}
	if respBody.Error != nil {
		return nil, fmt.Errorf("translation provider error: %s", respBody.Error.Message)
	}
	if len(respBody.Choices) == 0 {
		return nil, fmt.Errorf("translation provider returned no choices")
	}

	content := stripCodeFence(respBody.Choices[0].Message.Content)
	var translated []string
	if err := json.Unmarshal([]byte(content), &translated); err != nil {
		return nil, fmt.Errorf("translation response is not a JSON array: %w", err)
	}
	return translated, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// TranslateSegments translates segments in fixed-size batches. A batch whose
// returned count mismatches its input is a hard failure for the job; the
// round-trip may only change text, never count, indices or timestamps.
func TranslateSegments(ctx context.Context, t Translator, log logger.Logger, segments []Segment, sourceLang, targetLang string, batchSize int) ([]Segment, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([]Segment, 0, len(segments))
	for start := 0; start < len(segments); start += batchSize {
		end := start + batchSize
		if end > len(segments) {
			end = len(segments)
		}
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i, seg := range batch {
			texts[i] = seg.Text
		}

		translated, err := t.TranslateBatch(ctx, texts, sourceLang, targetLang)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}
		if len(translated) != len(batch) {
			return nil, fmt.Errorf("batch %d-%d: translation returned %d segments, expected %d",
				start, end-1, len(translated), len(batch))
		}

		for i, seg := range batch {
			seg.Text = translated[i]
			out = append(out, seg)
		}
	}

	// Defensive final check. Per-batch strictness above makes a mismatch
	// unreachable in practice, but if it ever happens the track is aligned
	// by padding with source text / dropping extras, loudly.
	if len(out) != len(segments) {
		log.Warnf("translated track has %d segments, expected %d; padding/truncating to align", len(out), len(segments))
		if len(out) > len(segments) {
			out = out[:len(segments)]
		}
		for i := len(out); i < len(segments); i++ {
			out = append(out, segments[i])
		}
	}
	return out, nil
}
