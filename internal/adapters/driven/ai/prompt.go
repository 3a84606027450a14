package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// batchPrompt asks for a list of classifications, one per input line.
const batchPrompt = `You are an NER system that classifies index terms from historical finding aids into
PERSON, PLACE, ORGANIZATION, or TERM. Each line of the user message is exactly one term;
"Aberdeen, Scotland" is one term because it occupies one line. Return a JSON object in
this format, with one entry per input line and the term copied exactly:

{"classifications": [{"term": string, "classification": "PERSON" | "PLACE" | "ORGANIZATION" | "TERM"}]}`

// singlePrompt asks for the classification of a single term.
const singlePrompt = `You are an NER system that classifies terms into PERSON, PLACE, ORGANIZATION, or TERM.
The user message is exactly one term. For example, if the term is 'Thomas Jefferson' you
return {"classification": "PERSON"}. Return a JSON object in this format:

{"classification": string}`

const temperature = 0.1

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest is the OpenAI /chat/completions request format
type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Messages       []chatMessage   `json:"messages"`
}

// chatResponse is the OpenAI /chat/completions response format
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func newChatRequest(model, system, user string) chatRequest {
	return chatRequest{
		Model:          model,
		Temperature:    temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
}

// userContent returns the user message of a request, or "".
func (r chatRequest) userContent() string {
	for _, m := range r.Messages {
		if m.Role == "user" {
			return m.Content
		}
	}
	return ""
}

// content returns the first choice of a chat completion.
func (r chatResponse) content() (string, error) {
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", domain.ErrMalformedResponse)
	}
	return r.Choices[0].Message.Content, nil
}

var (
	jsonBlockPattern     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the JSON object embedded in model output, stripping
// markdown fences and trailing commas. Returns "" when there is none.
func ExtractJSON(content string) string {
	raw := ""
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		raw = matches[1]
	} else {
		raw = jsonObjectPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// parseClassifications decodes the batch prompt's answer.
func parseClassifications(content string) ([]domain.TermClassification, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedResponse)
	}

	var out struct {
		Classifications []domain.TermClassification `json:"classifications"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if out.Classifications == nil {
		return nil, fmt.Errorf("%w: missing classifications", domain.ErrMalformedResponse)
	}
	return out.Classifications, nil
}

// parseSingle decodes the single-term prompt's answer.
func parseSingle(content string) (string, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return "", fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedResponse)
	}

	var out struct {
		Classification string `json:"classification"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(out.Classification) == "" {
		return "", fmt.Errorf("%w: empty classification", domain.ErrMalformedResponse)
	}
	return out.Classification, nil
}
