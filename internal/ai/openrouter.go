package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// OpenRouterProvider talks to any OpenAI-compatible chat completions API.
type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
	Client  *http.Client
}

type openRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatReq struct {
	Model    string          `json:"model"`
	Messages []openRouterMsg `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openRouterError struct {
	Message string `json:"message"`
}

// openRouterResp covers full replies (message) and stream chunks (delta).
type openRouterResp struct {
	Choices []struct {
		Message openRouterMsg `json:"message"`
		Delta   openRouterMsg `json:"delta"`
	} `json:"choices"`
	Error *openRouterError `json:"error,omitempty"`
}

func (r openRouterResp) err() error {
	if r.Error != nil && r.Error.Message != "" {
		return errors.New("openrouter: " + r.Error.Message)
	}
	return nil
}

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		SiteURL: siteURL,
		AppName: appName,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *OpenRouterProvider) post(ctx context.Context, client *http.Client, messages []Message, stream bool) (*http.Response, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("openrouter: api key is required")
	}
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return nil, errors.New("openrouter: model is required")
	}

	msgs := make([]openRouterMsg, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openRouterMsg{Role: openAIRole(m.Role), Content: m.Content})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		header.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		header.Set("X-Title", p.AppName)
	}
	url := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	return postJSON(ctx, client, "openrouter", url, openRouterChatReq{Model: model, Messages: msgs, Stream: stream}, header)
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	resp, err := p.post(ctx, p.Client, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded openRouterResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if err := decoded.err(); err != nil {
		return "", err
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openrouter: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// StreamChat streams delta content via SSE until [DONE].
func (p *OpenRouterProvider) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		resp, err := p.post(ctx, streaming(p.Client), messages, true)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		err = eachSSEData(resp.Body, func(data []byte) (bool, error) {
			if string(data) == "[DONE]" {
				return true, nil
			}
			var decoded openRouterResp
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false, err
			}
			if err := decoded.err(); err != nil {
				return false, err
			}
			if len(decoded.Choices) == 0 {
				return false, nil
			}
			if d := decoded.Choices[0].Delta.Content; d != "" && !emit(ctx, chunks, d) {
				return false, ctx.Err()
			}
			return false, nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
