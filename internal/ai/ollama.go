package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatReq struct {
	Model    string      `json:"model"`
	Messages []ollamaMsg `json:"messages"`
	Stream   bool        `json:"stream"`
}

// ollamaChatResp is both the single reply and one NDJSON stream line.
type ollamaChatResp struct {
	Message ollamaMsg `json:"message"`
	Done    bool      `json:"done"`
	Error   string    `json:"error,omitempty"`
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *OllamaProvider) post(ctx context.Context, client *http.Client, messages []Message, stream bool) (*http.Response, error) {
	msgs := make([]ollamaMsg, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollamaMsg{Role: openAIRole(m.Role), Content: m.Content})
	}
	body := ollamaChatReq{Model: p.Model, Messages: msgs, Stream: stream}
	return postJSON(ctx, client, "ollama", strings.TrimRight(p.BaseURL, "/")+"/api/chat", body, nil)
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	resp, err := p.post(ctx, p.Client, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", errors.New("ollama: " + decoded.Error)
	}
	return decoded.Message.Content, nil
}

// StreamChat reads the NDJSON stream until a line reports done.
func (p *OllamaProvider) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
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

		err = eachLine(resp.Body, func(line []byte) (bool, error) {
			var decoded ollamaChatResp
			if err := json.Unmarshal(line, &decoded); err != nil {
				return false, err
			}
			if decoded.Error != "" {
				return false, errors.New("ollama: " + decoded.Error)
			}
			if c := decoded.Message.Content; c != "" && !emit(ctx, chunks, c) {
				return false, ctx.Err()
			}
			return decoded.Done, nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
