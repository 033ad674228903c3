package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
)

type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiReq struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r geminiResp) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r geminiResp) err() error {
	if r.Error != nil && r.Error.Message != "" {
		return fmt.Errorf("gemini: %s", r.Error.Message)
	}
	return nil
}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// buildGeminiReq moves system turns into systemInstruction. Gemini calls the
// assistant "model", so OpenAI-style names are mapped back.
func buildGeminiReq(messages []Message) geminiReq {
	system, turns := splitSystem(messages)
	req := geminiReq{Contents: make([]geminiContent, 0, len(turns))}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range turns {
		role := m.Role
		if role == "assistant" {
			role = RoleModel
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	return req
}

func (p *GeminiProvider) post(ctx context.Context, client *http.Client, method string, messages []Message) (*http.Response, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	url := fmt.Sprintf("%s/models/%s:%s", strings.TrimRight(p.BaseURL, "/"), p.Model, method)
	header := http.Header{}
	header.Set("x-goog-api-key", p.APIKey)
	return postJSON(ctx, client, "gemini", url, buildGeminiReq(messages), header)
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	resp, err := p.post(ctx, p.Client, "generateContent", messages)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded geminiResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if err := decoded.err(); err != nil {
		return "", err
	}
	if len(decoded.Candidates) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return decoded.text(), nil
}

// StreamChat streams text parts via streamGenerateContent?alt=sse.
func (p *GeminiProvider) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		resp, err := p.post(ctx, streaming(p.Client), "streamGenerateContent?alt=sse", messages)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		err = eachSSEData(resp.Body, func(data []byte) (bool, error) {
			var decoded geminiResp
			if err := json.Unmarshal(data, &decoded); err != nil {
				return false, err
			}
			if err := decoded.err(); err != nil {
				return false, err
			}
			if t := decoded.text(); t != "" && !emit(ctx, chunks, t) {
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
