package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxLine = 2 * 1024 * 1024

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Code)
}

// apiErrorText pulls a message out of {"error":{"message":...}} or
// {"error":"..."} bodies.
func apiErrorText(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(envelope.Error, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &obj) == nil {
		return obj.Message
	}
	return ""
}

// postJSON sends body and returns the response when the status is 2xx. The
// caller closes the body.
func postJSON(ctx context.Context, client *http.Client, provider, url string, body any, header http.Header) (*http.Response, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: http client is nil", provider)
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := apiErrorText(raw)
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &StatusError{Provider: provider, Code: resp.StatusCode, Message: msg}
}

// streaming returns a copy of c without an overall timeout; ctx bounds the
// stream instead.
func streaming(c *http.Client) *http.Client {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Timeout = 0
	return &cp
}

// eachLine calls fn for every non-empty line until fn reports done.
func eachLine(r io.Reader, fn func(line []byte) (done bool, err error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		done, err := fn(line)
		if err != nil || done {
			return err
		}
	}
	return sc.Err()
}

// eachSSEData calls fn with the payload of every "data:" line.
func eachSSEData(r io.Reader, fn func(data []byte) (done bool, err error)) error {
	return eachLine(r, func(line []byte) (bool, error) {
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			return false, nil
		}
		return fn(bytes.TrimSpace(data))
	})
}
