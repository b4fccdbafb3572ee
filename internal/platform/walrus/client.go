// Package walrus fetches resolution evidence blobs from a Walrus aggregator
// and classifies their contents.
package walrus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
)

// maxBlobSize bounds how much of a blob is read.
const maxBlobSize = 4 << 20

// Kind classifies a blob's contents.
type Kind string

const (
	KindCodeSnippet  Kind = "code-snippet"
	KindAIResolution Kind = "ai-resolution"
	KindUnknown      Kind = "unknown"
)

// Blob is a fetched and classified blob. Fields beyond Kind and RawText are
// set only when they apply to the kind.
type Blob struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	RawText     string `json:"raw_text"`
	Filename    string `json:"filename,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Code        string `json:"code,omitempty"`
	Language    string `json:"language,omitempty"`
	Title       string `json:"title,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// Client reads blobs over the aggregator HTTP API.
type Client struct {
	aggregatorURL string
	network       string
	httpClient    *http.Client
}

// NewClient creates a client for the aggregator at aggregatorURL. network
// ("testnet", "mainnet") is used for explorer links only.
func NewClient(aggregatorURL, network string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		aggregatorURL: strings.TrimRight(aggregatorURL, "/"),
		network:       network,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Fetch downloads blob id and classifies it. A missing blob is
// domain.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, id string) (Blob, error) {
	if strings.TrimSpace(id) == "" {
		return Blob{}, fmt.Errorf("walrus: %w: empty blob id", domain.ErrInvalidArgument)
	}
	endpoint := c.aggregatorURL + "/v1/blobs/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Blob{}, fmt.Errorf("walrus: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Blob{}, fmt.Errorf("walrus: %w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		return Blob{}, fmt.Errorf("walrus: %w: read blob %s: %v", domain.ErrUpstream, id, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Blob{}, fmt.Errorf("walrus: blob %s: %w", id, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return Blob{}, fmt.Errorf("walrus: %w: blob %s: HTTP %d", domain.ErrUpstream, id, resp.StatusCode)
	}

	b := Classify(string(body))
	b.ID = id
	b.ExplorerURL = c.explorerURL(id)
	return b, nil
}

func (c *Client) explorerURL(id string) string {
	if c.network == "" {
		return ""
	}
	return "https://walruscan.com/" + c.network + "/blob/" + url.PathEscape(id)
}

// Classify inspects text and fills in the kind-specific fields. Text that is
// not a JSON object is KindUnknown.
func Classify(text string) Blob {
	b := Blob{Kind: KindUnknown, RawText: text}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return b
	}
	str := func(key string) (string, bool) {
		v, ok := parsed[key].(string)
		return v, ok
	}
	typ, _ := str("type")
	timestamp, _ := str("timestamp")

	code, hasCode := str("code")
	title, hasTitle := str("title")
	prompt, hasPrompt := str("prompt")

	switch {
	case typ == string(KindCodeSnippet) || hasCode:
		b.Kind = KindCodeSnippet
		b.Filename, _ = str("filename")
		b.Timestamp = timestamp
		b.Code = code
		if !hasCode {
			b.Code = text
		}
		b.Language = DetectLanguage(b.Filename, b.Code)
	case typ == string(KindAIResolution) || (hasTitle && hasPrompt):
		b.Kind = KindAIResolution
		b.Title = title
		b.Prompt = prompt
		if !hasPrompt {
			b.Prompt = text
		}
		b.Timestamp = timestamp
	}
	return b
}

// DetectLanguage guesses a highlighting language from the filename, then
// from the code itself.
func DetectLanguage(filename, code string) string {
	switch {
	case strings.HasSuffix(filename, ".ts"), strings.HasSuffix(filename, ".tsx"):
		return "tsx"
	case strings.HasSuffix(filename, ".js"), strings.HasSuffix(filename, ".jsx"):
		return "jsx"
	case strings.HasSuffix(filename, ".py"):
		return "python"
	case strings.HasSuffix(filename, ".json"):
		return "json"
	case strings.HasSuffix(filename, ".go"):
		return "go"
	}
	if strings.Contains(code, "import requests") || strings.Contains(code, "def ") {
		return "python"
	}
	return "tsx"
}
