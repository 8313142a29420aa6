package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/richxcame/langsheet/pkg/httpclient"
)

// LibreConfig configures a LibreTranslate server.
type LibreConfig struct {
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
}

// LibreTranslator calls the /translate endpoint of a LibreTranslate server.
type LibreTranslator struct {
	client *httpclient.Client
	apiKey string
}

// LibreTranslate names Chinese scripts differently from Google.
var libreCodes = map[string]string{
	"zh-CN": "zh",
	"zh-TW": "zt",
}

type libreRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText []string `json:"translatedText"`
}

// NewLibreTranslator creates a client for the server at cfg.Endpoint.
func NewLibreTranslator(cfg LibreConfig, opts ...httpclient.Option) *LibreTranslator {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	client := httpclient.NewClient(strings.TrimRight(cfg.Endpoint, "/"), timeout).Apply(opts...)
	return &LibreTranslator{client: client, apiKey: cfg.APIKey}
}

// Name identifies the provider in logs and metrics.
func (l *LibreTranslator) Name() string {
	return "libretranslate"
}

// Translate sends all texts in one request.
func (l *LibreTranslator) Translate(ctx context.Context, texts []string, target, source string) ([]string, error) {
	body, err := l.client.Post(ctx, "/translate", libreRequest{
		Q:      texts,
		Source: libreCode(source),
		Target: libreCode(target),
		Format: "text",
		APIKey: l.apiKey,
	}, nil)
	if err != nil {
		return nil, err
	}

	var resp libreResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("translation: decode libretranslate response: %w", err)
	}
	if len(resp.TranslatedText) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, len(texts), len(resp.TranslatedText))
	}
	return resp.TranslatedText, nil
}

func libreCode(code string) string {
	if mapped, ok := libreCodes[code]; ok {
		return mapped
	}
	return code
}
