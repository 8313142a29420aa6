// Package translation talks to machine-translation providers and turns a
// column of strings into its translation, batch by batch.
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richxcame/langsheet/pkg/config"
	"github.com/richxcame/langsheet/pkg/httpclient"
	"github.com/richxcame/langsheet/pkg/resilience"
	"google.golang.org/api/googleapi"
)

// ErrCountMismatch is returned when a provider answers with a different
// number of strings than it was sent.
var ErrCountMismatch = errors.New("translation: result count does not match input")

// Translator translates a list of strings from source to target. The result
// has the same length and order as texts.
type Translator interface {
	Name() string
	Translate(ctx context.Context, texts []string, target, source string) ([]string, error)
}

// NewTranslator builds the provider selected in cfg. apiKey overrides
// cfg.APIKey when non-empty, typically after resolving a secret reference.
func NewTranslator(ctx context.Context, cfg config.TranslateConfig, apiKey string) (Translator, error) {
	if apiKey == "" {
		apiKey = cfg.APIKey
	}

	switch strings.ToLower(cfg.Provider) {
	case "google", "":
		return NewGoogleTranslator(ctx, GoogleConfig{
			APIKey:          apiKey,
			CredentialsFile: cfg.CredentialsFile,
			Endpoint:        cfg.Endpoint,
		})
	case "libretranslate":
		return NewLibreTranslator(LibreConfig{
			Endpoint:       cfg.Endpoint,
			APIKey:         apiKey,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("translation: unsupported provider %q", cfg.Provider)
	}
}

// IsRetryable classifies provider errors: throttling and server faults are
// retried, malformed requests and result mismatches are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrCountMismatch) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return resilience.IsRetryableHTTPStatus(gerr.Code)
	}

	return httpclient.IsRetryable(err)
}
