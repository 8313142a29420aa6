package translation

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/richxcame/langsheet/internal/placeholder"
	"github.com/richxcame/langsheet/pkg/logger"
	"github.com/richxcame/langsheet/pkg/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of strings sent per provider call.
const DefaultBatchSize = 5

// BatchTranslator splits a column into fixed-size batches and shields
// placeholders around each provider call. A batch that cannot be translated
// keeps its source strings, so a column is always fully populated.
type BatchTranslator struct {
	provider  Translator
	batchSize int
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
	tracer    trace.Tracer
}

// Option configures a BatchTranslator.
type Option func(*BatchTranslator)

// WithBatchSize sets the batch size. Non-positive values are ignored.
func WithBatchSize(n int) Option {
	return func(b *BatchTranslator) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithRetry replaces the retry policy for provider calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(b *BatchTranslator) {
		b.retry = cfg
	}
}

// WithBreaker routes provider calls through cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(b *BatchTranslator) {
		b.breaker = cb
	}
}

// NewBatchTranslator wraps provider.
func NewBatchTranslator(provider Translator, opts ...Option) *BatchTranslator {
	retry := resilience.DefaultRetryConfig()
	retry.RetryableChecker = IsRetryable

	b := &BatchTranslator{
		provider:  provider,
		batchSize: DefaultBatchSize,
		retry:     retry,
		tracer:    otel.Tracer("github.com/richxcame/langsheet/internal/translation"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Translate returns the translation of every text, in order. Blank strings are
// not sent and stay as they are. When source and target are the same language
// the texts are returned unchanged without calling the provider.
//
// The only error is ctx's, returned when the caller gives up mid-column.
func (b *BatchTranslator) Translate(ctx context.Context, texts []string, target, source string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)

	if strings.EqualFold(target, source) {
		batchesTotal.WithLabelValues(b.provider.Name(), outcomeCopied).Inc()
		return out, nil
	}

	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		idx := pending[start:end]

		batch := make([]string, len(idx))
		for i, at := range idx {
			batch[i] = texts[at]
		}

		translated, err := b.translateBatch(ctx, batch, target, source)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for i, at := range idx {
			out[at] = translated[i]
		}
	}

	return out, nil
}

func (b *BatchTranslator) translateBatch(ctx context.Context, batch []string, target, source string) ([]string, error) {
	provider := b.provider.Name()
	ctx, span := b.tracer.Start(ctx, "translation.batch", trace.WithAttributes(
		attribute.String("translation.provider", provider),
		attribute.String("translation.source", source),
		attribute.String("translation.target", target),
		attribute.Int("translation.batch_size", len(batch)),
	))
	defer span.End()

	masked := make([]string, len(batch))
	for i, text := range batch {
		masked[i] = placeholder.Mask(text)
	}

	started := time.Now()
	result, err := resilience.RetryWithBreaker(ctx, b.retry, b.breaker, func(ctx context.Context) (interface{}, error) {
		return b.provider.Translate(ctx, masked, target, source)
	})
	batchDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
	stringsTotal.WithLabelValues(provider, target).Add(float64(len(batch)))

	if err != nil {
		outcome := outcomeFailed
		if errors.Is(err, resilience.ErrCircuitOpen) {
			outcome = outcomeCircuitOpen
		}
		batchesTotal.WithLabelValues(provider, outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		logger.WithContext(ctx).Warn("translation batch failed, keeping source strings",
			zap.String("provider", provider),
			zap.String("source", source),
			zap.String("target", target),
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return nil, err
	}

	translated, _ := result.([]string)
	if len(translated) != len(batch) {
		batchesTotal.WithLabelValues(provider, outcomeFailed).Inc()
		span.SetStatus(codes.Error, "count mismatch")
		logger.WithContext(ctx).Warn("translation batch returned wrong count, keeping source strings",
			zap.String("target", target),
			zap.Int("sent", len(batch)),
			zap.Int("received", len(translated)),
		)
		return nil, ErrCountMismatch
	}

	out := make([]string, len(batch))
	for i, text := range translated {
		out[i] = placeholder.Restore(html.UnescapeString(text), batch[i])
	}

	batchesTotal.WithLabelValues(provider, outcomeOK).Inc()
	logger.WithContext(ctx).Debug("translated batch",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("batch_size", len(batch)),
	)
	return out, nil
}
