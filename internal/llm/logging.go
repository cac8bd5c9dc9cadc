package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingProvider is a decorator that logs every request with its latency
// and token usage.
type LoggingProvider struct {
	inner Provider
	log   logrus.FieldLogger
}

// WithLogging wraps a Provider with structured request logging.
func WithLogging(p Provider, log logrus.FieldLogger) Provider {
	return &LoggingProvider{inner: p, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	entry := l.log.WithFields(logrus.Fields{
		"model":      l.inner.ModelID(),
		"messages":   len(req.Messages),
		"max_tokens": req.MaxTokens,
		"latency_ms": time.Since(start).Milliseconds(),
	})

	if err != nil {
		entry.WithError(err).Warn("LLM request failed")
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"stop_reason":   resp.StopReason,
	}).Debug("LLM request completed")

	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
