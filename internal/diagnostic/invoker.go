package diagnostic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/repairit-app/repairit-platform/internal/observability/metrics"
	"github.com/repairit-app/repairit-platform/pkg/logging"
)

// Fallback reasons carried on a Reply when the invocation ended in a
// pre-authored message instead of a real expert response.
const (
	FallbackQuota       = "quota"
	FallbackUnavailable = "unavailable"
)

// Reply is what the Invoker hands back to the engine. The caller always
// receives renderable text: terminal remote failures surface as Fallback
// replies, never as errors. The only error returned is a context error when
// the caller cancels mid-flight.
type Reply struct {
	Text           string
	Sources        []Source
	Fallback       bool
	FallbackReason string
}

// Invoker wraps an ExpertClient with bounded retry. Rate-limit and
// server-class failures are retried with exponential backoff (1s, 2s, 4s by
// default); anything else fails straight to the fallback text.
type Invoker struct {
	client     ExpertClient
	logger     *logging.Logger
	metrics    *metrics.EngineMetrics
	maxRetries int
	baseDelay  time.Duration
}

func NewInvoker(client ExpertClient, logger *logging.Logger) *Invoker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Invoker{
		client:     client,
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

func (i *Invoker) WithMaxRetries(n int) *Invoker {
	if n >= 0 {
		i.maxRetries = n
	}
	return i
}

func (i *Invoker) WithBaseDelay(d time.Duration) *Invoker {
	if d > 0 {
		i.baseDelay = d
	}
	return i
}

func (i *Invoker) WithMetrics(m *metrics.EngineMetrics) *Invoker {
	i.metrics = m
	return i
}

// Invoke runs the request against the expert-response service, retrying
// transient failures. The retry budget is one initial attempt plus
// maxRetries; exhaustion and non-retryable errors both degrade to a
// fallback Reply.
func (i *Invoker) Invoke(ctx context.Context, req ExpertRequest) (Reply, error) {
	started := time.Now()
	defer func() {
		i.metrics.ObserveInvokeLatency(time.Since(started).Seconds())
	}()

	if i.client == nil {
		i.metrics.ObserveFallback(FallbackUnavailable)
		return Reply{Text: unavailableFallback, Fallback: true, FallbackReason: FallbackUnavailable}, nil
	}

	var lastErr error
	delay := i.baseDelay
	for attempt := 0; ; attempt++ {
		resp, err := i.client.Generate(ctx, req)
		if err == nil {
			i.metrics.ObserveAttempt("success")
			text := strings.TrimSpace(resp.Text)
			if text == "" {
				text = emptyReplyFallback
			}
			return Reply{Text: text, Sources: resp.Sources}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, ctxErr
		}
		lastErr = err

		if !isRetryable(err) {
			i.metrics.ObserveAttempt("fatal_error")
			break
		}
		i.metrics.ObserveAttempt("retryable_error")
		if attempt >= i.maxRetries {
			break
		}

		i.logger.Warn("expert call failed, retrying",
			"error", err.Error(),
			"attempt", attempt+1,
			"backoff", delay.String(),
			"retries_left", i.maxRetries-attempt,
		)
		if err := sleep(ctx, delay); err != nil {
			return Reply{}, err
		}
		delay *= 2
	}

	if isRateLimited(lastErr) {
		i.logger.Error("expert invocation exhausted quota retries", "error", lastErr.Error())
		i.metrics.ObserveFallback(FallbackQuota)
		return Reply{Text: quotaFallback, Fallback: true, FallbackReason: FallbackQuota}, nil
	}
	i.logger.Error("expert invocation failed terminally", "error", lastErr.Error())
	i.metrics.ObserveFallback(FallbackUnavailable)
	return Reply{Text: unavailableFallback, Fallback: true, FallbackReason: FallbackUnavailable}, nil
}

// sleep waits for d or until the context ends, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRateLimited reports whether the failure is a quota/rate-limit signal.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

// isRetryable covers rate limits and any server-class error.
func isRetryable(err error) bool {
	if isRateLimited(err) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500 && gerr.Code <= 599
	}
	return false
}
