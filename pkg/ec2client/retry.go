package ec2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
)

func (c *AWSClient) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return err
		}

		lastErr = err
		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateDelay(attempt)):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "RequestLimitExceeded", "Throttling", "ThrottlingException", "ServiceUnavailable", "Unavailable", "InternalError":
			return true
		}
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// calculateDelay calculates the retry delay with exponential backoff and jitter
func (c *AWSClient) calculateDelay(attempt int) time.Duration {
	delay := float64(c.baseDelay) * math.Pow(2.0, float64(attempt))

	// ±25%
	delay += delay * 0.25 * (2*rand.Float64() - 1)

	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}

	return time.Duration(delay)
}
