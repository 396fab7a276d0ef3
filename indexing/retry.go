// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package indexing

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// maxBackoffDelay caps the wait between embedding attempts.
const maxBackoffDelay = 30 * time.Second

// backoff retries collaborator calls made while building an index.
type backoff struct {
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// retry runs op until it succeeds, attempts are exhausted, or ctx ends.
// The delay doubles after each failure up to maxBackoffDelay. Cancellation
// and deadline errors from op are returned at once; they would fail again.
// label names the work in log lines, for example "keyword batch 3/12".
func (b backoff) retry(ctx context.Context, label string, op func(context.Context) error) error {
	if b.attempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := b.baseDelay
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				b.logger.Debug("embedding succeeded after retry", "batch", label, "attempt", attempt)
			}
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}

		b.logger.Warn("embedding attempt failed",
			"batch", label,
			"attempt", attempt,
			"maxAttempts", b.attempts,
			"err", lastErr)
		if attempt == b.attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoffDelay)
	}

	return lastErr
}
