package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/sealdoc/sealdoc/internal/config"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

// Class is the failure classification driving the retry policy.
type Class int

const (
	// ClassTerminal: policy denials, missing objects, corrupted sources.
	// Returned immediately, never retried.
	ClassTerminal Class = iota
	// ClassTransient: timeouts, throttling, open breaker. Retried with
	// backoff, then escalated to StorageFatal.
	ClassTransient
)

// Classify maps raw storage/conversion errors onto the retry policy.
func Classify(err error) Class {
	if err == nil {
		return ClassTerminal
	}
	var denied *appErr.DeniedError
	if errors.As(err, &denied) {
		return ClassTerminal
	}
	if errors.Is(err, appErr.ErrNotFound) || errors.Is(err, appErr.ErrConversionFailed) {
		return ClassTerminal
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return ClassTerminal
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ClassTerminal
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	// Unrecognized storage failures are assumed transient; the attempt
	// bound keeps that assumption cheap.
	return ClassTransient
}

// NormalizeNotFound rewrites a storage-level missing object into the
// domain's not-found error, whichever backend reported it.
func NormalizeNotFound(err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: object missing", appErr.ErrNotFound)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: object missing", appErr.ErrNotFound)
	}
	return err
}

// Coordinator applies bounded retry with exponential backoff and circuit
// breaking around storage and conversion operations. Each attempt moves
// through pending -> retry-scheduled -> pending until it succeeds or the
// bound is hit; a failed request leaves no poison state behind.
type Coordinator struct {
	attempts uint
	delay    time.Duration
	breaker  *gobreaker.CircuitBreaker
}

func New(cfg config.RecoveryConfig) *Coordinator {
	failures := uint32(cfg.BreakerFailures)
	return &Coordinator{
		attempts: uint(cfg.MaxAttempts),
		delay:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "blobstore",
			Timeout: time.Duration(cfg.BreakerTimeoutMS) * time.Millisecond,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
		}),
	}
}

// Execute runs op under the breaker and the retry policy. Terminal errors
// surface unchanged; transient errors that outlive the retry budget surface
// as StorageFatal.
func (c *Coordinator) Execute(ctx context.Context, name string, op func(ctx context.Context) error) error {
	err := retry.Do(
		func() error {
			_, execErr := c.breaker.Execute(func() (interface{}, error) {
				return nil, op(ctx)
			})
			return execErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return Classify(err) == ClassTransient
		}),
		retry.OnRetry(func(attempt uint, err error) {
			logutil.GetLogger(ctx).Warn("retry scheduled",
				zap.String("op", name),
				zap.Uint("attempt", attempt+1),
				zap.Error(err))
		}),
	)
	if err == nil {
		return nil
	}
	err = NormalizeNotFound(err)
	if Classify(err) == ClassTerminal {
		return err
	}
	return fmt.Errorf("%w: %s: %v", appErr.ErrStorageFatal, name, err)
}
