package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/sealdoc/sealdoc/internal/config"
	appErr "github.com/sealdoc/sealdoc/internal/pkg/errors"
)

func testCoordinator(attempts int) *Coordinator {
	return New(config.RecoveryConfig{
		MaxAttempts:      attempts,
		BackoffMS:        1,
		BreakerFailures:  100,
		BreakerTimeoutMS: 1000,
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"denial", appErr.Denied(appErr.ReasonExpired), ClassTerminal},
		{"not found", fmt.Errorf("page: %w", appErr.ErrNotFound), ClassTerminal},
		{"conversion", appErr.ErrConversionFailed, ClassTerminal},
		{"missing object", &types.NoSuchKey{}, ClassTerminal},
		{"missing file", &fs.PathError{Op: "open", Path: "pages/doc-1/1", Err: fs.ErrNotExist}, ClassTerminal},
		{"generic failure", errors.New("connection reset"), ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestExecute_TransientRetriedThenFatal(t *testing.T) {
	c := testCoordinator(3)
	calls := 0
	err := c.Execute(context.Background(), "blob_get", func(ctx context.Context) error {
		calls++
		return errors.New("flaky backend")
	})
	require.Equal(t, 3, calls)
	require.ErrorIs(t, err, appErr.ErrStorageFatal)
}

func TestExecute_TransientRecovers(t *testing.T) {
	c := testCoordinator(3)
	calls := 0
	err := c.Execute(context.Background(), "blob_get", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky backend")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestExecute_TerminalNotRetried(t *testing.T) {
	c := testCoordinator(5)
	calls := 0
	err := c.Execute(context.Background(), "blob_get", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("page: %w", appErr.ErrNotFound)
	})
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NotErrorIs(t, err, appErr.ErrStorageFatal)
}

func TestExecute_MissingObjectNormalized(t *testing.T) {
	c := testCoordinator(3)
	err := c.Execute(context.Background(), "blob_get", func(ctx context.Context) error {
		return &types.NoSuchKey{}
	})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestExecute_MissingFileNormalized(t *testing.T) {
	// The local backend reports a missing object as a path error; it must
	// behave exactly like the S3 backend's NoSuchKey: one attempt, mapped
	// to not-found, never escalated to a storage failure.
	c := testCoordinator(3)
	calls := 0
	err := c.Execute(context.Background(), "blob_get", func(ctx context.Context) error {
		calls++
		return &fs.PathError{Op: "open", Path: "pages/doc-1/1", Err: fs.ErrNotExist}
	})
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NotErrorIs(t, err, appErr.ErrStorageFatal)
}

func TestExecute_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := New(config.RecoveryConfig{
		MaxAttempts:      1,
		BackoffMS:        1,
		BreakerFailures:  2,
		BreakerTimeoutMS: 60000,
	})
	fail := func(ctx context.Context) error { return errors.New("down") }

	require.Error(t, c.Execute(context.Background(), "blob_get", fail))
	require.Error(t, c.Execute(context.Background(), "blob_get", fail))

	// The breaker is open now: the op no longer runs.
	calls := 0
	err := c.Execute(context.Background(), "blob_get", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, appErr.ErrStorageFatal)
	require.Equal(t, 0, calls)
}
