package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())
	require.Equal(t, "", errs.Error())

	errs.Add(errBoom)
	require.Equal(t, "boom", errs.Aggregate().Error())
	errs.Add(nil, io.EOF)
	err := errs.Aggregate()
	require.Equal(t, "Multiple errors:\nboom\nEOF", err.Error())
	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, err, io.EOF)
}

func TestRunnerWait(t *testing.T) {
	r := NewRunner()
	r.Go(
		RunFunc(func(ctx context.Context) error { return nil }),
		NamedRun("canceled", RunFunc(func(ctx context.Context) error {
			return context.Canceled
		})),
	)
	require.NoError(t, r.Wait())
}

func TestRunnerStopOnError(t *testing.T) {
	r := NewRunner()
	r.StopOnError = true
	r.Go(
		NamedRun("blocking", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failing", RunFunc(func(ctx context.Context) error {
			return errBoom
		})),
	)
	err := r.Wait()
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, "boom", err.Error())
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestNameOf(t *testing.T) {
	require.Equal(t, "x", NameOf(NamedRun("x", RunFunc(nil)), "0"))
	require.Equal(t, "0", NameOf(RunFunc(nil), "0"))
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	var canceled bool
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCancel(ctx, func() {
		canceled = true
		close(unblock)
	}, func() error {
		<-unblock
		return io.EOF
	})
	require.Equal(t, context.Canceled, err)
	require.True(t, canceled)

	err = RunWithContext(context.Background(), func() error { return errBoom })
	require.Equal(t, errBoom, err)
}

type testCloser struct{ closed int }

func (c *testCloser) Close() error {
	c.closed++
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	var c testCloser
	require.NoError(t, RunWithContextCloser(context.Background(), &c, func() error { return nil }))
	require.Equal(t, 1, c.closed)
}
