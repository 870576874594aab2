//go:build !integration

package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Refresh(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestScheduler(t *testing.T) {
	t.Run("should run on start and then on every tick", func(t *testing.T) {
		job := &countingJob{}
		s := NewScheduler("test", 10*time.Millisecond, job, newTestLogger())

		s.Start(context.Background())
		assert.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
		s.Stop()

		after := job.runs.Load()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, after, job.runs.Load(), "no runs after Stop")
	})

	t.Run("should keep going after a failed run", func(t *testing.T) {
		job := &countingJob{err: errors.New("backend down")}
		s := NewScheduler("test", 10*time.Millisecond, job, newTestLogger())

		s.Start(context.Background())
		defer s.Stop()

		assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("should ignore a second Start and a Stop before Start", func(t *testing.T) {
		job := &countingJob{}
		s := NewScheduler("test", time.Hour, job, newTestLogger())
		s.Stop()

		s.Start(context.Background())
		s.Start(context.Background())
		assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
		s.Stop()
		s.Stop()
	})

	t.Run("should stop when the parent context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := NewScheduler("test", time.Hour, &countingJob{}, newTestLogger())
		s.Start(ctx)
		cancel()

		select {
		case <-s.done:
		case <-time.After(time.Second):
			t.Fatal("loop did not exit")
		}
	})

	t.Run("should default the interval", func(t *testing.T) {
		s := NewScheduler("test", 0, &countingJob{}, newTestLogger())
		assert.Equal(t, 30*time.Minute, s.interval)
	})
}
