package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return nil
}

type panickingJob struct{}

func (panickingJob) Name() string              { return "panicking" }
func (panickingJob) Run(context.Context) error { panic("boom") }

func newStoppedScheduler(job Job) *CronScheduler {
	return NewCronScheduler(MustParseCronExpression("0 2 * * *"), time.UTC, job)
}

func TestScheduler_StartStop(t *testing.T) {
	cs := newStoppedScheduler(&countingJob{})

	require.NoError(t, cs.Start(context.Background()))
	assert.ErrorIs(t, cs.Start(context.Background()), ErrSchedulerAlreadyRunning)

	cs.Stop()
	cs.Stop() // idempotent
}

func TestScheduler_StartWithoutJob(t *testing.T) {
	cs := newStoppedScheduler(nil)

	assert.ErrorIs(t, cs.Start(context.Background()), ErrSchedulerNoJob)

	cs.SetJob(&countingJob{})
	require.NoError(t, cs.Start(context.Background()))
	cs.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	job := &countingJob{}
	cs := newStoppedScheduler(job)

	assert.ErrorIs(t, cs.RunNow(context.Background()), ErrSchedulerNotRunning)

	require.NoError(t, cs.Start(context.Background()))
	defer cs.Stop()

	require.NoError(t, cs.RunNow(context.Background()))
	require.NoError(t, cs.RunNow(context.Background()))
	assert.EqualValues(t, 2, job.runs.Load())
}

func TestScheduler_RunNowRecoversPanic(t *testing.T) {
	cs := newStoppedScheduler(panickingJob{})

	require.NoError(t, cs.Start(context.Background()))
	defer cs.Stop()

	assert.NotPanics(t, func() {
		_ = cs.RunNow(context.Background())
	})
}

func TestScheduler_Reschedule(t *testing.T) {
	cs := newStoppedScheduler(&countingJob{})

	expr, tz := cs.Schedule()
	assert.Equal(t, "0 2 * * *", expr)
	assert.Equal(t, "UTC", tz)

	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)
	cs.Reschedule(MustParseCronExpression("*/30 * * * *"), loc)

	expr, tz = cs.Schedule()
	assert.Equal(t, "*/30 * * * *", expr)
	assert.Equal(t, "Asia/Almaty", tz)

	next := cs.NextRun()
	assert.True(t, time.Until(next) <= 30*time.Minute+time.Second)
}

func TestScheduler_NextRun(t *testing.T) {
	cs := newStoppedScheduler(&countingJob{})

	next := cs.NextRun()
	assert.Equal(t, 2, next.In(time.UTC).Hour())
	assert.True(t, next.After(time.Now()))
}
