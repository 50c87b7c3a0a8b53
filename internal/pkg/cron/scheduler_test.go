package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsImmediatelyAndOnEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	scheduler := NewScheduler(clock)

	var runs atomic.Int32
	scheduler.AddJob("count", time.Minute, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_FailingJobKeepsRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	scheduler := NewScheduler(clock)

	var runs atomic.Int32
	scheduler.AddJob("failing", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})
	scheduler.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	scheduler.Stop()
}

type deliveryCounter struct {
	payroll.PayrollService
	calls atomic.Int32
	err   error
}

func (d *deliveryCounter) DeliverPendingPayslips(ctx context.Context) error {
	d.calls.Add(1)
	return d.err
}

func TestPayrollJobs_RegistersDelivery(t *testing.T) {
	svc := &deliveryCounter{}
	scheduler := NewScheduler(clockwork.NewFakeClock())
	NewPayrollJobs(svc, 15*time.Minute).RegisterJobs(scheduler)

	require.Len(t, scheduler.jobs, 1)
	assert.Equal(t, "deliver_pending_payslips", scheduler.jobs[0].Name)
	assert.Equal(t, 15*time.Minute, scheduler.jobs[0].Interval)

	scheduler.RunOnce(context.Background())
	assert.EqualValues(t, 1, svc.calls.Load())
}

func TestPayrollJobs_PropagatesDeliveryError(t *testing.T) {
	errDelivery := errors.New("database down")
	jobs := NewPayrollJobs(&deliveryCounter{err: errDelivery}, time.Minute)

	assert.ErrorIs(t, jobs.DeliverPendingPayslips(context.Background()), errDelivery)
}
