package payroll

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/leave"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestWorkingDaysInMonth(t *testing.T) {
	tests := []struct {
		month, year int
		want        int
	}{
		{2, 2024, 21}, // leap February
		{3, 2024, 21},
		{4, 2024, 22},
		{6, 2024, 20},
		{2, 2023, 20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, WorkingDaysInMonth(tt.month, tt.year), "%04d-%02d", tt.year, tt.month)
	}
}

func TestClassifyPeriod(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, payroll.PeriodCurrentOrFuture, ClassifyPeriod(6, 2024, now))
	assert.Equal(t, payroll.PeriodCurrentOrFuture, ClassifyPeriod(7, 2024, now))
	assert.Equal(t, payroll.PeriodCurrentOrFuture, ClassifyPeriod(1, 2025, now))
	assert.Equal(t, payroll.PeriodPast, ClassifyPeriod(5, 2024, now))
	assert.Equal(t, payroll.PeriodPast, ClassifyPeriod(12, 2023, now))
}

func TestSummarizeAttendance_EmptyCurrentPeriodIsFullyPresent(t *testing.T) {
	summary := SummarizeAttendance(6, 2024, 0, nil, payroll.PeriodCurrentOrFuture)

	assert.Equal(t, 20, summary.WorkingDays)
	assert.Equal(t, 20, summary.PresentDays)
	assert.Equal(t, 0, summary.AbsentDays)
}

func TestSummarizeAttendance_EmptyPastPeriodIsFullyAbsent(t *testing.T) {
	summary := SummarizeAttendance(4, 2024, 0, nil, payroll.PeriodPast)

	assert.Equal(t, 22, summary.WorkingDays)
	assert.Equal(t, 0, summary.PresentDays)
	assert.Equal(t, 22, summary.AbsentDays)
}

func TestSummarizeAttendance_LeaveSplit(t *testing.T) {
	leaves := []leave.LeaveRequest{
		{TotalDays: 2, LeaveTypeIsPaid: boolPtr(true)},
		{TotalDays: 1.5, LeaveTypeIsPaid: boolPtr(false)},
		{TotalDays: 1}, // unknown paid flag counts as unpaid
	}

	summary := SummarizeAttendance(4, 2024, 15, leaves, payroll.PeriodPast)

	assert.Equal(t, 15, summary.PresentDays)
	assert.Equal(t, 2.0, summary.PaidLeaveDays)
	assert.Equal(t, 2.5, summary.UnpaidLeaveDays)
	// 22 - 15 - 2 - 2.5 = 2.5, floored
	assert.Equal(t, 2, summary.AbsentDays)
}

func TestSummarizeAttendance_LeaveOnlySkipsDefault(t *testing.T) {
	leaves := []leave.LeaveRequest{{TotalDays: 3, LeaveTypeIsPaid: boolPtr(true)}}

	summary := SummarizeAttendance(6, 2024, 0, leaves, payroll.PeriodCurrentOrFuture)

	assert.Equal(t, 0, summary.PresentDays)
	assert.Equal(t, 3.0, summary.PaidLeaveDays)
	assert.Equal(t, 17, summary.AbsentDays)
}

func TestSummarizeAttendance_InvalidLeaveDays(t *testing.T) {
	leaves := []leave.LeaveRequest{
		{TotalDays: math.NaN(), LeaveTypeIsPaid: boolPtr(true)},
		{TotalDays: -2, LeaveTypeIsPaid: boolPtr(false)},
	}

	summary := SummarizeAttendance(4, 2024, 10, leaves, payroll.PeriodPast)

	assert.Equal(t, 0.0, summary.PaidLeaveDays)
	assert.Equal(t, 0.0, summary.UnpaidLeaveDays)
	assert.Equal(t, 12, summary.AbsentDays)
}

func TestSummarizeAttendance_AbsentNeverNegative(t *testing.T) {
	summary := SummarizeAttendance(4, 2024, 25, nil, payroll.PeriodPast)

	assert.Equal(t, 25, summary.PresentDays)
	assert.Equal(t, 0, summary.AbsentDays)
}

func TestAttendanceAggregator_Aggregate(t *testing.T) {
	attendance := &memAttendanceRepo{present: map[string]int{"emp-1": 18}}
	leaves := &memLeaveRepo{leaves: map[string][]leave.LeaveRequest{
		"emp-1": {{TotalDays: 2, LeaveTypeIsPaid: boolPtr(true)}},
	}}
	aggregator := NewAttendanceAggregator(attendance, leaves, clockwork.NewFakeClockAt(harnessNow))

	summary, err := aggregator.Aggregate(context.Background(), "emp-1", testCompanyID, 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, payroll.AttendanceSummary{
		WorkingDays:   22,
		PresentDays:   18,
		AbsentDays:    2,
		PaidLeaveDays: 2,
	}, summary)

	// Nothing recorded for the current month falls back to full attendance.
	summary, err = aggregator.Aggregate(context.Background(), "emp-2", testCompanyID, 6, 2024)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.PresentDays)
}

func TestAttendanceAggregator_PropagatesErrors(t *testing.T) {
	attendance := &memAttendanceRepo{err: errStorage}
	aggregator := NewAttendanceAggregator(attendance, &memLeaveRepo{}, clockwork.NewFakeClockAt(harnessNow))

	_, err := aggregator.Aggregate(context.Background(), "emp-1", testCompanyID, 4, 2024)
	assert.ErrorIs(t, err, errStorage)
}

func TestPeriodBounds(t *testing.T) {
	from, to := periodBounds(2, 2024)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), to)
}
