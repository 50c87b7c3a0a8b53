package payroll

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/leave"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/jonboulle/clockwork"
)

// AttendanceAggregator turns raw attendance and approved leave into the
// monthly summary the calculator consumes.
type AttendanceAggregator struct {
	attendanceRepo attendance.AttendanceRepository
	leaveRepo      leave.LeaveRequestRepository
	clock          clockwork.Clock
}

func NewAttendanceAggregator(
	attendanceRepo attendance.AttendanceRepository,
	leaveRepo leave.LeaveRequestRepository,
	clock clockwork.Clock,
) *AttendanceAggregator {
	return &AttendanceAggregator{
		attendanceRepo: attendanceRepo,
		leaveRepo:      leaveRepo,
		clock:          clock,
	}
}

// Aggregate builds the attendance summary of one employee for one month.
func (a *AttendanceAggregator) Aggregate(ctx context.Context, employeeID, companyID string, month, year int) (payroll.AttendanceSummary, error) {
	from, to := periodBounds(month, year)

	presentDays, err := a.attendanceRepo.CountPresentDays(ctx, employeeID, companyID, from, to)
	if err != nil {
		return payroll.AttendanceSummary{}, fmt.Errorf("failed to count present days: %w", err)
	}

	leaves, err := a.leaveRepo.ListApprovedOverlapping(ctx, employeeID, companyID, from, to)
	if err != nil {
		return payroll.AttendanceSummary{}, fmt.Errorf("failed to list approved leaves: %w", err)
	}

	timing := ClassifyPeriod(month, year, a.clock.Now())
	return SummarizeAttendance(month, year, presentDays, leaves, timing), nil
}

// ClassifyPeriod places (month, year) relative to now.
func ClassifyPeriod(month, year int, now time.Time) payroll.PeriodTiming {
	nowYear, nowMonth, _ := now.Date()
	if year > nowYear || (year == nowYear && month >= int(nowMonth)) {
		return payroll.PeriodCurrentOrFuture
	}
	return payroll.PeriodPast
}

// SummarizeAttendance is the pure part of aggregation. Leave requests are
// expected to be approved and to overlap the month; their full day-count is
// used. A month with no attendance and no leave is assumed fully present when
// it is current or future, and fully absent when it is past.
func SummarizeAttendance(month, year int, presentDays int, leaves []leave.LeaveRequest, timing payroll.PeriodTiming) payroll.AttendanceSummary {
	summary := payroll.AttendanceSummary{
		WorkingDays: WorkingDaysInMonth(month, year),
		PresentDays: presentDays,
	}
	if summary.PresentDays < 0 {
		summary.PresentDays = 0
	}

	for _, l := range leaves {
		days := sanitizeDays(l.TotalDays)
		if l.LeaveTypeIsPaid != nil && *l.LeaveTypeIsPaid {
			summary.PaidLeaveDays += days
		} else {
			summary.UnpaidLeaveDays += days
		}
	}

	if summary.PresentDays == 0 && summary.PaidLeaveDays == 0 && summary.UnpaidLeaveDays == 0 {
		if timing == payroll.PeriodCurrentOrFuture {
			summary.PresentDays = summary.WorkingDays
		}
	}

	absent := float64(summary.WorkingDays) - float64(summary.PresentDays) - summary.PaidLeaveDays - summary.UnpaidLeaveDays
	if absent > 0 {
		summary.AbsentDays = int(math.Floor(absent))
	}

	return summary
}

// WorkingDaysInMonth counts Monday to Friday days of the month.
func WorkingDaysInMonth(month, year int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	count := 0
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// periodBounds returns the first and last calendar day of the month.
func periodBounds(month, year int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}
