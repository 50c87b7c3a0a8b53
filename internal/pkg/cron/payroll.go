package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
)

type PayrollJobs struct {
	payrollService   payroll.PayrollService
	deliveryInterval time.Duration
}

func NewPayrollJobs(payrollService payroll.PayrollService, deliveryInterval time.Duration) *PayrollJobs {
	return &PayrollJobs{
		payrollService:   payrollService,
		deliveryInterval: deliveryInterval,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("deliver_pending_payslips", j.deliveryInterval, j.DeliverPendingPayslips)
}

// DeliverPendingPayslips retries notifying employees of payslips that are
// still in generated status.
func (j *PayrollJobs) DeliverPendingPayslips(ctx context.Context) error {
	slog.Debug("Cron: Starting payslip delivery job")
	return j.payrollService.DeliverPendingPayslips(ctx)
}
