package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// errNoRecipient means the employee has no user account to notify.
var errNoRecipient = errors.New("employee has no linked user")

// GeneratePayslips creates the payslip of every requested record that does
// not have one yet and returns the payslips in request order.
func (s *PayrollServiceImpl) GeneratePayslips(ctx context.Context, req payroll.GeneratePayslipsRequest) ([]payroll.Payslip, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.PayrollIDs)
	var generatedBy *string
	if req.ActorID != "" {
		actorID := req.ActorID
		generatedBy = &actorID
	}

	payslips := make([]payroll.Payslip, len(ids))
	var (
		mu      sync.Mutex
		created []payroll.Payslip
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, id := range ids {
		g.Go(func() error {
			ps, isNew, err := s.derivePayslip(gCtx, req.CompanyID, id, generatedBy)
			if err != nil {
				return fmt.Errorf("payroll record %s: %w", id, err)
			}
			payslips[i] = ps
			if isNew {
				mu.Lock()
				created = append(created, ps)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ps := range created {
		if sent, ok := s.deliverPayslip(ctx, ps, generatedBy); ok {
			for i := range payslips {
				if payslips[i].ID == sent.ID {
					payslips[i] = sent
				}
			}
		}
	}

	slog.Info("payslips generated", "company_id", req.CompanyID, "requested", len(ids), "created", len(created))
	return payslips, nil
}

// derivePayslip returns the record's payslip, creating it when missing.
// isNew is false when another call created it first.
func (s *PayrollServiceImpl) derivePayslip(ctx context.Context, companyID, recordID string, generatedBy *string) (payroll.Payslip, bool, error) {
	rec, err := s.payrollRepo.GetPayrollRecordByID(ctx, recordID, companyID)
	if err != nil {
		return payroll.Payslip{}, false, err
	}

	exists, err := s.payslipRepo.ExistsForRecord(ctx, rec.ID)
	if err != nil {
		return payroll.Payslip{}, false, fmt.Errorf("failed to check payslip: %w", err)
	}
	if exists {
		ps, err := s.payslipRepo.GetByRecordID(ctx, rec.ID, companyID)
		return ps, false, err
	}

	candidate := DerivePayslip(rec, generatedBy, s.clock.Now())
	candidate.ID = uuid.Must(uuid.NewV7()).String()

	stored, err := s.payslipRepo.Create(ctx, candidate)
	if err != nil {
		return payroll.Payslip{}, false, fmt.Errorf("failed to create payslip: %w", err)
	}
	return stored, stored.ID == candidate.ID, nil
}

// deliverPayslip stores the employee's notification and only then marks the
// payslip sent. Failures are logged and leave the payslip for the delivery job.
func (s *PayrollServiceImpl) deliverPayslip(ctx context.Context, ps payroll.Payslip, actorID *string) (payroll.Payslip, bool) {
	if err := s.notifier.PayslipReady(ctx, ps, actorID); err != nil {
		if errors.Is(err, errNoRecipient) {
			slog.Debug("payslip has no recipient", "payslip_id", ps.ID)
		} else {
			slog.Warn("payslip notification failed", "payslip_id", ps.ID, "error", err)
		}
		return ps, false
	}

	sentAt := s.clock.Now()
	if err := s.payslipRepo.MarkSent(ctx, ps.ID, sentAt); err != nil {
		slog.Warn("failed to mark payslip sent", "payslip_id", ps.ID, "error", err)
		return ps, false
	}
	ps.Status = payroll.PayslipStatusSent
	ps.SentAt = &sentAt
	return ps, true
}

// DeliverPendingPayslips retries delivery of payslips still in generated state.
func (s *PayrollServiceImpl) DeliverPendingPayslips(ctx context.Context) error {
	olderThan := s.clock.Now().Add(-s.config.DeliveryGrace)
	pending, err := s.payslipRepo.ListPendingDelivery(ctx, olderThan, s.config.DeliveryBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending payslips: %w", err)
	}

	sent := 0
	for _, ps := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := s.deliverPayslip(ctx, ps, nil); ok {
			sent++
		}
	}

	if len(pending) > 0 {
		slog.Info("payslip delivery run", "pending", len(pending), "sent", sent)
	}
	return nil
}

func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, companyID string, id string) (payroll.Payslip, error) {
	return s.payslipRepo.GetByID(ctx, id, companyID)
}

func (s *PayrollServiceImpl) ListPayslips(ctx context.Context, companyID string, filter payroll.PayslipFilter) ([]payroll.Payslip, error) {
	return s.payslipRepo.List(ctx, companyID, filter)
}

// DerivePayslip projects a payroll record onto a payslip. Amounts are copied,
// never recomputed.
func DerivePayslip(rec payroll.PayrollRecord, generatedBy *string, at time.Time) payroll.Payslip {
	ps := payroll.Payslip{
		PayrollRecordID: rec.ID,
		EmployeeID:      rec.EmployeeID,
		CompanyID:       rec.CompanyID,
		PayslipNumber:   payslipNumber(rec),
		Designation:     rec.PositionName,
		Department:      rec.DepartmentName,
		PeriodMonth:     rec.PeriodMonth,
		PeriodYear:      rec.PeriodYear,
		GrossSalary:     rec.GrossSalary,
		TotalDeductions: rec.TotalDeductions,
		NetPay:          rec.NetPay,
		WorkingDays:     rec.WorkingDays,
		PresentDays:     rec.PresentDays,
		Status:          payroll.PayslipStatusGenerated,
		GeneratedBy:     generatedBy,
		GeneratedAt:     at,
		UserID:          rec.UserID,
	}
	if rec.EmployeeName != nil {
		ps.EmployeeName = *rec.EmployeeName
	}
	if rec.EmployeeCode != nil {
		ps.EmployeeCode = *rec.EmployeeCode
	}

	ps.Breakdown.Earnings = append([]payroll.PayslipLine{
		{Name: "Basic Salary", Amount: rec.BasicSalary},
		{Name: "House Rent Allowance", Amount: rec.HRA},
		{Name: "Dearness Allowance", Amount: rec.DA},
	}, detailLines(rec.AllowancesDetail)...)

	ps.Breakdown.Deductions = append([]payroll.PayslipLine{
		{Name: "Provident Fund", Amount: rec.PF},
		{Name: "Employee State Insurance", Amount: rec.ESI},
		{Name: "Professional Tax", Amount: rec.ProfessionalTax},
		{Name: "Income Tax", Amount: rec.IncomeTax},
	}, detailLines(rec.DeductionsDetail)...)

	return ps
}

func detailLines(detail map[string]decimal.Decimal) []payroll.PayslipLine {
	names := make([]string, 0, len(detail))
	for name := range detail {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]payroll.PayslipLine, 0, len(names))
	for _, name := range names {
		lines = append(lines, payroll.PayslipLine{Name: name, Amount: detail[name]})
	}
	return lines
}

func payslipNumber(rec payroll.PayrollRecord) string {
	suffix := ""
	if rec.EmployeeCode != nil && *rec.EmployeeCode != "" {
		// Codes are unique case-sensitively, so keep them as stored.
		suffix = *rec.EmployeeCode
	} else if len(rec.ID) >= 8 {
		suffix = strings.ToUpper(rec.ID[len(rec.ID)-8:])
	} else {
		suffix = strings.ToUpper(rec.ID)
	}
	return fmt.Sprintf("PS-%04d%02d-%s", rec.PeriodYear, rec.PeriodMonth, suffix)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
