package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/validator"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Config tunes generation and payslip delivery.
type Config struct {
	RegenerationPolicy payroll.RegenerationPolicy
	// Workers bounds per-employee aggregation and per-record payslip derivation.
	Workers int
	// DeliveryBatchSize caps payslips retried per delivery run.
	DeliveryBatchSize int
	// DeliveryGrace is how old a generated payslip must be before a retry picks it up.
	DeliveryGrace time.Duration
}

type PayrollServiceImpl struct {
	txManager     database.TxManager
	payrollRepo   payroll.PayrollRepository
	structureRepo payroll.SalaryStructureRepository
	payslipRepo   payroll.PayslipRepository
	employeeRepo  employee.EmployeeRepository
	aggregator    *AttendanceAggregator
	notifier      payroll.Notifier
	clock         clockwork.Clock
	config        Config
}

func NewPayrollService(
	txManager database.TxManager,
	payrollRepo payroll.PayrollRepository,
	structureRepo payroll.SalaryStructureRepository,
	payslipRepo payroll.PayslipRepository,
	employeeRepo employee.EmployeeRepository,
	aggregator *AttendanceAggregator,
	notifier payroll.Notifier,
	clock clockwork.Clock,
	cfg Config,
) payroll.PayrollService {
	if !cfg.RegenerationPolicy.IsValid() {
		cfg.RegenerationPolicy = payroll.RegenerationPreserveFinalized
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.DeliveryBatchSize <= 0 {
		cfg.DeliveryBatchSize = 100
	}
	if cfg.DeliveryGrace <= 0 {
		cfg.DeliveryGrace = time.Minute
	}

	return &PayrollServiceImpl{
		txManager:     txManager,
		payrollRepo:   payrollRepo,
		structureRepo: structureRepo,
		payslipRepo:   payslipRepo,
		employeeRepo:  employeeRepo,
		aggregator:    aggregator,
		notifier:      notifier,
		clock:         clock,
		config:        cfg,
	}
}

// ========== PAYROLL RECORDS ==========

func (s *PayrollServiceImpl) GeneratePayroll(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.GeneratePayrollResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.GeneratePayrollResult{}, err
	}

	employees, err := s.employeeRepo.GetActiveByCompanyID(ctx, req.CompanyID, req.EmployeeIDs)
	if err != nil {
		return payroll.GeneratePayrollResult{}, fmt.Errorf("failed to get employees: %w", err)
	}

	// Fail fast before the expensive part; the transaction below re-checks.
	existing, err := s.payrollRepo.ListPeriodRecords(ctx, req.CompanyID, req.PeriodMonth, req.PeriodYear, req.EmployeeIDs)
	if err != nil {
		return payroll.GeneratePayrollResult{}, fmt.Errorf("failed to list existing payroll records: %w", err)
	}
	plan, err := planRegeneration(s.config.RegenerationPolicy, existing)
	if err != nil {
		return payroll.GeneratePayrollResult{}, err
	}

	pending := make([]employee.Employee, 0, len(employees))
	for _, emp := range employees {
		if !plan.preserved[emp.ID] {
			pending = append(pending, emp)
		}
	}

	drafts, err := s.buildDrafts(ctx, req, pending)
	if err != nil {
		return payroll.GeneratePayrollResult{}, err
	}

	var result payroll.GeneratePayrollResult
	err = s.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		existing, err := s.payrollRepo.ListPeriodRecords(txCtx, req.CompanyID, req.PeriodMonth, req.PeriodYear, req.EmployeeIDs)
		if err != nil {
			return fmt.Errorf("failed to list existing payroll records: %w", err)
		}
		plan, err := planRegeneration(s.config.RegenerationPolicy, existing)
		if err != nil {
			return err
		}

		if len(plan.deleteIDs) > 0 {
			if err := s.payslipRepo.DeleteByRecordIDs(txCtx, req.CompanyID, plan.deleteIDs); err != nil {
				return fmt.Errorf("failed to delete payslips: %w", err)
			}
			deleted, err := s.payrollRepo.DeletePayrollRecords(txCtx, req.CompanyID, plan.deleteIDs)
			if err != nil {
				return fmt.Errorf("failed to delete payroll records: %w", err)
			}
			result.ReplacedCount = deleted
		}

		toInsert := make([]payroll.PayrollRecord, 0, len(drafts))
		for _, d := range drafts {
			if !plan.preserved[d.EmployeeID] {
				toInsert = append(toInsert, d)
			}
		}

		created, err := s.payrollRepo.CreatePayrollRecords(txCtx, toInsert)
		if err != nil {
			return fmt.Errorf("failed to create payroll records: %w", err)
		}
		result.Records = created
		result.SkippedEmployeeIDs = plan.preservedEmployeeIDs()
		return nil
	})
	if err != nil {
		return payroll.GeneratePayrollResult{}, err
	}

	if len(result.SkippedEmployeeIDs) > 0 {
		slog.Warn("payroll regeneration kept finalized records",
			"company_id", req.CompanyID,
			"period_month", req.PeriodMonth,
			"period_year", req.PeriodYear,
			"employee_ids", result.SkippedEmployeeIDs,
		)
	}
	slog.Info("payroll generated",
		"company_id", req.CompanyID,
		"period_month", req.PeriodMonth,
		"period_year", req.PeriodYear,
		"records", len(result.Records),
		"replaced", result.ReplacedCount,
		"policy", string(s.config.RegenerationPolicy),
	)

	if err := s.notifier.PayrollGenerated(ctx, req.CompanyID, req.ActorID, req.PeriodMonth, req.PeriodYear, result.Records); err != nil {
		slog.Warn("payroll generated notification failed", "company_id", req.CompanyID, "error", err)
	}

	return result, nil
}

// buildDrafts computes one draft record per employee in parallel. Each
// goroutine writes only its own slot.
func (s *PayrollServiceImpl) buildDrafts(ctx context.Context, req payroll.GeneratePayrollRequest, employees []employee.Employee) ([]payroll.PayrollRecord, error) {
	drafts := make([]payroll.PayrollRecord, len(employees))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, emp := range employees {
		g.Go(func() error {
			rec, err := s.buildDraft(gCtx, req, emp)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}
			drafts[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return drafts, nil
}

func (s *PayrollServiceImpl) buildDraft(ctx context.Context, req payroll.GeneratePayrollRequest, emp employee.Employee) (payroll.PayrollRecord, error) {
	structure, err := s.structureRepo.GetActiveByEmployeeID(ctx, emp.ID, req.CompanyID)
	if errors.Is(err, payroll.ErrSalaryStructureNotFound) {
		// Attendance is not aggregated without a structure, so every day count stays zero.
		return newDraftRecord(req, emp, nil, PlaceholderCalculation(), payroll.AttendanceSummary{}), nil
	}
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get salary structure: %w", err)
	}

	summary, err := s.aggregator.Aggregate(ctx, emp.ID, req.CompanyID, req.PeriodMonth, req.PeriodYear)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	structureID := structure.ID
	return newDraftRecord(req, emp, &structureID, CalculateSalary(structure, summary), summary), nil
}

func newDraftRecord(req payroll.GeneratePayrollRequest, emp employee.Employee, structureID *string, calc payroll.SalaryCalculation, summary payroll.AttendanceSummary) payroll.PayrollRecord {
	actorID := req.ActorID
	employeeName := emp.FullName
	employeeCode := emp.EmployeeCode

	return payroll.PayrollRecord{
		EmployeeID:        emp.ID,
		CompanyID:         req.CompanyID,
		SalaryStructureID: structureID,
		PeriodMonth:       req.PeriodMonth,
		PeriodYear:        req.PeriodYear,
		BasicSalary:       calc.BasicSalary,
		HRA:               calc.HRA,
		DA:                calc.DA,
		OtherAllowances:   calc.OtherAllowances,
		PF:                calc.PF,
		ESI:               calc.ESI,
		ProfessionalTax:   calc.ProfessionalTax,
		IncomeTax:         calc.IncomeTax,
		OtherDeductions:   calc.OtherDeductions,
		GrossSalary:       calc.GrossSalary,
		TotalDeductions:   calc.TotalDeductions,
		NetPay:            calc.NetPay,
		AllowancesDetail:  calc.AllowancesDetail,
		DeductionsDetail:  calc.DeductionsDetail,
		WorkingDays:       summary.WorkingDays,
		PresentDays:       summary.PresentDays,
		AbsentDays:        summary.AbsentDays,
		PaidLeaves:        sanitizeDays(summary.PaidLeaveDays),
		UnpaidLeaves:      sanitizeDays(summary.UnpaidLeaveDays),
		Status:            payroll.PayrollStatusDraft,
		ProcessedBy:       &actorID,
		EmployeeName:      &employeeName,
		EmployeeCode:      &employeeCode,
		PositionName:      emp.PositionName,
		DepartmentName:    emp.DepartmentName,
		UserID:            emp.UserID,
	}
}

// regenerationPlan lists what a generation run removes and which employees it leaves alone.
type regenerationPlan struct {
	deleteIDs []string
	preserved map[string]bool
}

func (p regenerationPlan) preservedEmployeeIDs() []string {
	if len(p.preserved) == 0 {
		return nil
	}
	ids := make([]string, 0, len(p.preserved))
	for id := range p.preserved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func planRegeneration(policy payroll.RegenerationPolicy, existing []payroll.PayrollRecord) (regenerationPlan, error) {
	plan := regenerationPlan{preserved: map[string]bool{}}

	for _, rec := range existing {
		finalized := rec.Status.IsFinalized()
		switch policy {
		case payroll.RegenerationReplaceAll:
			plan.deleteIDs = append(plan.deleteIDs, rec.ID)
		case payroll.RegenerationReject:
			if finalized {
				return regenerationPlan{}, payroll.ErrPeriodHasFinalizedRecords
			}
			plan.deleteIDs = append(plan.deleteIDs, rec.ID)
		default:
			if finalized {
				plan.preserved[rec.EmployeeID] = true
				continue
			}
			plan.deleteIDs = append(plan.deleteIDs, rec.ID)
		}
	}

	return plan, nil
}

func (s *PayrollServiceImpl) GetPayrolls(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	return s.payrollRepo.ListPayrollRecords(ctx, filter)
}

func (s *PayrollServiceImpl) GetPayrollRecord(ctx context.Context, companyID string, id string) (payroll.PayrollRecord, error) {
	return s.payrollRepo.GetPayrollRecordByID(ctx, id, companyID)
}

func (s *PayrollServiceImpl) UpdatePayrollStatus(ctx context.Context, req payroll.UpdatePayrollStatusRequest) (payroll.PayrollRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecord{}, err
	}

	change := StatusChange{
		Target:        payroll.PayrollStatus(req.Status),
		ActorID:       req.ActorID,
		Remarks:       req.Remarks,
		PaymentMethod: req.PaymentMethod,
		At:            s.clock.Now(),
	}
	if req.PaymentDate != nil && *req.PaymentDate != "" {
		paymentDate, err := time.Parse("2006-01-02", *req.PaymentDate)
		if err != nil {
			return payroll.PayrollRecord{}, fmt.Errorf("invalid payment date: %w", err)
		}
		change.PaymentDate = &paymentDate
	}

	var updated payroll.PayrollRecord
	err := s.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := s.payrollRepo.GetPayrollRecordForUpdate(txCtx, req.ID, req.CompanyID)
		if err != nil {
			return err
		}

		next, err := TransitionStatus(current, change)
		if err != nil {
			return err
		}

		updated, err = s.payrollRepo.UpdatePayrollStatus(txCtx, next)
		return err
	})
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	if err := s.notifier.PayrollStatusChanged(ctx, updated, req.ActorID); err != nil {
		slog.Warn("payroll status notification failed", "payroll_record_id", updated.ID, "error", err)
	}

	return updated, nil
}

func (s *PayrollServiceImpl) GetPayrollSummary(ctx context.Context, companyID string, month, year int) (payroll.PayrollSummaryResponse, error) {
	if !validator.IsValidPeriod(month, year) {
		return payroll.PayrollSummaryResponse{}, payroll.ErrInvalidPeriod
	}
	return s.payrollRepo.GetPayrollSummary(ctx, companyID, month, year)
}
