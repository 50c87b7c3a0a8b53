package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
)

// UpsertSalaryStructure records a new active structure for the employee and
// retires the previous one in the same transaction.
func (s *PayrollServiceImpl) UpsertSalaryStructure(ctx context.Context, req payroll.UpsertSalaryStructureRequest) (payroll.SalaryStructure, error) {
	if err := req.Validate(); err != nil {
		return payroll.SalaryStructure{}, err
	}

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, req.CompanyID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return payroll.SalaryStructure{}, payroll.ErrEmployeeNotFound
		}
		return payroll.SalaryStructure{}, fmt.Errorf("failed to get employee: %w", err)
	}

	effectiveDate, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("invalid effective date: %w", err)
	}

	structure := payroll.SalaryStructure{
		EmployeeID:    req.EmployeeID,
		CompanyID:     req.CompanyID,
		BasicSalary:   req.BasicSalary,
		CTC:           req.CTC,
		EffectiveDate: effectiveDate,
		IsActive:      true,
		Components:    req.Components,
	}
	if req.ActorID != "" {
		actorID := req.ActorID
		structure.CreatedBy = &actorID
	}

	var created payroll.SalaryStructure
	err = s.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.structureRepo.DeactivateActive(txCtx, req.EmployeeID, req.CompanyID); err != nil {
			return fmt.Errorf("failed to deactivate salary structure: %w", err)
		}
		created, err = s.structureRepo.Create(txCtx, structure)
		return err
	})
	if err != nil {
		return payroll.SalaryStructure{}, err
	}

	slog.Info("salary structure updated", "employee_id", created.EmployeeID, "salary_structure_id", created.ID)
	return created, nil
}

func (s *PayrollServiceImpl) GetActiveSalaryStructure(ctx context.Context, companyID string, employeeID string) (payroll.SalaryStructure, error) {
	return s.structureRepo.GetActiveByEmployeeID(ctx, employeeID, companyID)
}

func (s *PayrollServiceImpl) ListSalaryStructures(ctx context.Context, companyID string, employeeID string) ([]payroll.SalaryStructure, error) {
	return s.structureRepo.ListByEmployeeID(ctx, employeeID, companyID)
}
