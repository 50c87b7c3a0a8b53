package payroll

import "context"

type PayrollService interface {
	// Salary structures
	UpsertSalaryStructure(ctx context.Context, req UpsertSalaryStructureRequest) (SalaryStructure, error)
	GetActiveSalaryStructure(ctx context.Context, companyID string, employeeID string) (SalaryStructure, error)
	ListSalaryStructures(ctx context.Context, companyID string, employeeID string) ([]SalaryStructure, error)

	// Payroll records
	GeneratePayroll(ctx context.Context, req GeneratePayrollRequest) (GeneratePayrollResult, error)
	GetPayrolls(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, int64, error)
	GetPayrollRecord(ctx context.Context, companyID string, id string) (PayrollRecord, error)
	UpdatePayrollStatus(ctx context.Context, req UpdatePayrollStatusRequest) (PayrollRecord, error)
	GetPayrollSummary(ctx context.Context, companyID string, month, year int) (PayrollSummaryResponse, error)

	// Payslips
	GeneratePayslips(ctx context.Context, req GeneratePayslipsRequest) ([]Payslip, error)
	GetPayslip(ctx context.Context, companyID string, id string) (Payslip, error)
	ListPayslips(ctx context.Context, companyID string, filter PayslipFilter) ([]Payslip, error)
	DeliverPendingPayslips(ctx context.Context) error
}

// Notifier tells people about payroll events. Implementations must not block
// on delivery; callers treat every error as non-fatal.
type Notifier interface {
	PayrollGenerated(ctx context.Context, companyID string, actorID string, month, year int, records []PayrollRecord) error
	PayrollStatusChanged(ctx context.Context, record PayrollRecord, actorID string) error
	PayslipReady(ctx context.Context, payslip Payslip, actorID *string) error
}
