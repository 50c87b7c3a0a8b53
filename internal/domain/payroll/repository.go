package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll records.
// All methods include companyID parameter to prevent cross-company data access.
type PayrollRepository interface {
	CreatePayrollRecords(ctx context.Context, records []PayrollRecord) ([]PayrollRecord, error)
	GetPayrollRecordByID(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	// GetPayrollRecordForUpdate locks the row until the surrounding transaction ends.
	GetPayrollRecordForUpdate(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	ListPayrollRecords(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, int64, error)
	ListPeriodRecords(ctx context.Context, companyID string, month, year int, employeeIDs []string) ([]PayrollRecord, error)
	DeletePayrollRecords(ctx context.Context, companyID string, ids []string) (int, error)
	UpdatePayrollStatus(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetPayrollSummary(ctx context.Context, companyID string, month, year int) (PayrollSummaryResponse, error)
}

// SalaryStructureRepository stores salary structure history.
type SalaryStructureRepository interface {
	GetActiveByEmployeeID(ctx context.Context, employeeID string, companyID string) (SalaryStructure, error)
	ListByEmployeeID(ctx context.Context, employeeID string, companyID string) ([]SalaryStructure, error)
	DeactivateActive(ctx context.Context, employeeID string, companyID string) error
	Create(ctx context.Context, structure SalaryStructure) (SalaryStructure, error)
}

// PayslipRepository stores payslips, one per payroll record.
type PayslipRepository interface {
	ExistsForRecord(ctx context.Context, payrollRecordID string) (bool, error)
	// Create inserts the payslip unless one exists for the record, and returns
	// whichever row is stored for that record afterwards.
	Create(ctx context.Context, payslip Payslip) (Payslip, error)
	GetByRecordID(ctx context.Context, payrollRecordID string, companyID string) (Payslip, error)
	GetByID(ctx context.Context, id string, companyID string) (Payslip, error)
	List(ctx context.Context, companyID string, filter PayslipFilter) ([]Payslip, error)
	ListPendingDelivery(ctx context.Context, olderThan time.Time, limit int) ([]Payslip, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	DeleteByRecordIDs(ctx context.Context, companyID string, payrollRecordIDs []string) error
}
