package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	// GetActiveByCompanyID returns active employees of the company. A non-empty
	// employeeIDs narrows the result to those ids.
	GetActiveByCompanyID(ctx context.Context, companyID string, employeeIDs []string) ([]Employee, error)
}
