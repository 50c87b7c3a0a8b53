package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	e.id, e.user_id, e.company_id, e.position_id, e.department_id, e.employee_code,
	e.full_name, e.hire_date, e.resignation_date, e.employment_status,
	e.created_at, e.updated_at, e.deleted_at, p.name, d.name`

const employeeJoins = `
	FROM employees e
	LEFT JOIN positions p ON e.position_id = p.id
	LEFT JOIN departments d ON e.department_id = d.id`

func scanEmployee(row rowScanner) (employee.Employee, error) {
	var emp employee.Employee
	var status string
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.CompanyID, &emp.PositionID, &emp.DepartmentID, &emp.EmployeeCode,
		&emp.FullName, &emp.HireDate, &emp.ResignationDate, &status,
		&emp.CreatedAt, &emp.UpdatedAt, &emp.DeletedAt, &emp.PositionName, &emp.DepartmentName,
	)
	if err != nil {
		return employee.Employee{}, err
	}
	emp.EmploymentStatus = employee.EmploymentStatus(status)
	return emp, nil
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.id = $1 AND e.company_id = $2 AND e.deleted_at IS NULL
	`

	found, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}

	return found, nil
}

// GetActiveByCompanyID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetActiveByCompanyID(ctx context.Context, companyID string, employeeIDs []string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.company_id = $1 AND e.employment_status = $2 AND e.deleted_at IS NULL
	`
	args := []interface{}{companyID, string(employee.EmploymentStatusActive)}
	if len(employeeIDs) > 0 {
		query += ` AND e.id = ANY($3)`
		args = append(args, employeeIDs)
	}
	query += ` ORDER BY e.employee_code`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}
