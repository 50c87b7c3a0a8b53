package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

type salaryStructureRepository struct {
	db *database.DB
}

func NewSalaryStructureRepository(db *database.DB) payroll.SalaryStructureRepository {
	return &salaryStructureRepository{db: db}
}

const salaryStructureColumns = `
	id, employee_id, company_id, basic_salary, ctc, effective_date, is_active,
	components, created_by, created_at, updated_at`

func scanSalaryStructure(row rowScanner) (payroll.SalaryStructure, error) {
	var s payroll.SalaryStructure
	var componentsBytes []byte
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.CompanyID, &s.BasicSalary, &s.CTC, &s.EffectiveDate, &s.IsActive,
		&componentsBytes, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return payroll.SalaryStructure{}, err
	}

	if len(componentsBytes) > 0 {
		if err := json.Unmarshal(componentsBytes, &s.Components); err != nil {
			return payroll.SalaryStructure{}, fmt.Errorf("failed to decode salary components: %w", err)
		}
	}

	return s, nil
}

func (r *salaryStructureRepository) GetActiveByEmployeeID(ctx context.Context, employeeID string, companyID string) (payroll.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryStructureColumns + `
		FROM salary_structures
		WHERE employee_id = $1 AND company_id = $2 AND is_active = true
	`

	s, err := scanSalaryStructure(q.QueryRow(ctx, query, employeeID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.SalaryStructure{}, payroll.ErrSalaryStructureNotFound
		}
		return payroll.SalaryStructure{}, fmt.Errorf("failed to get salary structure: %w", err)
	}

	return s, nil
}

func (r *salaryStructureRepository) ListByEmployeeID(ctx context.Context, employeeID string, companyID string) ([]payroll.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryStructureColumns + `
		FROM salary_structures
		WHERE employee_id = $1 AND company_id = $2
		ORDER BY effective_date DESC, created_at DESC
	`

	rows, err := q.Query(ctx, query, employeeID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary structures: %w", err)
	}
	defer rows.Close()

	var structures []payroll.SalaryStructure
	for rows.Next() {
		s, err := scanSalaryStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary structure: %w", err)
		}
		structures = append(structures, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salary structures: %w", err)
	}

	return structures, nil
}

func (r *salaryStructureRepository) DeactivateActive(ctx context.Context, employeeID string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_structures
		SET is_active = false, updated_at = NOW()
		WHERE employee_id = $1 AND company_id = $2 AND is_active = true
	`

	if _, err := q.Exec(ctx, query, employeeID, companyID); err != nil {
		return fmt.Errorf("failed to deactivate salary structure: %w", err)
	}

	return nil
}

func (r *salaryStructureRepository) Create(ctx context.Context, structure payroll.SalaryStructure) (payroll.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	components := structure.Components
	if components == nil {
		components = []payroll.SalaryComponent{}
	}
	componentsJSON, err := json.Marshal(components)
	if err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("failed to encode salary components: %w", err)
	}

	query := `
		INSERT INTO salary_structures (
			employee_id, company_id, basic_salary, ctc, effective_date, is_active, components, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + salaryStructureColumns

	s, err := scanSalaryStructure(q.QueryRow(ctx, query,
		structure.EmployeeID, structure.CompanyID, structure.BasicSalary, structure.CTC,
		structure.EffectiveDate, structure.IsActive, componentsJSON, structure.CreatedBy,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_salary_structure_active") {
			return payroll.SalaryStructure{}, payroll.ErrActiveSalaryStructureExists
		}
		return payroll.SalaryStructure{}, fmt.Errorf("failed to create salary structure: %w", err)
	}

	return s, nil
}
