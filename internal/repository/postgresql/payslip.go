package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

type payslipRepository struct {
	db *database.DB
}

func NewPayslipRepository(db *database.DB) payroll.PayslipRepository {
	return &payslipRepository{db: db}
}

const payslipColumns = `
	ps.id, ps.payroll_record_id, ps.employee_id, ps.company_id, ps.payslip_number,
	ps.employee_name, ps.employee_code, ps.designation, ps.department,
	ps.period_month, ps.period_year, ps.breakdown, ps.gross_salary, ps.total_deductions, ps.net_pay,
	ps.working_days, ps.present_days, ps.status, ps.generated_by, ps.generated_at, ps.sent_at,
	e.user_id`

const payslipJoins = `
	FROM payslips ps
	JOIN employees e ON ps.employee_id = e.id`

func scanPayslip(row rowScanner) (payroll.Payslip, error) {
	var ps payroll.Payslip
	var status string
	var breakdownBytes []byte
	err := row.Scan(
		&ps.ID, &ps.PayrollRecordID, &ps.EmployeeID, &ps.CompanyID, &ps.PayslipNumber,
		&ps.EmployeeName, &ps.EmployeeCode, &ps.Designation, &ps.Department,
		&ps.PeriodMonth, &ps.PeriodYear, &breakdownBytes, &ps.GrossSalary, &ps.TotalDeductions, &ps.NetPay,
		&ps.WorkingDays, &ps.PresentDays, &status, &ps.GeneratedBy, &ps.GeneratedAt, &ps.SentAt,
		&ps.UserID,
	)
	if err != nil {
		return payroll.Payslip{}, err
	}
	ps.Status = payroll.PayslipStatus(status)

	if len(breakdownBytes) > 0 {
		if err := json.Unmarshal(breakdownBytes, &ps.Breakdown); err != nil {
			return payroll.Payslip{}, fmt.Errorf("failed to decode payslip breakdown: %w", err)
		}
	}

	return ps, nil
}

func (r *payslipRepository) ExistsForRecord(ctx context.Context, payrollRecordID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payslips WHERE payroll_record_id = $1)`, payrollRecordID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payslip existence: %w", err)
	}

	return exists, nil
}

// Create inserts the payslip unless the record already has one. Either way
// the stored payslip is returned, so concurrent callers agree on one row.
func (r *payslipRepository) Create(ctx context.Context, payslip payroll.Payslip) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	breakdownJSON, err := json.Marshal(payslip.Breakdown)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to encode payslip breakdown: %w", err)
	}

	query := `
		INSERT INTO payslips (
			id, payroll_record_id, employee_id, company_id, payslip_number,
			employee_name, employee_code, designation, department,
			period_month, period_year, breakdown, gross_salary, total_deductions, net_pay,
			working_days, present_days, status, generated_by, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (payroll_record_id) DO NOTHING
	`

	_, err = q.Exec(ctx, query,
		payslip.ID, payslip.PayrollRecordID, payslip.EmployeeID, payslip.CompanyID, payslip.PayslipNumber,
		payslip.EmployeeName, payslip.EmployeeCode, payslip.Designation, payslip.Department,
		payslip.PeriodMonth, payslip.PeriodYear, breakdownJSON, payslip.GrossSalary, payslip.TotalDeductions, payslip.NetPay,
		payslip.WorkingDays, payslip.PresentDays, string(payslip.Status), payslip.GeneratedBy, payslip.GeneratedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return payroll.Payslip{}, fmt.Errorf("payslip number %s already used: %w", payslip.PayslipNumber, err)
		}
		return payroll.Payslip{}, fmt.Errorf("failed to create payslip: %w", err)
	}

	return r.GetByRecordID(ctx, payslip.PayrollRecordID, payslip.CompanyID)
}

func (r *payslipRepository) GetByRecordID(ctx context.Context, payrollRecordID string, companyID string) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + payslipJoins + `
		WHERE ps.payroll_record_id = $1 AND ps.company_id = $2
	`

	ps, err := scanPayslip(q.QueryRow(ctx, query, payrollRecordID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}

	return ps, nil
}

func (r *payslipRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + payslipJoins + `
		WHERE ps.id = $1 AND ps.company_id = $2
	`

	ps, err := scanPayslip(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}

	return ps, nil
}

func (r *payslipRepository) List(ctx context.Context, companyID string, filter payroll.PayslipFilter) ([]payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + payslipJoins + `
		WHERE ps.company_id = $1
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.PeriodMonth != nil {
		query += fmt.Sprintf(" AND ps.period_month = $%d", argIdx)
		args = append(args, *filter.PeriodMonth)
		argIdx++
	}
	if filter.PeriodYear != nil {
		query += fmt.Sprintf(" AND ps.period_year = $%d", argIdx)
		args = append(args, *filter.PeriodYear)
		argIdx++
	}
	if filter.EmployeeID != nil {
		query += fmt.Sprintf(" AND ps.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND ps.status = $%d", argIdx)
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY ps.period_year DESC, ps.period_month DESC, ps.employee_name`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	var payslips []payroll.Payslip
	for rows.Next() {
		ps, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payslips: %w", err)
	}

	return payslips, nil
}

// ListPendingDelivery returns undelivered payslips of employees that have a
// user account, oldest first, across all companies.
func (r *payslipRepository) ListPendingDelivery(ctx context.Context, olderThan time.Time, limit int) ([]payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + payslipJoins + `
		WHERE ps.status = 'generated' AND ps.generated_at <= $1 AND e.user_id IS NOT NULL
		ORDER BY ps.generated_at
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payslips: %w", err)
	}
	defer rows.Close()

	var payslips []payroll.Payslip
	for rows.Next() {
		ps, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending payslips: %w", err)
	}

	return payslips, nil
}

func (r *payslipRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE payslips SET status = 'sent', sent_at = $2 WHERE id = $1`, id, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark payslip sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayslipNotFound
	}

	return nil
}

func (r *payslipRepository) DeleteByRecordIDs(ctx context.Context, companyID string, payrollRecordIDs []string) error {
	if len(payrollRecordIDs) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `DELETE FROM payslips WHERE company_id = $1 AND payroll_record_id = ANY($2)`, companyID, payrollRecordIDs)
	if err != nil {
		return fmt.Errorf("failed to delete payslips: %w", err)
	}

	return nil
}
