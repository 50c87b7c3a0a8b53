package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollRecordColumns = `
	pr.id, pr.employee_id, pr.company_id, pr.salary_structure_id, pr.period_month, pr.period_year,
	pr.basic_salary, pr.hra, pr.da, pr.other_allowances,
	pr.pf, pr.esi, pr.professional_tax, pr.income_tax, pr.other_deductions,
	pr.gross_salary, pr.total_deductions, pr.net_pay, pr.allowances_detail, pr.deductions_detail,
	pr.working_days, pr.present_days, pr.absent_days, pr.paid_leaves, pr.unpaid_leaves,
	pr.status, pr.processed_by, pr.approved_by, pr.approved_at, pr.payment_method, pr.payment_date,
	pr.remarks, pr.created_at, pr.updated_at,
	e.full_name, e.employee_code, p.name, d.name, e.user_id`

const payrollRecordJoins = `
	FROM payroll_records pr
	JOIN employees e ON pr.employee_id = e.id
	LEFT JOIN positions p ON e.position_id = p.id
	LEFT JOIN departments d ON e.department_id = d.id`

func scanPayrollRecord(row rowScanner) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var status string
	var allowancesBytes, deductionsBytes []byte
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.CompanyID, &rec.SalaryStructureID, &rec.PeriodMonth, &rec.PeriodYear,
		&rec.BasicSalary, &rec.HRA, &rec.DA, &rec.OtherAllowances,
		&rec.PF, &rec.ESI, &rec.ProfessionalTax, &rec.IncomeTax, &rec.OtherDeductions,
		&rec.GrossSalary, &rec.TotalDeductions, &rec.NetPay, &allowancesBytes, &deductionsBytes,
		&rec.WorkingDays, &rec.PresentDays, &rec.AbsentDays, &rec.PaidLeaves, &rec.UnpaidLeaves,
		&status, &rec.ProcessedBy, &rec.ApprovedBy, &rec.ApprovedAt, &rec.PaymentMethod, &rec.PaymentDate,
		&rec.Remarks, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.EmployeeName, &rec.EmployeeCode, &rec.PositionName, &rec.DepartmentName, &rec.UserID,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	rec.Status = payroll.PayrollStatus(status)

	rec.AllowancesDetail, err = decodeDetail(allowancesBytes)
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode allowances detail: %w", err)
	}
	rec.DeductionsDetail, err = decodeDetail(deductionsBytes)
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to decode deductions detail: %w", err)
	}

	return rec, nil
}

func encodeDetail(detail map[string]decimal.Decimal) ([]byte, error) {
	if detail == nil {
		detail = map[string]decimal.Decimal{}
	}
	return json.Marshal(detail)
}

func decodeDetail(raw []byte) (map[string]decimal.Decimal, error) {
	detail := map[string]decimal.Decimal{}
	if len(raw) == 0 {
		return detail, nil
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// ========== PAYROLL RECORDS ==========

func (r *payrollRepository) CreatePayrollRecords(ctx context.Context, records []payroll.PayrollRecord) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_records (
			employee_id, company_id, salary_structure_id, period_month, period_year,
			basic_salary, hra, da, other_allowances,
			pf, esi, professional_tax, income_tax, other_deductions,
			gross_salary, total_deductions, net_pay, allowances_detail, deductions_detail,
			working_days, present_days, absent_days, paid_leaves, unpaid_leaves,
			status, processed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING id, created_at, updated_at
	`

	created := make([]payroll.PayrollRecord, 0, len(records))
	for _, rec := range records {
		allowancesJSON, err := encodeDetail(rec.AllowancesDetail)
		if err != nil {
			return nil, fmt.Errorf("failed to encode allowances detail: %w", err)
		}
		deductionsJSON, err := encodeDetail(rec.DeductionsDetail)
		if err != nil {
			return nil, fmt.Errorf("failed to encode deductions detail: %w", err)
		}

		err = q.QueryRow(ctx, query,
			rec.EmployeeID, rec.CompanyID, rec.SalaryStructureID, rec.PeriodMonth, rec.PeriodYear,
			rec.BasicSalary, rec.HRA, rec.DA, rec.OtherAllowances,
			rec.PF, rec.ESI, rec.ProfessionalTax, rec.IncomeTax, rec.OtherDeductions,
			rec.GrossSalary, rec.TotalDeductions, rec.NetPay, allowancesJSON, deductionsJSON,
			rec.WorkingDays, rec.PresentDays, rec.AbsentDays, rec.PaidLeaves, rec.UnpaidLeaves,
			string(rec.Status), rec.ProcessedBy,
		).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err, "uk_payroll_employee_period") {
				return nil, payroll.ErrPayrollRecordAlreadyExists
			}
			return nil, fmt.Errorf("failed to create payroll record: %w", err)
		}
		created = append(created, rec)
	}

	return created, nil
}

func (r *payrollRepository) GetPayrollRecordByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + payrollRecordJoins + `
		WHERE pr.id = $1 AND pr.company_id = $2
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) GetPayrollRecordForUpdate(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + payrollRecordJoins + `
		WHERE pr.id = $1 AND pr.company_id = $2
		FOR UPDATE OF pr
	`

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to lock payroll record: %w", err)
	}

	return rec, nil
}

func (r *payrollRepository) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := payrollRecordJoins + `
		WHERE pr.company_id = $1
	`
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.PeriodMonth != nil {
		baseQuery += fmt.Sprintf(" AND pr.period_month = $%d", argIdx)
		args = append(args, *filter.PeriodMonth)
		argIdx++
	}
	if filter.PeriodYear != nil {
		baseQuery += fmt.Sprintf(" AND pr.period_year = $%d", argIdx)
		args = append(args, *filter.PeriodYear)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND pr.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND pr.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	var totalCount int64
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	orderBy := "pr.created_at " + sortOrder
	switch filter.SortBy {
	case "period":
		orderBy = fmt.Sprintf("pr.period_year %s, pr.period_month %s", sortOrder, sortOrder)
	case "employee_name":
		orderBy = "e.full_name " + sortOrder
	case "net_pay":
		orderBy = "pr.net_pay " + sortOrder
	case "gross_salary":
		orderBy = "pr.gross_salary " + sortOrder
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY %s, pr.id
		LIMIT $%d OFFSET $%d
	`, payrollRecordColumns, baseQuery, orderBy, argIdx, argIdx+1)

	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll records: %w", err)
	}

	return records, totalCount, nil
}

// ListPeriodRecords returns the period's records, limited to employeeIDs when
// given. Rows are locked when called inside a transaction.
func (r *payrollRepository) ListPeriodRecords(ctx context.Context, companyID string, month, year int, employeeIDs []string) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollRecordColumns + payrollRecordJoins + `
		WHERE pr.company_id = $1 AND pr.period_month = $2 AND pr.period_year = $3
	`
	args := []interface{}{companyID, month, year}
	if len(employeeIDs) > 0 {
		query += ` AND pr.employee_id = ANY($4)`
		args = append(args, employeeIDs)
	}
	query += ` ORDER BY pr.employee_id`
	if _, inTx := q.(pgx.Tx); inTx {
		query += ` FOR UPDATE OF pr`
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list period payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll records: %w", err)
	}

	return records, nil
}

func (r *payrollRepository) DeletePayrollRecords(ctx context.Context, companyID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_records WHERE company_id = $1 AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payroll records: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *payrollRepository) UpdatePayrollStatus(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_records
		SET status = $3, approved_by = $4, approved_at = $5,
			payment_method = $6, payment_date = $7, remarks = $8, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING updated_at
	`

	err := q.QueryRow(ctx, query,
		record.ID, record.CompanyID, string(record.Status), record.ApprovedBy, record.ApprovedAt,
		record.PaymentMethod, record.PaymentDate, record.Remarks,
	).Scan(&record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to update payroll status: %w", err)
	}

	return record, nil
}

// ========== AGGREGATIONS ==========

func (r *payrollRepository) GetPayrollSummary(ctx context.Context, companyID string, month, year int) (payroll.PayrollSummaryResponse, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) as total_employees,
			COALESCE(SUM(basic_salary), 0) as total_basic_salary,
			COALESCE(SUM(gross_salary), 0) as total_gross_salary,
			COALESCE(SUM(total_deductions), 0) as total_deductions,
			COALESCE(SUM(net_pay), 0) as total_net_pay,
			COALESCE(SUM(pf), 0) as total_pf,
			COALESCE(SUM(esi), 0) as total_esi,
			COALESCE(SUM(professional_tax), 0) as total_professional_tax,
			COALESCE(SUM(income_tax), 0) as total_income_tax,
			COUNT(*) FILTER (WHERE status = 'draft') as draft_count,
			COUNT(*) FILTER (WHERE status = 'approved') as approved_count,
			COUNT(*) FILTER (WHERE status = 'paid') as paid_count
		FROM payroll_records
		WHERE company_id = $1 AND period_month = $2 AND period_year = $3
	`

	var summary payroll.PayrollSummaryResponse
	err := q.QueryRow(ctx, query, companyID, month, year).Scan(
		&summary.TotalEmployees, &summary.TotalBasicSalary, &summary.TotalGrossSalary,
		&summary.TotalDeductions, &summary.TotalNetPay, &summary.TotalPF, &summary.TotalESI,
		&summary.TotalProfessionalTax, &summary.TotalIncomeTax,
		&summary.DraftCount, &summary.ApprovedCount, &summary.PaidCount,
	)
	if err != nil {
		return payroll.PayrollSummaryResponse{}, fmt.Errorf("failed to get payroll summary: %w", err)
	}

	summary.PeriodMonth = month
	summary.PeriodYear = year

	return summary, nil
}
