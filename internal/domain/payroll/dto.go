package payroll

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== SALARY STRUCTURE DTOs ==========

type UpsertSalaryStructureRequest struct {
	EmployeeID    string            `json:"-"`
	CompanyID     string            `json:"-"`
	ActorID       string            `json:"-"`
	BasicSalary   decimal.Decimal   `json:"basic_salary"`
	CTC           decimal.Decimal   `json:"ctc"`
	EffectiveDate string            `json:"effective_date"` // YYYY-MM-DD
	Components    []SalaryComponent `json:"components"`
}

func (r *UpsertSalaryStructureRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.BasicSalary.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "basic_salary", Message: "must be non-negative"})
	}
	if r.CTC.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "ctc", Message: "must be non-negative"})
	}
	if _, ok := validator.IsValidDate(r.EffectiveDate); !ok {
		errs = append(errs, validator.ValidationError{Field: "effective_date", Message: "must be a valid date (YYYY-MM-DD)"})
	}

	seen := make(map[string]bool, len(r.Components))
	for i, c := range r.Components {
		field := "components[" + validator.Itoa(i) + "]"
		name := strings.TrimSpace(c.Name)
		switch {
		case name == "":
			errs = append(errs, validator.ValidationError{Field: field + ".name", Message: "is required"})
		case seen[strings.ToLower(name)]:
			errs = append(errs, validator.ValidationError{Field: field + ".name", Message: "must be unique"})
		}
		seen[strings.ToLower(name)] = true

		if c.Kind != ComponentKindAllowance && c.Kind != ComponentKindDeduction {
			errs = append(errs, validator.ValidationError{Field: field + ".kind", Message: "must be 'allowance' or 'deduction'"})
		}
		switch c.CalculationType {
		case CalculationTypeFixed:
		case CalculationTypePercentage:
			if c.Value.GreaterThan(decimal.NewFromInt(100)) {
				errs = append(errs, validator.ValidationError{Field: field + ".value", Message: "percentage must not exceed 100"})
			}
		default:
			errs = append(errs, validator.ValidationError{Field: field + ".calculation_type", Message: "must be 'percentage' or 'fixed'"})
		}
		if c.Value.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field + ".value", Message: "must be non-negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SalaryStructureResponse struct {
	ID            string            `json:"id"`
	EmployeeID    string            `json:"employee_id"`
	BasicSalary   decimal.Decimal   `json:"basic_salary"`
	CTC           decimal.Decimal   `json:"ctc"`
	EffectiveDate string            `json:"effective_date"`
	IsActive      bool              `json:"is_active"`
	Components    []SalaryComponent `json:"components"`
	CreatedBy     *string           `json:"created_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ========== PAYROLL RECORD DTOs ==========

type GeneratePayrollRequest struct {
	PeriodMonth int      `json:"period_month"`
	PeriodYear  int      `json:"period_year"`
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = all active employees
	CompanyID   string   `json:"-"`
	ActorID     string   `json:"-"`
}

func (r *GeneratePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}
	if r.PeriodYear < validator.MinPeriodYear {
		errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be " + validator.Itoa(validator.MinPeriodYear) + " or later"})
	}
	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "is required"})
	}
	if validator.IsEmpty(r.ActorID) {
		errs = append(errs, validator.ValidationError{Field: "actor_id", Message: "is required"})
	}
	for i, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "must not contain empty ids"})
			break
		}
		if !validator.IsValidUUID(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids[" + validator.Itoa(i) + "]", Message: "must be a valid UUID"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// GeneratePayrollResult is the outcome of one generation run.
type GeneratePayrollResult struct {
	Records []PayrollRecord
	// Employees left untouched because their record is already approved or paid.
	SkippedEmployeeIDs []string
	// Number of existing records removed before the new batch was written.
	ReplacedCount int
}

type UpdatePayrollStatusRequest struct {
	ID            string  `json:"-"`
	CompanyID     string  `json:"-"`
	ActorID       string  `json:"-"`
	Status        string  `json:"status"`
	Remarks       *string `json:"remarks,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	PaymentDate   *string `json:"payment_date,omitempty"` // YYYY-MM-DD
}

func (r *UpdatePayrollStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "is required"})
	}
	if validator.IsEmpty(r.Status) {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "is required"})
	}
	if r.PaymentDate != nil && !validator.IsEmpty(*r.PaymentDate) {
		if _, ok := validator.IsValidDate(*r.PaymentDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "payment_date", Message: "must be a valid date (YYYY-MM-DD)"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollRecordResponse struct {
	ID               string                     `json:"id"`
	EmployeeID       string                     `json:"employee_id"`
	EmployeeName     string                     `json:"employee_name"`
	EmployeeCode     string                     `json:"employee_code"`
	PositionName     *string                    `json:"position_name,omitempty"`
	DepartmentName   *string                    `json:"department_name,omitempty"`
	PeriodMonth      int                        `json:"period_month"`
	PeriodYear       int                        `json:"period_year"`
	BasicSalary      decimal.Decimal            `json:"basic_salary"`
	HRA              decimal.Decimal            `json:"hra"`
	DA               decimal.Decimal            `json:"da"`
	OtherAllowances  decimal.Decimal            `json:"other_allowances"`
	PF               decimal.Decimal            `json:"pf"`
	ESI              decimal.Decimal            `json:"esi"`
	ProfessionalTax  decimal.Decimal            `json:"professional_tax"`
	IncomeTax        decimal.Decimal            `json:"income_tax"`
	OtherDeductions  decimal.Decimal            `json:"other_deductions"`
	GrossSalary      decimal.Decimal            `json:"gross_salary"`
	TotalDeductions  decimal.Decimal            `json:"total_deductions"`
	NetPay           decimal.Decimal            `json:"net_pay"`
	AllowancesDetail map[string]decimal.Decimal `json:"allowances_detail,omitempty"`
	DeductionsDetail map[string]decimal.Decimal `json:"deductions_detail,omitempty"`
	WorkingDays      int                        `json:"working_days"`
	PresentDays      int                        `json:"present_days"`
	AbsentDays       int                        `json:"absent_days"`
	PaidLeaves       float64                    `json:"paid_leaves"`
	UnpaidLeaves     float64                    `json:"unpaid_leaves"`
	Status           string                     `json:"status"`
	ProcessedBy      *string                    `json:"processed_by,omitempty"`
	ApprovedBy       *string                    `json:"approved_by,omitempty"`
	ApprovedAt       *string                    `json:"approved_at,omitempty"`
	PaymentMethod    *string                    `json:"payment_method,omitempty"`
	PaymentDate      *string                    `json:"payment_date,omitempty"`
	Remarks          *string                    `json:"remarks,omitempty"`
}

type GeneratePayrollResponse struct {
	Records            []PayrollRecordResponse `json:"records"`
	SkippedEmployeeIDs []string                `json:"skipped_employee_ids,omitempty"`
	ReplacedCount      int                     `json:"replaced_count"`
}

type PayrollFilter struct {
	CompanyID   string  `json:"-"`
	PeriodMonth *int    `json:"period_month,omitempty"`
	PeriodYear  *int    `json:"period_year,omitempty"`
	Status      *string `json:"status,omitempty"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
	SortBy      string  `json:"sort_by"`
	SortOrder   string  `json:"sort_order"`
}

func (f *PayrollFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.PeriodMonth != nil && (*f.PeriodMonth < 1 || *f.PeriodMonth > 12) {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}
	if f.Status != nil && !PayrollStatus(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be one of draft, approved, paid"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayrollSummaryResponse struct {
	PeriodMonth          int             `json:"period_month"`
	PeriodYear           int             `json:"period_year"`
	TotalEmployees       int             `json:"total_employees"`
	TotalBasicSalary     decimal.Decimal `json:"total_basic_salary"`
	TotalGrossSalary     decimal.Decimal `json:"total_gross_salary"`
	TotalDeductions      decimal.Decimal `json:"total_deductions"`
	TotalNetPay          decimal.Decimal `json:"total_net_pay"`
	TotalPF              decimal.Decimal `json:"total_pf"`
	TotalESI             decimal.Decimal `json:"total_esi"`
	TotalProfessionalTax decimal.Decimal `json:"total_professional_tax"`
	TotalIncomeTax       decimal.Decimal `json:"total_income_tax"`
	DraftCount           int             `json:"draft_count"`
	ApprovedCount        int             `json:"approved_count"`
	PaidCount            int             `json:"paid_count"`
}

// ========== PAYSLIP DTOs ==========

type GeneratePayslipsRequest struct {
	PayrollIDs []string `json:"payroll_ids"`
	CompanyID  string   `json:"-"`
	ActorID    string   `json:"-"`
}

func (r *GeneratePayslipsRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.PayrollIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "payroll_ids", Message: "at least one payroll record is required"})
	}
	for _, id := range r.PayrollIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "payroll_ids", Message: "must not contain empty ids"})
			break
		}
	}
	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayslipFilter struct {
	PeriodMonth *int
	PeriodYear  *int
	EmployeeID  *string
	Status      *string
}

type PayslipResponse struct {
	ID              string           `json:"id"`
	PayrollRecordID string           `json:"payroll_record_id"`
	PayslipNumber   string           `json:"payslip_number"`
	EmployeeID      string           `json:"employee_id"`
	EmployeeName    string           `json:"employee_name"`
	EmployeeCode    string           `json:"employee_code"`
	Designation     *string          `json:"designation,omitempty"`
	Department      *string          `json:"department,omitempty"`
	PeriodMonth     int              `json:"period_month"`
	PeriodYear      int              `json:"period_year"`
	Breakdown       PayslipBreakdown `json:"breakdown"`
	GrossSalary     decimal.Decimal  `json:"gross_salary"`
	TotalDeductions decimal.Decimal  `json:"total_deductions"`
	NetPay          decimal.Decimal  `json:"net_pay"`
	WorkingDays     int              `json:"working_days"`
	PresentDays     int              `json:"present_days"`
	Status          string           `json:"status"`
	GeneratedAt     time.Time        `json:"generated_at"`
	SentAt          *time.Time       `json:"sent_at,omitempty"`
}
