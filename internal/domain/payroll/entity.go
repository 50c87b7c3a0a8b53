package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComponentKind tells whether a salary component adds to or subtracts from pay.
type ComponentKind string

const (
	ComponentKindAllowance ComponentKind = "allowance"
	ComponentKindDeduction ComponentKind = "deduction"
)

// CalculationType selects how a component's amount is derived.
type CalculationType string

const (
	CalculationTypePercentage CalculationType = "percentage" // percent of adjusted basic
	CalculationTypeFixed      CalculationType = "fixed"
)

// SalaryComponent is one custom allowance or deduction on a salary structure.
type SalaryComponent struct {
	Name            string          `json:"name"`
	Kind            ComponentKind   `json:"kind"`
	CalculationType CalculationType `json:"calculation_type"`
	Value           decimal.Decimal `json:"value"`
	DisplayOrder    int             `json:"display_order"`
}

// SalaryStructure is an employee's compensation definition. At most one
// structure per employee is active at a time; history is append-only.
type SalaryStructure struct {
	ID            string
	EmployeeID    string
	CompanyID     string
	BasicSalary   decimal.Decimal
	CTC           decimal.Decimal
	EffectiveDate time.Time
	IsActive      bool
	Components    []SalaryComponent
	CreatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PeriodTiming classifies a payroll period relative to the current date.
type PeriodTiming int

const (
	PeriodPast PeriodTiming = iota
	PeriodCurrentOrFuture
)

// AttendanceSummary is the derived attendance picture of one employee for one month.
type AttendanceSummary struct {
	WorkingDays     int
	PresentDays     int
	AbsentDays      int
	PaidLeaveDays   float64
	UnpaidLeaveDays float64
}

// SalaryCalculation holds every monetary output of the salary calculator.
type SalaryCalculation struct {
	BasicSalary      decimal.Decimal
	HRA              decimal.Decimal
	DA               decimal.Decimal
	OtherAllowances  decimal.Decimal
	PF               decimal.Decimal
	ESI              decimal.Decimal
	ProfessionalTax  decimal.Decimal
	IncomeTax        decimal.Decimal
	OtherDeductions  decimal.Decimal
	GrossSalary      decimal.Decimal
	TotalDeductions  decimal.Decimal
	NetPay           decimal.Decimal
	AllowancesDetail map[string]decimal.Decimal
	DeductionsDetail map[string]decimal.Decimal
}

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft    PayrollStatus = "draft"
	PayrollStatusApproved PayrollStatus = "approved"
	PayrollStatusPaid     PayrollStatus = "paid"
)

func (s PayrollStatus) IsValid() bool {
	switch s {
	case PayrollStatusDraft, PayrollStatusApproved, PayrollStatusPaid:
		return true
	}
	return false
}

// IsFinalized reports whether the record has left draft.
func (s PayrollStatus) IsFinalized() bool {
	return s == PayrollStatusApproved || s == PayrollStatusPaid
}

// RegenerationPolicy decides what happens to existing records of a period
// when payroll is generated again.
type RegenerationPolicy string

const (
	// RegenerationReplaceAll deletes every record of the period, paid ones included.
	RegenerationReplaceAll RegenerationPolicy = "replace_all"
	// RegenerationPreserveFinalized deletes drafts only and skips employees
	// whose record is already approved or paid.
	RegenerationPreserveFinalized RegenerationPolicy = "preserve_finalized"
	// RegenerationReject refuses to regenerate a period holding approved or paid records.
	RegenerationReject RegenerationPolicy = "reject"
)

func (p RegenerationPolicy) IsValid() bool {
	switch p {
	case RegenerationReplaceAll, RegenerationPreserveFinalized, RegenerationReject:
		return true
	}
	return false
}

// PayrollRecord - Generated payroll result
type PayrollRecord struct {
	ID                string
	EmployeeID        string
	CompanyID         string
	SalaryStructureID *string // nil for placeholder records
	PeriodMonth       int
	PeriodYear        int
	BasicSalary       decimal.Decimal
	HRA               decimal.Decimal
	DA                decimal.Decimal
	OtherAllowances   decimal.Decimal
	PF                decimal.Decimal
	ESI               decimal.Decimal
	ProfessionalTax   decimal.Decimal
	IncomeTax         decimal.Decimal
	OtherDeductions   decimal.Decimal
	GrossSalary       decimal.Decimal
	TotalDeductions   decimal.Decimal
	NetPay            decimal.Decimal
	AllowancesDetail  map[string]decimal.Decimal // {"Transport": 1500}
	DeductionsDetail  map[string]decimal.Decimal // {"Canteen": 300}
	WorkingDays       int
	PresentDays       int
	AbsentDays        int
	PaidLeaves        float64
	UnpaidLeaves      float64
	Status            PayrollStatus
	ProcessedBy       *string
	ApprovedBy        *string
	ApprovedAt        *time.Time
	PaymentMethod     *string
	PaymentDate       *time.Time
	Remarks           *string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Joined fields
	EmployeeName   *string
	EmployeeCode   *string
	PositionName   *string
	DepartmentName *string
	UserID         *string
}

// PayslipStatus enum
type PayslipStatus string

const (
	PayslipStatusGenerated PayslipStatus = "generated"
	PayslipStatusSent      PayslipStatus = "sent"
)

// PayslipLine is one named amount in a payslip breakdown.
type PayslipLine struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PayslipBreakdown splits a record's amounts for presentation.
type PayslipBreakdown struct {
	Earnings   []PayslipLine `json:"earnings"`
	Deductions []PayslipLine `json:"deductions"`
}

// Payslip is a read-only projection of exactly one payroll record.
type Payslip struct {
	ID              string
	PayrollRecordID string
	EmployeeID      string
	CompanyID       string
	PayslipNumber   string
	EmployeeName    string
	EmployeeCode    string
	Designation     *string
	Department      *string
	PeriodMonth     int
	PeriodYear      int
	Breakdown       PayslipBreakdown
	GrossSalary     decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal
	WorkingDays     int
	PresentDays     int
	Status          PayslipStatus
	GeneratedBy     *string
	GeneratedAt     time.Time
	SentAt          *time.Time

	// Joined fields
	UserID *string
}
