package http

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
)

func formatTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toSalaryStructureResponse(s payroll.SalaryStructure) payroll.SalaryStructureResponse {
	components := s.Components
	if components == nil {
		components = []payroll.SalaryComponent{}
	}
	return payroll.SalaryStructureResponse{
		ID:            s.ID,
		EmployeeID:    s.EmployeeID,
		BasicSalary:   s.BasicSalary,
		CTC:           s.CTC,
		EffectiveDate: s.EffectiveDate.Format("2006-01-02"),
		IsActive:      s.IsActive,
		Components:    components,
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
	}
}

func toPayrollRecordResponse(rec payroll.PayrollRecord) payroll.PayrollRecordResponse {
	return payroll.PayrollRecordResponse{
		ID:               rec.ID,
		EmployeeID:       rec.EmployeeID,
		EmployeeName:     deref(rec.EmployeeName),
		EmployeeCode:     deref(rec.EmployeeCode),
		PositionName:     rec.PositionName,
		DepartmentName:   rec.DepartmentName,
		PeriodMonth:      rec.PeriodMonth,
		PeriodYear:       rec.PeriodYear,
		BasicSalary:      rec.BasicSalary,
		HRA:              rec.HRA,
		DA:               rec.DA,
		OtherAllowances:  rec.OtherAllowances,
		PF:               rec.PF,
		ESI:              rec.ESI,
		ProfessionalTax:  rec.ProfessionalTax,
		IncomeTax:        rec.IncomeTax,
		OtherDeductions:  rec.OtherDeductions,
		GrossSalary:      rec.GrossSalary,
		TotalDeductions:  rec.TotalDeductions,
		NetPay:           rec.NetPay,
		AllowancesDetail: rec.AllowancesDetail,
		DeductionsDetail: rec.DeductionsDetail,
		WorkingDays:      rec.WorkingDays,
		PresentDays:      rec.PresentDays,
		AbsentDays:       rec.AbsentDays,
		PaidLeaves:       rec.PaidLeaves,
		UnpaidLeaves:     rec.UnpaidLeaves,
		Status:           string(rec.Status),
		ProcessedBy:      rec.ProcessedBy,
		ApprovedBy:       rec.ApprovedBy,
		ApprovedAt:       formatTime(rec.ApprovedAt, time.RFC3339),
		PaymentMethod:    rec.PaymentMethod,
		PaymentDate:      formatTime(rec.PaymentDate, "2006-01-02"),
		Remarks:          rec.Remarks,
	}
}

func toPayslipResponse(ps payroll.Payslip) payroll.PayslipResponse {
	return payroll.PayslipResponse{
		ID:              ps.ID,
		PayrollRecordID: ps.PayrollRecordID,
		PayslipNumber:   ps.PayslipNumber,
		EmployeeID:      ps.EmployeeID,
		EmployeeName:    ps.EmployeeName,
		EmployeeCode:    ps.EmployeeCode,
		Designation:     ps.Designation,
		Department:      ps.Department,
		PeriodMonth:     ps.PeriodMonth,
		PeriodYear:      ps.PeriodYear,
		Breakdown:       ps.Breakdown,
		GrossSalary:     ps.GrossSalary,
		TotalDeductions: ps.TotalDeductions,
		NetPay:          ps.NetPay,
		WorkingDays:     ps.WorkingDays,
		PresentDays:     ps.PresentDays,
		Status:          string(ps.Status),
		GeneratedAt:     ps.GeneratedAt,
		SentAt:          ps.SentAt,
	}
}
