package payroll

import "errors"

var (
	ErrPayrollRecordNotFound       = errors.New("payroll record not found")
	ErrPayrollRecordAlreadyExists  = errors.New("payroll record already exists for this period")
	ErrInvalidPeriod               = errors.New("invalid payroll period")
	ErrInvalidStatus               = errors.New("invalid payroll status")
	ErrInvalidStatusTransition     = errors.New("invalid payroll status transition")
	ErrApproverRequired            = errors.New("approver is required to approve payroll")
	ErrPaymentDetailsRequired      = errors.New("payment method and payment date are required to mark payroll paid")
	ErrPeriodHasFinalizedRecords   = errors.New("payroll period has approved or paid records")
	ErrSalaryStructureNotFound     = errors.New("active salary structure not found")
	ErrActiveSalaryStructureExists = errors.New("employee already has an active salary structure")
	ErrPayslipNotFound             = errors.New("payslip not found")
	ErrEmployeeNotFound            = errors.New("employee not found")
	ErrInvalidComponentType        = errors.New("invalid component type")
)
