package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrSalaryStructureNotFound):
		NotFound(w, "Active salary structure not found")
	case errors.Is(err, payroll.ErrPayslipNotFound):
		NotFound(w, "Payslip not found")
	case errors.Is(err, payroll.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, payroll.ErrPayrollRecordAlreadyExists):
		Conflict(w, "Payroll record already exists for this period")
	case errors.Is(err, payroll.ErrActiveSalaryStructureExists):
		Conflict(w, "Employee already has an active salary structure")
	case errors.Is(err, payroll.ErrInvalidStatusTransition):
		Conflict(w, "Payroll status transition not allowed")
	case errors.Is(err, payroll.ErrPeriodHasFinalizedRecords):
		Conflict(w, "Payroll period has approved or paid records")
	case errors.Is(err, payroll.ErrInvalidPeriod):
		UnprocessableEntity(w, "Invalid payroll period")
	case errors.Is(err, payroll.ErrInvalidStatus):
		UnprocessableEntity(w, "Invalid payroll status")
	case errors.Is(err, payroll.ErrApproverRequired):
		UnprocessableEntity(w, "Approver is required")
	case errors.Is(err, payroll.ErrPaymentDetailsRequired):
		UnprocessableEntity(w, "Payment method and payment date are required")
	case errors.Is(err, payroll.ErrInvalidComponentType):
		UnprocessableEntity(w, "Invalid salary component type")

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
