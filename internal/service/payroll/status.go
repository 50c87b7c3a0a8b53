package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
)

// StatusChange is a requested move along draft -> approved -> paid.
type StatusChange struct {
	Target        payroll.PayrollStatus
	ActorID       string
	Remarks       *string
	PaymentMethod *string
	PaymentDate   *time.Time
	At            time.Time
}

// TransitionStatus applies change to rec and returns the updated record.
// Only draft -> approved and approved -> paid are allowed.
func TransitionStatus(rec payroll.PayrollRecord, change StatusChange) (payroll.PayrollRecord, error) {
	switch {
	case rec.Status == payroll.PayrollStatusDraft && change.Target == payroll.PayrollStatusApproved:
		if change.ActorID == "" {
			return payroll.PayrollRecord{}, payroll.ErrApproverRequired
		}
		actorID := change.ActorID
		approvedAt := change.At
		rec.ApprovedBy = &actorID
		rec.ApprovedAt = &approvedAt

	case rec.Status == payroll.PayrollStatusApproved && change.Target == payroll.PayrollStatusPaid:
		if change.PaymentMethod == nil || *change.PaymentMethod == "" || change.PaymentDate == nil {
			return payroll.PayrollRecord{}, payroll.ErrPaymentDetailsRequired
		}
		method := *change.PaymentMethod
		paidOn := *change.PaymentDate
		rec.PaymentMethod = &method
		rec.PaymentDate = &paidOn

	case !change.Target.IsValid():
		return payroll.PayrollRecord{}, payroll.ErrInvalidStatus

	default:
		return payroll.PayrollRecord{}, payroll.ErrInvalidStatusTransition
	}

	rec.Status = change.Target
	if change.Remarks != nil {
		remarks := *change.Remarks
		rec.Remarks = &remarks
	}
	return rec, nil
}
